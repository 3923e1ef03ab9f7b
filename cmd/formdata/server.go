package main

import (
	"fmt"
	"net/http"

	// Packages
	httphandler "github.com/mutablelogic/go-formdata/pkg/httphandler"
	version "github.com/mutablelogic/go-formdata/pkg/version"
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	httpserver "github.com/mutablelogic/go-server/pkg/httpserver"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServerCommands struct {
	Server RunServerCommand `cmd:"" name:"server" help:"Run HTTP server." group:"SERVER"`
}

type RunServerCommand struct{}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunServerCommand) Run(app *Globals) error {
	// Create manager with schemas and sink
	mgr, err := app.Manager()
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}
	defer mgr.Close()

	// Create the router
	router, err := httprouter.NewRouter(app.ctx, app.HTTP.Prefix, app.HTTP.Origin, "formdata", version.Version())
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	// Register form HTTP handlers
	if err := httphandler.RegisterHandlers(mgr, router); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}

	// Create and run the HTTP server
	srv, err := httpserver.New(app.HTTP.Addr, http.Handler(router), nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	app.logger.InfoContext(app.ctx, "formdata started", "version", version.Version(), "addr", app.HTTP.Addr, "schemas", mgr.Schemas())
	if err := srv.Run(app.ctx); err != nil {
		return err
	}
	app.logger.Info("formdata stopped")
	return nil
}
