package main

import (
	"fmt"

	// Packages
	version "github.com/mutablelogic/go-formdata/pkg/version"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type VersionCommands struct {
	Version VersionCommand `cmd:"" name:"version" help:"Print version information." group:"MISC"`
}

type VersionCommand struct{}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *VersionCommand) Run(app *Globals) error {
	fmt.Println(string(version.JSON(execName())))
	return nil
}
