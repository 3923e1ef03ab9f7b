package httpclient

import (
	"context"

	// Packages
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ListSchemas returns the schemas the server accepts forms for.
func (c *Client) ListSchemas(ctx context.Context) (*schema.SchemaListResponse, error) {
	req := client.NewRequest()

	// Perform request
	var response schema.SchemaListResponse
	if err := c.DoWithContext(ctx, req, &response); err != nil {
		return nil, err
	}

	// Return the response
	return &response, nil
}

// GetSchema returns the constraints of a named schema.
func (c *Client) GetSchema(ctx context.Context, name string) (*schema.Schema, error) {
	var response schema.Schema
	if err := c.DoWithContext(ctx, client.NewRequest(), &response, client.OptPath(name)); err != nil {
		return nil, err
	}
	return &response, nil
}
