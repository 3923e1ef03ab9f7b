package main

import (
	"io"
	"strings"
	"testing"

	// Packages
	decoder "github.com/mutablelogic/go-formdata/pkg/decoder"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_detectContentType(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	body := "--abc123\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nx\r\n--abc123--\r\n"
	contentType, r, err := detectContentType(strings.NewReader(body))
	require.NoError(err)

	boundary, err := decoder.Boundary(contentType)
	assert.NoError(err)
	assert.Equal("abc123", boundary)

	// The whole body is returned
	data, err := io.ReadAll(r)
	require.NoError(err)
	assert.Equal(body, string(data))

	_, _, err = detectContentType(strings.NewReader("no delimiter\r\n"))
	assert.Error(err)
	_, _, err = detectContentType(strings.NewReader(""))
	assert.Error(err)
}

func Test_clientEndpoint(t *testing.T) {
	assert := assert.New(t)

	var app Globals
	app.HTTP.Addr = ":8080"
	app.HTTP.Prefix = "/api/formdata"
	endpoint, err := app.clientEndpoint()
	assert.NoError(err)
	assert.Equal("http://localhost:8080/api/formdata", endpoint)

	app.HTTP.Addr = "example.com:443"
	endpoint, err = app.clientEndpoint()
	assert.NoError(err)
	assert.Equal("https://example.com:443/api/formdata", endpoint)

	app.HTTP.Addr = "nohost"
	_, err = app.clientEndpoint()
	assert.Error(err)
}
