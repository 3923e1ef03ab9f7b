package httpclient

import (
	"crypto/tls"
	"net/http"
	"os"
	"strings"

	// Packages
	client "github.com/mutablelogic/go-client"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Client is a form HTTP client that wraps the base HTTP client
// and provides typed methods for interacting with the form API.
type Client struct {
	*client.Client
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new form HTTP client with the given base URL and options.
// The url parameter should point to the form API endpoint, e.g.
// "http://localhost:8080/api/formdata".
func New(url string, opts ...client.ClientOpt) (*Client, error) {
	c := new(Client)
	cl, err := client.New(append(opts, client.OptEndpoint(url))...)
	if err != nil {
		return nil, err
	}
	if isTruthyEnv("FORMDATA_HTTP1") {
		tr, ok := cl.Client.Transport.(*http.Transport)
		if ok && tr != nil {
			tr = tr.Clone()
		} else {
			tr = http.DefaultTransport.(*http.Transport).Clone()
		}
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
		cl.Client.Transport = tr
	}
	c.Client = cl
	return c, nil
}

func isTruthyEnv(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return v != "" && v != "0" && v != "false" && v != "no" && v != "off"
}
