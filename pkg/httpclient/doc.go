// Package httpclient provides a typed Go client for the form decoding
// REST API.
//
// Create a client with:
//
//	client, err := httpclient.New("http://localhost:8080/api/formdata")
//	if err != nil {
//	   panic(err)
//	}
//
// Then use the client to submit forms:
//
//	// List all schemas
//	schemas, err := client.ListSchemas(ctx)
//
//	// Upload a field and a file against the "avatar" schema
//	form, err := client.Upload(ctx, "avatar",
//	    httpclient.WithField("username", "alice"),
//	    httpclient.WithPath("image", os.DirFS("."), "me.png"),
//	)
package httpclient
