package httphandler

import (
	"net/http"

	// Packages
	manager "github.com/mutablelogic/go-formdata/pkg/manager"
	schema "github.com/mutablelogic/go-formdata/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: /{$}
// GET returns the registered schemas.
func SchemaListHandler(mgr *manager.Manager) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/{$}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				_ = schemaList(w, r, mgr)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Get: &openapi.Operation{
				Description: "List all registered form schemas",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func schemaList(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	names := mgr.Schemas()
	body := make(map[string]*schema.Schema, len(names))
	for _, name := range names {
		if s, err := mgr.Schema(name); err == nil {
			body[name] = s
		}
	}
	response := schema.SchemaListResponse{Body: body}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), response)
}
