package httphandler

import (
	"net/http"

	// Packages
	manager "github.com/mutablelogic/go-formdata/pkg/manager"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	openapi "github.com/mutablelogic/go-server/pkg/openapi/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: /{name}
// GET returns a schema. POST decodes a multipart/form-data body against the
// schema, stores its files and returns the accepted parts.
func FormHandler(mgr *manager.Manager) (string, http.HandlerFunc, *openapi.PathItem) {
	return "/{name}", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				_ = formSchema(w, r, mgr)
			case http.MethodPost:
				_ = formDecode(w, r, mgr)
			default:
				_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
			}
		}, types.Ptr(openapi.PathItem{
			Get: &openapi.Operation{
				Description: "Return the constraints of a form schema",
			},
			Post: &openapi.Operation{
				Description: "Decode a multipart/form-data body against a schema, storing any files",
			},
		})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func formSchema(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	s, err := mgr.Schema(r.PathValue("name"))
	if err != nil {
		return httpresponse.Error(w, err)
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), s)
}

func formDecode(w http.ResponseWriter, r *http.Request, mgr *manager.Manager) error {
	defer r.Body.Close()

	// Decode the body, the manager removes stored files on error
	form, err := mgr.Decode(r.Context(), r.PathValue("name"), r.Header.Get(types.ContentTypeHeader), r.Body)
	if err != nil {
		return httpresponse.Error(w, err)
	}

	// Return the parts
	return httpresponse.JSON(w, http.StatusCreated, httprequest.Indent(r), form)
}
