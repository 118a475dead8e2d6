package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yplabs-ltd/codepush-server/apierrors"
)

func routeVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func badRequest(msg string) error {
	return apierrors.New(apierrors.KindInvalid, msg)
}

// decodeJSON decodes the request body into dst, writing a 400 response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		writeError(w, badRequest("missing request body"))
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, badRequest("malformed JSON body"))
		return false
	}
	return true
}
