// Package httpapi is the thin HTTP adapter over the core engines: a chi
// router and handlers that parse requests, call into upload/download/
// foldertree/accounts, and translate internal/cerrors values into the
// {error:{code,message,statusCode,...}} JSON shape. It is not exercised by
// the core's own test suite — HTTP parsing is explicitly out of scope there
// — but exists so vaultfs is a runnable service.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/vaultfs/vaultfs/internal/cerrors"
	"github.com/vaultfs/vaultfs/internal/httpapi/httperr"
)

// errorEnvelope is the wire shape of an error response, re-exported from
// httperr so existing call sites and tests in this package need no changes.
type errorEnvelope = httperr.Envelope

type errorBody = httperr.Body

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	httperr.WriteJSON(w, status, data)
}

// writeError translates err into the documented error envelope. Unrecognized
// errors (not a *cerrors.Error) are treated as INTERNAL_ERROR and their detail
// is not leaked to the client.
func writeError(w http.ResponseWriter, err error) {
	httperr.Write(w, err)
}

// writeNoContent writes a 204 No Content response with no body.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, cerrors.New(cerrors.CodeValidation, "invalid JSON request body"))
		return false
	}
	return true
}
