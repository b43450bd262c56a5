// Package httperr writes the documented {error:{code,message,statusCode,...}}
// envelope. It is split out from internal/httpapi so internal/httpapi/auth's
// middleware can honor the same response contract as every handler without
// importing internal/httpapi itself (which already imports auth).
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// Envelope is the wire shape of an error response.
type Envelope struct {
	Error Body `json:"error"`
}

type Body struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Context    map[string]any `json:"context,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Write translates err into the documented error envelope. Unrecognized
// errors (not a *cerrors.Error) are treated as INTERNAL_ERROR and their
// detail is not leaked to the client.
func Write(w http.ResponseWriter, err error) {
	var cerr *cerrors.Error
	if !errors.As(err, &cerr) {
		WriteJSON(w, http.StatusInternalServerError, Envelope{Error: Body{
			Code:       string(cerrors.CodeInternal),
			Message:    "internal server error",
			StatusCode: http.StatusInternalServerError,
		}})
		return
	}
	WriteJSON(w, cerr.StatusCode, Envelope{Error: Body{
		Code:       string(cerr.Code),
		Message:    cerr.Message,
		StatusCode: cerr.StatusCode,
		Context:    cerr.Context,
	}})
}
