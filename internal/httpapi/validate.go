package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeAndValidate decodes the JSON body into dst and runs struct-tag
// validation, writing the documented validation error envelope on either
// failure. Returns false if the request has already been answered.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSONBody(w, r, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, cerrors.New(cerrors.CodeValidation, validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
