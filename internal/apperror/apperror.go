// Package apperror maps validation failures and request errors to the shapes
// reported to callers and logs.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// InvalidJSON is the detail reported when a webhook body cannot be decoded.
const InvalidJSON = "Invalid JSON"

var (
	errRequired       = errors.New("is required")
	errUnknownAction  = errors.New("must be one of buy, sell, none")
	errConfidence     = errors.New("must be between 0 and 1")
	errRequiredToken  = errors.New("is required for buy and sell")
	errNotDecimalText = errors.New("must be a decimal number")
)

var customErrors = map[string]error{
	"intentReply.Action.required":       errRequired,
	"intentReply.Action.oneof":          errUnknownAction,
	"intentReply.Token.required_unless": errRequiredToken,
	"intentReply.Amount.numeric":        errNotDecimalText,
	"intentReply.Confidence.gte":        errConfidence,
	"intentReply.Confidence.lte":        errConfidence,
}

// Detail is the error body returned by the webhook endpoints.
type Detail struct {
	Detail string `json:"detail"`
}

// WriteDetail writes status with a {"detail": msg} body.
func WriteDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Detail{Detail: msg})
}

// CustomValidationError converts validator errors into field/message pairs.
func CustomValidationError(err error) []map[string]string {
	errList := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		for _, e := range validationErr {
			field := e.StructNamespace()
			key := field + "." + e.Tag()

			errMsg := fmt.Sprintf("%s is invalid", field)
			if v, ok := customErrors[key]; ok {
				errMsg = v.Error()
			}

			errList = append(errList, map[string]string{e.Field(): errMsg})
		}
	}
	return errList
}

// Summary flattens CustomValidationError output into one log-friendly line.
func Summary(err error) string {
	list := CustomValidationError(err)
	if len(list) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(list))
	for _, m := range list {
		for field, msg := range m {
			parts = append(parts, field+" "+msg)
		}
	}
	return strings.Join(parts, "; ")
}
