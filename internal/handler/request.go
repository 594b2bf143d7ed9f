package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/auth"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// validate checks the `validate` tags on request DTOs. Field names in its
// errors are the JSON names, so they can be echoed back to the client.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the body into dst and runs the validator over it.
//
// Fields are pointers on every DTO: a missing field stays nil, which the
// "required" tag catches. A value of the wrong JSON type (title: 5,
// tags: "x") is reported against its field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil {
		var (
			typeErr   *json.UnmarshalTypeError
			syntaxErr *json.SyntaxError
			maxErr    *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body is required")
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				return apperror.ValidationFailed("", "request body must be a JSON object")
			}
			return apperror.ValidationFailed(field, fmt.Sprintf("%s must be %s", field, describeType(typeErr.Type)))
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return apperror.ValidationFailed("", "request body is not valid JSON")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("", fmt.Sprintf("request body must be %d bytes or fewer", maxBodyBytes))
		default:
			return apperror.ValidationFailed("", "request body could not be decoded")
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperror.ValidationFailed(fe.Field(), fmt.Sprintf("%s is required", fe.Field()))
		}
		return fmt.Errorf("validating request: %w", err)
	}
	return nil
}

func describeType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Slice:
		return "an array of " + strings.TrimPrefix(describeType(t.Elem()), "a ") + "s"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "a number"
	default:
		return "a " + t.Kind().String()
	}
}

// identity returns the caller set by auth.RequireAuth.
func identity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, apperror.Unauthorized("authentication required")
	}
	return id, nil
}
