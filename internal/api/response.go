package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/powerlister/internal/imaging"
	"github.com/erazemk/powerlister/internal/listing"
	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in validation messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target and validates it.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return &model.ValidationError{Field: "body", Message: "invalid request body"}
	}
	return validate.Struct(target)
}

func validationMessage(errs validator.ValidationErrors) string {
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "min", "gte":
			return field + " must be at least " + fe.Param()
		case "max", "lte":
			return field + " must be at most " + fe.Param()
		case "oneof":
			return field + " must be one of: " + fe.Param()
		case "email":
			return field + " must be a valid email address"
		default:
			return field + " is invalid"
		}
	}
	return "invalid input"
}

// writeError maps an error to a status code and writes it. Unexpected
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *model.ValidationError
		fieldErr validator.ValidationErrors
		notFound *listing.NotFoundError
		capErr   *listing.CapabilityError
		remote   *listing.RemoteOperationError
	)

	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &fieldErr):
		jsonError(w, http.StatusBadRequest, validationMessage(fieldErr))
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		jsonError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &notFound):
		jsonError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.As(err, &capErr):
		jsonError(w, http.StatusUnprocessableEntity, capErr.Error())
	case errors.Is(err, listing.ErrOperationInProgress):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrConflict):
		jsonError(w, http.StatusConflict, "item was modified concurrently, try again")
	case errors.Is(err, store.ErrLastImage):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.As(err, &remote):
		jsonError(w, http.StatusBadGateway, remote.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
