package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/tpoints/internal/domain"
)

type successEnvelope struct {
	Data any `json:"data"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// validationError — ошибка разбора или проверки тела запроса.
type validationError struct {
	message string
	details map[string]string
}

func (e *validationError) Error() string {
	return e.message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

func decodeJSON(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return &validationError{message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return validateStruct(dest)
}

func validateStruct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &validationError{message: err.Error()}
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = validationMessage(fe)
	}
	return &validationError{message: "validation failed", details: details}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

// statusFor сопоставляет доменные ошибки HTTP-кодам.
func statusFor(err error) (int, string) {
	var vErr *validationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyAssigned),
		errors.Is(err, domain.ErrAlreadyTerminal),
		errors.Is(err, domain.ErrAwardAlreadyGranted):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountSignMismatch),
		errors.Is(err, domain.ErrUnknownTransactionKind),
		errors.Is(err, domain.ErrDescriptionRequired),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrLineQtyInvalid),
		errors.Is(err, domain.ErrLinePriceInvalid),
		errors.Is(err, domain.ErrStaffRequired),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrUnknownEventType):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, "lock_timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	status, code := statusFor(err)

	body := apiError{Code: code, Message: err.Error()}
	var vErr *validationError
	if errors.As(err, &vErr) && len(vErr.details) > 0 {
		body.Details = vErr.details
	}

	switch status {
	case http.StatusInternalServerError:
		logger.WithError(err).Error("request failed")
		body.Message = "internal error"
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		logger.WithError(err).Warn("request hit lock timeout")
	}

	writeJSON(w, status, errorEnvelope{Error: body})
}
