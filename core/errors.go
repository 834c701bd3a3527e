package core

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrGeneric is shown to users whenever the backend gave no usable message.
const ErrGeneric = "Something went wrong. Please try again."

// FieldError is used to indicate an error with a specific form field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FieldMap returns the field errors keyed by field name.
func (err ValidationError) FieldMap() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

// FieldErrorsFromMap turns a field -> message map into FieldErrors sorted by field.
func FieldErrorsFromMap(m map[string]string) []FieldError {
	flds := make([]FieldError, 0, len(m))
	for field, msg := range m {
		flds = append(flds, FieldError{Field: field, Error: msg})
	}
	sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
	return flds
}

// GatewayError is returned when a call to the backend fails, either at the network level or with a non-2xx reply.
type GatewayError struct {
	Op      string // e.g. "create student"
	Status  int    // 0 when the request never got a response
	Message string // server message, if any
	Err     error
}

func NewGatewayError(op string, status int, msg string, err error) error {
	return &GatewayError{Op: op, Status: status, Message: msg, Err: err}
}

func (err *GatewayError) Error() string {
	switch {
	case err.Status > 0 && err.Message != "":
		return fmt.Sprintf("%s: %d %s: %s", err.Op, err.Status, http.StatusText(err.Status), err.Message)
	case err.Status > 0:
		return fmt.Sprintf("%s: %d %s", err.Op, err.Status, http.StatusText(err.Status))
	case err.Err != nil:
		return fmt.Sprintf("%s: %v", err.Op, err.Err)
	default:
		return err.Op + ": " + err.UserMessage()
	}
}

func (err *GatewayError) Unwrap() error { return err.Err }

// UserMessage is the text shown to the user: the server message verbatim, or a generic fallback.
func (err *GatewayError) UserMessage() string {
	if err.Message != "" {
		return err.Message
	}
	return ErrGeneric
}

// FileConstraintError blocks a file selection before anything is sent over the network.
type FileConstraintError struct {
	Field  string
	Reason string
}

func NewFileConstraintError(field, reason string) error {
	return &FileConstraintError{Field: field, Reason: reason}
}

func (err *FileConstraintError) Error() string {
	return err.Reason
}

// UserMessage translates any error into something safe to display.
// Raw errors and stack traces never reach the user; log them instead.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		gErr *GatewayError
		fErr *FileConstraintError
		vErr *ValidationError
		um   interface{ UserMessage() string }
	)
	switch {
	case errors.As(err, &vErr):
		if vErr.Err != nil {
			return vErr.Err.Error()
		}
		return "Please fix the errors before continuing"
	case errors.As(err, &fErr):
		return fErr.Reason
	case errors.As(err, &gErr):
		return gErr.UserMessage()
	case errors.As(err, &um):
		return um.UserMessage()
	default:
		return ErrGeneric
	}
}

// TranslateValidationErrors maps validator errors to translated messages keyed by field name.
func TranslateValidationErrors(err error) map[string]string {
	vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
	if !ok {
		return nil
	}
	fldErrs := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		fldErrs[vErr.Namespace()] = vErr.Translate(Translator)
	}
	return fldErrs
}
