package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/mailapi/internal/validate"
)

// maxBodyBytes bounds request bodies; every payload here is a handful of fields.
const maxBodyBytes = 64 << 10

var structValidator = validator.New()

func init() {
	structValidator.RegisterValidation("mail_user", func(fl validator.FieldLevel) bool {
		return validate.Username(fl.Field().String())
	})
	structValidator.RegisterValidation("mail_domain", func(fl validator.FieldLevel) bool {
		return validate.Domain(fl.Field().String())
	})
	structValidator.RegisterValidation("mail_address", func(fl validator.FieldLevel) bool {
		return validate.Email(fl.Field().String())
	})
}

// ValidationError is a client error whose message is safe to return as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

const (
	MsgContentType   = "Content-Type must be application/json"
	MsgMalformedJSON = "Malformed JSON"
	MsgInvalidBody   = "Invalid JSON body"
	MsgBodyTooLarge  = "Request body too large"
)

// normalizer trims and case-folds identifiers before validation.
type normalizer interface {
	Normalize()
}

// requirer supplies the message used when any required field is missing.
type requirer interface {
	RequiredMessage() string
}

// checker runs checks that span fields, after per-field validation passed.
type checker interface {
	Check() error
}

// Decode reads a JSON object body into v and validates it. Failures are
// returned as *ValidationError in a fixed order: content type, syntax, shape,
// missing fields, per-field format in struct order, cross-field checks.
func Decode(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return invalid(MsgContentType)
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return invalid(MsgMalformedJSON)
	}
	if len(raw) > maxBodyBytes {
		return invalid(MsgBodyTooLarge)
	}
	if !json.Valid(raw) {
		return invalid(MsgMalformedJSON)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return invalid(MsgInvalidBody)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalid(MsgInvalidBody)
	}

	if n, ok := v.(normalizer); ok {
		n.Normalize()
	}

	if err := structValidator.Struct(v); err != nil {
		return fieldError(v, err)
	}

	if c, ok := v.(checker); ok {
		if err := c.Check(); err != nil {
			return err
		}
	}
	return nil
}

// fieldError picks the client message for a validator failure. A missing
// required field wins over format errors; otherwise the first failing field's
// msg tag is used.
func fieldError(v any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			if rq, ok := v.(requirer); ok {
				return invalid(rq.RequiredMessage())
			}
			return invalid(fe.Field() + " required")
		}
	}

	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(verrs[0].StructField()); ok {
		if msg := f.Tag.Get("msg"); msg != "" {
			return invalid(msg)
		}
	}
	return invalid("Invalid " + verrs[0].Field())
}
