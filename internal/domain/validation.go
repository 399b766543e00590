package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Per-field messages returned to callers, one per invalid field.
var violationMessages = map[string]string{
	"dm_id":         "dm_id must be an integer",
	"notify_check":  "notify_check must be 0 or 1",
	"target_system": "target_system must be 1, 2, or 0",
}

// notifyPayload keeps raw JSON values so that type mismatches are reported as
// violations instead of decode errors.
type notifyPayload struct {
	DmID         any `json:"dm_id" validate:"required,json_int"`
	NotifyCheck  any `json:"notify_check" validate:"required,json_int,oneof=0 1"`
	TargetSystem any `json:"target_system" validate:"required,json_string,oneof=0 1 2"`
}

// RequestValidator checks notify request bodies against the fixed schema.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() (*RequestValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("json_int", isJSONInteger); err != nil {
		return nil, fmt.Errorf("failed to register json_int validation: %w", err)
	}
	if err := v.RegisterValidation("json_string", isJSONString); err != nil {
		return nil, fmt.Errorf("failed to register json_string validation: %w", err)
	}

	return &RequestValidator{validate: v}, nil
}

// Parse validates body and returns the typed request. Every violation found is
// reported in a *ValidationError.
func (rv *RequestValidator) Parse(body []byte) (NotificationRequest, error) {
	// An absent body is an empty object, so every missing field is reported.
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var payload notifyPayload
	if err := decodeJSONObject(body, &payload); err != nil {
		return NotificationRequest{}, &ValidationError{Violations: []Violation{{
			Field:   "body",
			Message: "request body must be a JSON object",
		}}}
	}

	payload.DmID = integralNumber(payload.DmID)
	payload.NotifyCheck = integralNumber(payload.NotifyCheck)

	if err := rv.validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return NotificationRequest{}, fmt.Errorf("failed to validate request: %w", err)
		}
		return NotificationRequest{}, toValidationError(fieldErrs)
	}

	// Tags above guarantee these conversions succeed.
	dmID, _ := payload.DmID.(json.Number).Int64()
	notifyCheck, _ := payload.NotifyCheck.(json.Number).Int64()

	return NotificationRequest{
		DmID:         dmID,
		NotifyCheck:  int(notifyCheck),
		TargetSystem: TargetSystem(payload.TargetSystem.(string)),
	}, nil
}

func decodeJSONObject(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func toValidationError(fieldErrs validator.ValidationErrors) *ValidationError {
	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		msg, ok := violationMessages[field]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", field)
		}
		violations = append(violations, Violation{
			Field:   field,
			Message: msg,
			Value:   fe.Value(),
		})
	}
	return &ValidationError{Violations: violations}
}

// integralNumber rewrites integral JSON numbers such as 1e3 or 1.0 in plain
// integer form. Anything else is returned unchanged.
func integralNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if _, err := n.Int64(); err == nil {
		return v
	}

	f, _, err := big.ParseFloat(n.String(), 10, 256, big.ToNearestEven)
	if err != nil || !f.IsInt() {
		return v
	}
	i, acc := f.Int64()
	if acc != big.Exact {
		return v
	}
	return json.Number(strconv.FormatInt(i, 10))
}

func isJSONInteger(fl validator.FieldLevel) bool {
	n, ok := fl.Field().Interface().(json.Number)
	if !ok {
		return false
	}
	_, err := strconv.ParseInt(n.String(), 10, 64)
	return err == nil
}

func isJSONString(fl validator.FieldLevel) bool {
	_, ok := fl.Field().Interface().(string)
	return ok
}
