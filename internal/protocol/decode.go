package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode unmarshals payload into T and validates it with its `validate` tags.
// Every failure is reported as InvalidPayload.
func Decode[T any](payload json.RawMessage) (T, error) {
	var v T
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return v, Invalid(ErrMissingPayload)
	}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return v, Invalid(err)
	}
	if err := validate.Struct(v); err != nil {
		return v, Invalid(err)
	}
	return v, nil
}
