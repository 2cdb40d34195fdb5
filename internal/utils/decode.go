package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// DecodeStrict decodes a JSON object into v and rejects keys v does not
// declare. Nothing is applied when any key is unknown.
func DecodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if field, ok := unknownField(err); ok {
			return ValidationError("Invalid updates", FieldErrors{field: {"field cannot be updated"}})
		}
		if errors.Is(err, io.EOF) {
			return ValidationError("Request body is empty", nil)
		}
		return ValidationError("Invalid request body", nil)
	}
	if dec.More() {
		return ValidationError("Invalid request body", nil)
	}
	return nil
}

func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}
