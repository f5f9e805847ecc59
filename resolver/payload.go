package resolver

import (
	"bytes"
	"chat-hub/errors"
	"encoding/json"
	"fmt"
)

// FieldsKey is the optional payload key selecting a subset of projected fields.
const FieldsKey = "fields"

// Payload is the "data" object of an inbound envelope.
type Payload struct {
	raw    json.RawMessage
	fields map[string]json.RawMessage
}

// NewPayload accepts only JSON objects.
func NewPayload(raw json.RawMessage) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Payload{}, fmt.Errorf("%w: data must be an object", errors.ErrEnvelopeMalformed)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", errors.ErrEnvelopeMalformed, err)
	}
	return Payload{raw: trimmed, fields: fields}, nil
}

// EmptyPayload is the payload of an envelope carrying "data": {}.
func EmptyPayload() Payload {
	return Payload{raw: json.RawMessage("{}"), fields: map[string]json.RawMessage{}}
}

func (p Payload) Raw() json.RawMessage {
	return p.raw
}

// Decode unmarshals the payload into v.
func (p Payload) Decode(v any) error {
	raw := p.raw
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.NewValidationError("data", err.Error())
	}
	return nil
}

func (p Payload) Has(key string) bool {
	_, ok := p.fields[key]
	return ok
}

// String returns the value of key when it is a JSON string.
func (p Payload) String(key string) (string, bool) {
	raw, ok := p.fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Fields returns the projection subset requested by the caller, nil for all fields.
func (p Payload) Fields() ([]string, error) {
	raw, ok := p.fields[FieldsKey]
	if !ok {
		return nil, nil
	}
	var fields []string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.NewValidationError(FieldsKey, "must be a list of field names")
	}
	return fields, nil
}
