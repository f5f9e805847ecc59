package websocket

import (
	"bytes"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/resolver"
	"context"
	"encoding/json"
)

const (
	messageTypeNotProvided = "type route not provided"
	messageDataNotProvided = "data not provided"
	messageInternal        = "internal error"
	outcomeUnknownType     = "unknown"
)

// dispatch routes one inbound frame and writes at most one response.
// A malformed envelope is reported and not dispatched any further.
// Only transport failures are returned.
func (c *Connection) dispatch(ctx context.Context, frame []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		c.countEnvelope(outcomeUnknownType, "malformed")
		return c.write(domain.MessageEnvelope(domain.TypeNotProvided, messageTypeNotProvided))
	}

	var kind string
	if err := json.Unmarshal(raw["type"], &kind); err != nil || kind == "" {
		c.countEnvelope(outcomeUnknownType, "malformed")
		return c.write(domain.MessageEnvelope(domain.TypeNotProvided, messageTypeNotProvided))
	}
	data, ok := raw["data"]
	if !ok || isNull(data) {
		c.countEnvelope(outcomeUnknownType, "malformed")
		return c.write(domain.MessageEnvelope(domain.TypeDataNotProvided, messageDataNotProvided))
	}
	payload, err := resolver.NewPayload(data)
	if err != nil {
		c.countEnvelope(outcomeUnknownType, "malformed")
		return c.write(domain.MessageEnvelope(domain.TypeDataNotProvided, messageDataNotProvided))
	}

	r, ok := c.resolvers.Lookup(kind)
	if !ok {
		c.countEnvelope(outcomeUnknownType, "not_found")
		return c.write(domain.MessageEnvelope(domain.TypeNotFound, errors.ErrTypeUnknown.Error()))
	}
	if c.state != stateAuthenticated && kind != domain.TypeAuthorization {
		c.countEnvelope(kind, "unauthorized")
		return c.write(domain.NewEnvelope(domain.ResponseType(kind), errorResponse(errors.ErrNotAuthorized)))
	}

	result, err := r.Resolve(ctx, c, payload)
	if err != nil {
		c.countEnvelope(kind, "error")
		c.log.Debug("Resolver failed", "type", kind, "error", err)
		return c.write(domain.NewEnvelope(domain.ResponseType(kind), errorResponse(err)))
	}
	c.countEnvelope(kind, "success")
	if result == nil {
		return nil
	}
	return c.write(domain.NewEnvelope(domain.ResponseType(kind), result))
}

func (c *Connection) countEnvelope(kind, outcome string) {
	c.handler.metrics.EnvelopesTotal.WithLabelValues(kind, outcome).Inc()
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// errorResponse renders a resolver failure as {status:"error", message, errors?}.
func errorResponse(err error) map[string]any {
	response := map[string]any{"status": "error"}

	var validationError *errors.ValidationError
	switch {
	case errors.As(err, &validationError):
		response["message"] = errors.ErrInvalidPayload.Error()
		response["errors"] = validationError.Fields
	case errors.Is(err, errors.ErrNotFound):
		response["message"] = errors.ErrNotFound.Error()
		response["errors"] = map[string]string{"id": errors.ErrNotFound.Error()}
	case errors.Is(err, errors.ErrAuthInvalid):
		response["message"] = errors.ErrAuthInvalid.Error()
	case errors.Is(err, errors.ErrAuthInactive):
		response["message"] = errors.ErrAuthInactive.Error()
	case errors.Is(err, errors.ErrNotAuthorized):
		response["message"] = errors.ErrNotAuthorized.Error()
	case errors.Is(err, errors.ErrAlreadyAuthorized):
		response["message"] = errors.ErrAlreadyAuthorized.Error()
	case errors.Is(err, errors.ErrInvalidPayload):
		response["message"] = errors.ErrInvalidPayload.Error()
	default:
		response["message"] = messageInternal
	}
	return response
}
