package domain

// Envelope is the unit exchanged in both directions over a connection.
// Data is always a JSON object on the wire.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Outbound system envelope types.
const (
	TypeInfo                  = "info"
	TypeAuthorization         = "authorization"
	TypeAuthorizationResponse = "authorization_response"
	TypeNotProvided           = "type_not_provided"
	TypeDataNotProvided       = "data_not_provided"
	TypeNotFound              = "type_not_found"
	TypeMessage               = "message"
)

// ResponseType is the envelope type echoing a successful dispatch of requested.
func ResponseType(requested string) string {
	return requested + "_response"
}

// NewEnvelope builds an envelope, replacing a nil payload by an empty object.
func NewEnvelope(kind string, data any) Envelope {
	if data == nil {
		data = map[string]any{}
	}
	return Envelope{Type: kind, Data: data}
}

// MessageEnvelope builds an envelope whose data is {"message": text}.
func MessageEnvelope(kind, text string) Envelope {
	return NewEnvelope(kind, map[string]any{"message": text})
}
