package session

import (
	"encoding/json"
	"io"
)

// Envelope is the backend response wrapper `{success, message, data}`. Every
// gateway operation decodes through this one type; call sites never inspect
// raw payloads.
type Envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Rejected reports whether the envelope carries an explicit failure. A
// missing success flag counts as success, matching the backend's behavior of
// only setting it to false on errors.
func (e *Envelope) Rejected() bool {
	if e == nil {
		return true
	}
	return e.Success != nil && !*e.Success
}

// DecodeData unmarshals the data payload into v.
func (e *Envelope) DecodeData(v any) error {
	if e == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

func decodeEnvelope(r io.Reader) (*Envelope, error) {
	env := &Envelope{}
	if err := json.NewDecoder(r).Decode(env); err != nil {
		return nil, err
	}
	return env, nil
}
