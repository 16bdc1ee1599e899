package backend

import (
	"bytes"
	"encoding/json"
)

// envelope is the backend response wrapper. Older endpoints send the payload
// under "dados" and the message under "mensagem"; newer ones use "data" and
// "message". A missing status counts as success.
type envelope struct {
	Status   *bool           `json:"status"`
	Dados    json.RawMessage `json:"dados"`
	Data     json.RawMessage `json:"data"`
	Mensagem string          `json:"mensagem"`
	Message  string          `json:"message"`
}

func (e *envelope) ok() bool {
	return e.Status == nil || *e.Status
}

func (e *envelope) payload() json.RawMessage {
	if !isNull(e.Dados) {
		return e.Dados
	}
	return e.Data
}

func (e *envelope) message() string {
	if e.Mensagem != "" {
		return e.Mensagem
	}
	return e.Message
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
