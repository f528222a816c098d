// Package wire defines the JSON text messages exchanged between editors and
// the relay.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeJoin            = "join"
	TypeProjectSnapshot = "project_snapshot"
	TypeUpdateProject   = "update_project"
	TypeRequestSnapshot = "request_snapshot"
	TypePing            = "ping"
	TypePong            = "pong"
	TypeParticipants    = "participants"
	TypeNoSnapshot      = "no_snapshot"
	TypeError           = "error"
)

// ErrMalformed is returned for text that is not a JSON message object.
var ErrMalformed = errors.New("wire: malformed message")

// Message is the envelope of every relay message. Project is kept raw so the
// relay can store and forward documents it does not interpret.
type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Project   json.RawMessage `json:"project,omitempty"`
	Clients   []string        `json:"clients,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Parse decodes one text message.
func Parse(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

// Encode serializes m.
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", m.Type, err)
	}
	return b, nil
}

// ProjectStamp reads lastUpdatedAt from a raw project without decoding the
// rest of it. ok is false when raw is not a non-empty JSON object; a missing
// or non-numeric stamp reads as zero.
func ProjectStamp(raw json.RawMessage) (ts int64, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return 0, false
	}
	var f float64
	if v, found := fields["lastUpdatedAt"]; found && json.Unmarshal(v, &f) == nil {
		ts = int64(f)
	}
	return ts, true
}

func Join(sessionID, clientID string) Message {
	return Message{Type: TypeJoin, SessionID: sessionID, ClientID: clientID}
}

// Snapshot is a full-document push. The relay sends it without a client id.
func Snapshot(sessionID, clientID string, project json.RawMessage) Message {
	return Message{Type: TypeProjectSnapshot, SessionID: sessionID, ClientID: clientID, Project: project}
}

func Update(sessionID, clientID string, project json.RawMessage) Message {
	return Message{Type: TypeUpdateProject, SessionID: sessionID, ClientID: clientID, Project: project}
}

func RequestSnapshot(sessionID, clientID string) Message {
	return Message{Type: TypeRequestSnapshot, SessionID: sessionID, ClientID: clientID}
}

func Ping(sessionID, clientID string) Message {
	return Message{Type: TypePing, SessionID: sessionID, ClientID: clientID}
}

func Participants(sessionID string, clients []string) Message {
	return Message{Type: TypeParticipants, SessionID: sessionID, Clients: clients}
}

func Error(text string) Message {
	return Message{Type: TypeError, Message: text}
}
