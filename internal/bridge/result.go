package bridge

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind discriminates a decoded host reply.
type Kind int

const (
	// KindOK is a domain value.
	KindOK Kind = iota
	// KindAuthRequired is an error reply carrying AuthRequiredMessage.
	KindAuthRequired
	// KindError is any other error reply.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindAuthRequired:
		return "auth_required"
	case KindError:
		return "error"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Result is a host reply decoded at the bridge boundary.
type Result struct {
	Kind    Kind
	Value   json.RawMessage // set for KindOK, unchanged from the wire
	Message string          // set for KindAuthRequired and KindError
}

// Err reports whether r is an error reply.
func (r Result) Err() bool {
	return r.Kind != KindOK
}

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

// Decode classifies raw. Only a top-level object with a truthy "error" field
// is an error reply; arrays, scalars and null pass through as values.
func Decode(raw json.RawMessage) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Result{Kind: KindOK, Value: raw}
	}

	var env errorEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Result{Kind: KindOK, Value: raw}
	}

	msg, ok := truthyMessage(env.Error)
	if !ok {
		return Result{Kind: KindOK, Value: raw}
	}
	if msg == AuthRequiredMessage {
		return Result{Kind: KindAuthRequired, Message: msg}
	}
	return Result{Kind: KindError, Message: msg}
}

// truthyMessage follows the host's notion of a set error field: empty strings,
// false, zero and null are unset.
func truthyMessage(field json.RawMessage) (string, bool) {
	field = bytes.TrimSpace(field)
	if len(field) == 0 {
		return "", false
	}

	switch field[0] {
	case '"':
		var s string
		if err := json.Unmarshal(field, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case 'n', 'f':
		return "", false
	case 't':
		return "true", true
	case '{', '[':
		return string(field), true
	default:
		n, err := strconv.ParseFloat(string(field), 64)
		if err != nil || n == 0 {
			return "", false
		}
		return string(field), true
	}
}
