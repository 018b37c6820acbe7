package gateway

import (
	"bytes"
	"encoding/json"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
)

// envelope is the optional wrapper some endpoints put around their payload:
// {"success": true, "data": {...}}. Endpoints that skip it answer flat.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// unwrap returns the payload of a successful response body. The nested shape
// is tried first, then the flat one. Anything that is not a JSON object is a
// format error, and an explicit success=false is a request error.
func unwrap(status int, body []byte) (json.RawMessage, error) {
	if isArray(body) && json.Valid(body) {
		return json.RawMessage(body), nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperror.Format(status, "invalid JSON response from server")
	}

	if env.Success != nil && !*env.Success {
		msg := env.text()
		if msg == "" {
			msg = "request rejected by server"
		}
		return nil, apperror.Request(status, env.Code, msg)
	}

	if env.Success != nil && len(env.Data) > 0 && !isNull(env.Data) {
		return env.Data, nil
	}
	return json.RawMessage(body), nil
}

// field extracts key from an object payload. ok is false when the payload is
// not an object or the key is absent or null.
func field(payload json.RawMessage, key string) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// errorBody pulls the message and code out of a failed response, whichever
// shape it has. Undecodable bodies yield empty strings.
func errorBody(body []byte) (msg, code string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", ""
	}
	msg, code = env.text(), env.Code
	if msg == "" && len(env.Data) > 0 {
		var inner envelope
		if json.Unmarshal(env.Data, &inner) == nil {
			msg = inner.text()
			if code == "" {
				code = inner.Code
			}
		}
	}
	return msg, code
}
