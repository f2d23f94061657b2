package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// envelope covers the {success, data, message} response shape. Every field is
// optional; some endpoints answer with {data} only or with a bare array.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e envelope) hasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// decodeList unmarshals a list response into out, accepting a bare array,
// {data: [...]} and {success, data: [...]}. A missing or null data field
// decodes as an empty list.
func decodeList(op string, body []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return fmt.Errorf("%s: failed to decode list: %w", op, err)
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	if env.Success != nil && !*env.Success {
		return fmt.Errorf("%s: backend reported failure: %s", op, env.message())
	}
	if !env.hasData() {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: failed to decode list data: %w", op, err)
	}
	return nil
}

// decodeOne unmarshals a single-object response, with or without envelope.
func decodeOne(op string, body []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err == nil {
		if env.Success != nil && !*env.Success {
			return fmt.Errorf("%s: backend reported failure: %s", op, env.message())
		}
		if env.hasData() {
			trimmed = env.Data
		}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%s: failed to decode record: %w", op, err)
	}
	return nil
}

// decodeAck checks a {success, message} acknowledgement.
func decodeAck(op string, body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil
	}
	if env.Success != nil && !*env.Success {
		return fmt.Errorf("%s: backend reported failure: %s", op, env.message())
	}
	return nil
}

// errorMessage extracts a human message from an error response body.
func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.message() != "" {
		return env.message()
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
