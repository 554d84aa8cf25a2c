package apiclient

import (
	"bytes"
	"encoding/json"
)

// envelope {status, data} wrapper used by every platform endpoint
type envelope struct {
	Status  interface{}     `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// unwrap returns the payload of a response body. Some endpoints nest the
// payload twice ({data: {data: ...}}), the inner one wins when present, null
// included. An inner object carrying its own _id or id is a record with a data
// field, not an envelope. Bodies without an envelope are returned as they are.
func unwrap(body []byte) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] != '{' {
		return body, nil
	}

	var outer envelope
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, err
	}
	if outer.Data == nil {
		return body, nil
	}

	data := bytes.TrimSpace(outer.Data)
	if len(data) > 0 && data[0] == '{' {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err == nil && isEnvelope(inner) {
			return bytes.TrimSpace(inner["data"]), nil
		}
	}
	return data, nil
}

// errorMessage best effort extraction of an error description from a failed response
func errorMessage(body []byte) string {
	var e envelope
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	var detail struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Error != "" {
			return detail.Error
		}
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return string(bytes.TrimSpace(body))
}

func isEnvelope(obj map[string]json.RawMessage) bool {
	if _, ok := obj["data"]; !ok {
		return false
	}
	_, hasID := obj["id"]
	_, hasObjectID := obj["_id"]
	return !hasID && !hasObjectID
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
