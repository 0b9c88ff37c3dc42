package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxResponseBytes = 1 << 20

// Envelope is the backend's uniform response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Response is a completed call: the HTTP status plus the decoded envelope.
type Response struct {
	StatusCode int
	Envelope
}

// Decode unmarshals the envelope's data payload into out.
func (r *Response) Decode(out any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response has no data payload")
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// APIError is a non-2xx response from the backend. Details carries
// field-level validation messages on 400s.
type APIError struct {
	Status  int                 `json:"-"`
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error: status %d", e.Status)
}

// FirstDetail returns the first message of the first field with validation
// detail, scanning fields in sorted order so the pick is deterministic.
func (e *APIError) FirstDetail() string {
	if len(e.Details) == 0 {
		return ""
	}

	var firstField string
	for field := range e.Details {
		if firstField == "" || field < firstField {
			firstField = field
		}
	}

	messages := e.Details[firstField]
	if len(messages) == 0 {
		return ""
	}
	return messages[0]
}

func decodeResponse(resp *http.Response) (*Response, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode}
	if len(body) > 0 {
		// A non-JSON body (proxy error page, empty 204) is not itself a
		// failure; classification runs off the status code.
		_ = json.Unmarshal(body, &out.Envelope)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return out, nil
	}

	apiErr := out.Envelope.Error
	if apiErr == nil {
		apiErr = &APIError{Message: out.Envelope.Message}
	}
	apiErr.Status = resp.StatusCode
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return out, apiErr
}
