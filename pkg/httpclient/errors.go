package httpclient

import (
	"fmt"
	"strings"
)

const maxSnippetLen = 512

// TransportError wraps a failure to get any response (refused connection, timeout).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d body: %s", e.StatusCode, e.Snippet)
}

// CheckStatus returns a *StatusError unless the response status is 2xx.
func CheckStatus(resp Response) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return &StatusError{StatusCode: code, Snippet: responseSnippet(resp.Body())}
	}
	return nil
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
