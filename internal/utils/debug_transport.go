package utils

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"notebook-client/pkg/logger"
)

const maxLoggedBody = 2048

var (
	sensitiveHeaders = []string{"Authorization", "X-Api-Key", "X-Auth-Token", "Cookie"}
	sensitiveFields  = regexp.MustCompile(`"(api_key|apiKey|password|secret|token)"\s*:\s*"[^"]*"`)
)

// DebugTransport logs outgoing backend requests when the logger runs at
// debug level. Credentials in headers and JSON bodies are redacted.
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !logger.DebugEnabled() {
		return t.base.RoundTrip(req)
	}

	entry := logger.WithFields(logger.Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": redactHeaders(req.Header),
	})
	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		entry = entry.WithField("body", RedactBody(body))
	}
	entry.Debug("backend request")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		entry.Debugf("backend request failed: %v", err)
		return nil, err
	}
	entry.WithField("status", resp.StatusCode).Debug("backend response")
	return resp, nil
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
		for _, sensitive := range sensitiveHeaders {
			if strings.EqualFold(name, sensitive) {
				out[name] = "[REDACTED]"
				break
			}
		}
	}
	return out
}

// RedactBody masks credential fields of a JSON body and truncates it for
// logging.
func RedactBody(body []byte) string {
	s := sensitiveFields.ReplaceAllString(string(body), `"$1":"[REDACTED]"`)
	if len(s) > maxLoggedBody {
		s = s[:maxLoggedBody] + "...(truncated)"
	}
	return s
}
