package utils

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notebook-client/pkg/logger"
)

func TestRedactBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"query":"hi","collection":1}`, `{"query":"hi","collection":1}`},
		{"token", `{"token": "abc","query":"hi"}`, `{"token":"[REDACTED]","query":"hi"}`},
		{"api key", `{"api_key":"k"}`, `{"api_key":"[REDACTED]"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactBody([]byte(tt.in)); got != tt.want {
				t.Errorf("RedactBody() = %s, want %s", got, tt.want)
			}
		})
	}

	long := RedactBody([]byte(strings.Repeat("x", maxLoggedBody+10)))
	if !strings.HasSuffix(long, "...(truncated)") {
		t.Error("long body was not truncated")
	}
}

func TestDebugTransportLogsAndPreservesBody(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		received = string(data)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger.Init("debug", "json")
	logger.SetOutput(&buf)
	defer logger.Init("info", "text")

	client := &http.Client{Transport: NewDebugTransport(nil)}
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/query", strings.NewReader(`{"query":"hi","secret":"s"}`))
	req.Header.Set("Authorization", "Bearer x")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if received != `{"query":"hi","secret":"s"}` {
		t.Errorf("server received %q", received)
	}
	out := buf.String()
	if !strings.Contains(out, "backend request") || strings.Contains(out, "Bearer x") || strings.Contains(out, `\"s\"`) {
		t.Errorf("log output = %s", out)
	}
}
