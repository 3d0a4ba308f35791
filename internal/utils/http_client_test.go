package utils

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClientHeaderTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"bounded", 30 * time.Second},
		{"stream without limit", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewHTTPClient(tt.timeout)
			transport, ok := c.Transport.(*DebugTransport).base.(*http.Transport)
			if !ok {
				t.Fatalf("unexpected transport %T", c.Transport)
			}
			if transport.ResponseHeaderTimeout != tt.timeout {
				t.Errorf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, tt.timeout)
			}
			if c.Timeout != tt.timeout {
				t.Errorf("Timeout = %v, want %v", c.Timeout, tt.timeout)
			}
		})
	}
}
