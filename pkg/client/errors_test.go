package client

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{200, ""},
		{400, ErrorClassClient},
		{401, ErrorClassAuth},
		{403, ErrorClassAuth},
		{404, ErrorClassNotFound},
		{409, ErrorClassClient},
		{429, ErrorClassRateLimit},
		{500, ErrorClassServer},
		{502, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := ClassifyStatus(tt.status); got != tt.want {
				t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		want       bool
	}{
		{"rate limit", ErrorClassRateLimit, true},
		{"server", ErrorClassServer, true},
		{"network", ErrorClassNetwork, true},
		{"auth", ErrorClassAuth, false},
		{"not found", ErrorClassNotFound, false},
		{"client", ErrorClassClient, false},
		{"unclassified", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass); got != tt.want {
				t.Errorf("shouldRetry(%q) = %v, want %v", tt.errorClass, got, tt.want)
			}
		})
	}
}

func TestNotionError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *NotionError
		want []string
	}{
		{
			name: "api error",
			err:  &NotionError{StatusCode: 404, Class: ErrorClassNotFound, Code: "object_not_found", Message: "Could not find page"},
			want: []string{"not_found", "404", "object_not_found", "Could not find page"},
		},
		{
			name: "network error",
			err:  &NotionError{Class: ErrorClassNetwork, Message: "request failed", Err: errors.New("connection refused")},
			want: []string{"network", "request failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, part := range tt.want {
				if !strings.Contains(msg, part) {
					t.Errorf("Error() = %q, missing %q", msg, part)
				}
			}
		})
	}
}

func TestNotionError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("query: %w", &NotionError{Class: ErrorClassNetwork, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the transport cause")
	}
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf() = %q, want network", ClassOf(err))
	}
	if !IsRetryable(err) {
		t.Error("wrapped network error should be retryable")
	}
}

func TestClassHelpers(t *testing.T) {
	auth := &NotionError{StatusCode: 401, Class: ErrorClassAuth}
	missing := &NotionError{StatusCode: 404, Class: ErrorClassNotFound}
	plain := errors.New("boom")

	if !IsAuth(auth) || IsAuth(missing) || IsAuth(plain) {
		t.Error("IsAuth misclassified")
	}
	if !IsNotFound(missing) || IsNotFound(auth) || IsNotFound(plain) {
		t.Error("IsNotFound misclassified")
	}
	if IsRetryable(plain) {
		t.Error("unclassified errors must not be retried")
	}
	if ClassOf(plain) != "" {
		t.Errorf("ClassOf(plain) = %q, want empty", ClassOf(plain))
	}
}

func TestRetryAfterOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &NotionError{Class: ErrorClassRateLimit, RetryAfter: 2 * time.Second})
	if got := retryAfterOf(err); got != 2*time.Second {
		t.Errorf("retryAfterOf() = %v, want 2s", got)
	}
	if got := retryAfterOf(errors.New("x")); got != 0 {
		t.Errorf("retryAfterOf(plain) = %v, want 0", got)
	}
}
