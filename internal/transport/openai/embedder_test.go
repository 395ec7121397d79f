package openai

import (
	"errors"
	"net"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/vecsync/internal/domain"
)

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"rate limited",
			&openai.APIError{HTTPStatusCode: 429},
			domain.ErrRateLimited,
		},
		{
			"server error",
			&openai.APIError{HTTPStatusCode: 500},
			domain.ErrProviderUnavailable,
		},
		{
			"bad gateway",
			&openai.APIError{HTTPStatusCode: 502},
			domain.ErrProviderUnavailable,
		},
		{
			"bad request",
			&openai.APIError{HTTPStatusCode: 400},
			domain.ErrProviderRejected,
		},
		{
			"unauthorized",
			&openai.APIError{HTTPStatusCode: 401},
			domain.ErrProviderRejected,
		},
		{
			"request error rate limited",
			&openai.RequestError{HTTPStatusCode: 429},
			domain.ErrRateLimited,
		},
		{
			"network failure",
			&net.OpError{Op: "dial", Err: errors.New("connection refused")},
			domain.ErrProviderUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyAPIError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassificationDrivesRetryability(t *testing.T) {
	transient := classifyAPIError(&openai.APIError{HTTPStatusCode: 503})
	if !domain.IsTransient(transient) {
		t.Errorf("5xx should be transient: %v", transient)
	}
	permanent := classifyAPIError(&openai.APIError{HTTPStatusCode: 422})
	if domain.IsTransient(permanent) {
		t.Errorf("4xx should be permanent: %v", permanent)
	}
}

func TestModel(t *testing.T) {
	e := NewEmbedder(&Config{APIKey: "sk-test", Model: "text-embedding-3-small"})
	if got := e.Model(); got != "text-embedding-3-small" {
		t.Errorf("Model() = %q", got)
	}
}
