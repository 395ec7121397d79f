package domain

import (
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrRateLimited, true},
		{ErrProviderUnavailable, true},
		{fmt.Errorf("status 429: %w", ErrRateLimited), true},
		{ErrProviderRejected, false},
		{ErrNotFound, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
