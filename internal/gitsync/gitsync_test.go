package gitsync

import (
	"context"
	"testing"

	"orgcal/internal/config"
	"orgcal/internal/model"
)

func TestAuthURL(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		token  string
		want   string
	}{
		{"no token", "https://example.com/org.git", "", "https://example.com/org.git"},
		{"https with token", "https://example.com/org.git", "tok", "https://tok@example.com/org.git"},
		{"ssh untouched", "git@example.com:me/org.git", "tok", "git@example.com:me/org.git"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authURL(tt.remote, tt.token); got != tt.want {
				t.Errorf("authURL(%q, %q) = %q, want %q", tt.remote, tt.token, got, tt.want)
			}
		})
	}
}

func TestSyncWithoutURL(t *testing.T) {
	snap := Sync(context.Background(), config.RepoConfig{})
	if snap.Status != model.SnapshotFailure {
		t.Errorf("status = %q, want failure", snap.Status)
	}
	if snap.Log == "" {
		t.Error("failure snapshot should carry a log message")
	}
	if snap.Timestamp.IsZero() {
		t.Error("snapshot timestamp should be set")
	}
}
