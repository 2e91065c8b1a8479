// Package gitsync mirrors the org source repository from its git remote.
// The checkout is treated as disposable: sync is clone-or-hard-reset, local
// edits never survive.
package gitsync

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"orgcal/internal/config"
	appLog "orgcal/internal/log"
	"orgcal/internal/model"
)

var logger = appLog.Named("sync")

// Sync brings the local checkout up to date with the remote branch and
// returns a snapshot describing the outcome. It never returns an error:
// failures are reported in the snapshot so the refresh cycle can record
// them and keep serving existing data.
func Sync(ctx context.Context, cfg config.RepoConfig) model.Snapshot {
	snap := model.Snapshot{Timestamp: time.Now().UTC()}

	if cfg.URL == "" {
		snap.Status = model.SnapshotFailure
		snap.Log = "repo url is not configured"
		return snap
	}

	remote := authURL(cfg.URL, cfg.Token)

	var out string
	var err error
	if _, statErr := os.Stat(cfg.Dir); os.IsNotExist(statErr) {
		out, err = run(ctx, "", "git", "clone", "-b", cfg.Branch, remote, cfg.Dir)
	} else {
		out, err = run(ctx, cfg.Dir, "git", "fetch", "origin")
		if err == nil {
			out, err = run(ctx, cfg.Dir, "git", "reset", "--hard", "origin/"+cfg.Branch)
		}
	}
	if err != nil {
		snap.Status = model.SnapshotFailure
		snap.Log = out
		logger.Error("repo sync failed", err, "dir", cfg.Dir, "branch", cfg.Branch)
		return snap
	}

	hash, err := run(ctx, cfg.Dir, "git", "rev-parse", "HEAD")
	if err != nil {
		snap.Status = model.SnapshotFailure
		snap.Log = hash
		logger.Error("rev-parse failed after sync", err, "dir", cfg.Dir)
		return snap
	}

	snap.Status = model.SnapshotSuccess
	snap.CommitHash = strings.TrimSpace(hash)
	snap.Log = out
	logger.Info("repo synced", "commit", snap.CommitHash, "branch", cfg.Branch)
	return snap
}

// run executes a command and returns its combined output. The output is
// returned even on failure so it can be stored in the snapshot log.
func run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// authURL injects an access token into an https remote URL. Non-https
// remotes (ssh etc.) are returned unchanged.
func authURL(remote, token string) string {
	if token == "" || !strings.HasPrefix(remote, "https://") {
		return remote
	}
	u, err := url.Parse(remote)
	if err != nil {
		return remote
	}
	u.User = url.User(token)
	return u.String()
}
