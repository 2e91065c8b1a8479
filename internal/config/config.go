package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the admin endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// RepoConfig describes the git repository holding the org files and the
// views definition.
type RepoConfig struct {
	// URL is the clone URL. https URLs may have Token injected for auth.
	URL string `yaml:"url" json:"url"`
	// Branch is the branch to track (default "main").
	Branch string `yaml:"branch" json:"branch"`
	// Dir is the local checkout directory.
	Dir string `yaml:"dir" json:"dir"`
	// Token is an optional access token for https remotes. Never logged.
	Token string `yaml:"token,omitempty" json:"-"`
}

// RateLimitConfig holds per-IP request budgets, in requests per minute.
type RateLimitConfig struct {
	// Feed applies to /calendar/* endpoints.
	Feed int `yaml:"feed" json:"feed"`
	// Admin applies to mutating /admin/* endpoints.
	Admin int `yaml:"admin" json:"admin"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone wall-clock times are interpreted in
	// (e.g. "Europe/Berlin"). One zone for the whole process.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Database is the SQLite database path.
	Database string `yaml:"database" json:"database"`

	// Repo is the org source repository.
	Repo RepoConfig `yaml:"repo" json:"repo"`

	// OrgFiles are the org files to extract, relative to Repo.Dir unless
	// absolute.
	OrgFiles []string `yaml:"org_files" json:"org_files"`

	// ViewsFile is the s-expression views definition, relative to Repo.Dir
	// unless absolute.
	ViewsFile string `yaml:"views_file" json:"views_file"`

	// SyncCron is a cron-style schedule for the sync/import/rebuild cycle
	// (e.g. "@every 300s" or "*/5 * * * *").
	SyncCron string `yaml:"sync" json:"sync"`

	// ExtractCommand is the external extraction command run per org file.
	// The file path is appended as the final argument. The command must
	// print a JSON array of records on stdout.
	ExtractCommand []string `yaml:"extract_command" json:"extract_command"`

	// BasicAuth, if non-nil, guards all /admin endpoints.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// RateLimit holds per-IP request budgets.
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "UTC",
		Database: "/var/lib/orgcal/orgcal.db",
		Repo: RepoConfig{
			Branch: "main",
			Dir:    "/var/lib/orgcal/repo",
		},
		OrgFiles:  []string{},
		ViewsFile: "views.el",
		SyncCron:  "@every 300s",
		ExtractCommand: []string{
			"emacs", "--batch", "-l", "/usr/share/orgcal/org-to-json.el",
			"-f", "orgcal/extract-tasks",
		},
		RateLimit: RateLimitConfig{Feed: 30, Admin: 2},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Repo.Branch == "" {
		c.Repo.Branch = def.Repo.Branch
	}
	if c.Repo.Dir == "" {
		c.Repo.Dir = def.Repo.Dir
	}
	if c.OrgFiles == nil {
		c.OrgFiles = []string{}
	}
	if c.ViewsFile == "" {
		c.ViewsFile = def.ViewsFile
	}
	if c.SyncCron == "" {
		c.SyncCron = def.SyncCron
	}
	if len(c.ExtractCommand) == 0 {
		c.ExtractCommand = def.ExtractCommand
	}
	if c.RateLimit.Feed <= 0 {
		c.RateLimit.Feed = def.RateLimit.Feed
	}
	if c.RateLimit.Admin <= 0 {
		c.RateLimit.Admin = def.RateLimit.Admin
	}
}

// ViewsPath returns the absolute path of the views file.
func (c *Config) ViewsPath() string {
	return c.resolve(c.ViewsFile)
}

// OrgPaths returns the absolute paths of the configured org files.
func (c *Config) OrgPaths() []string {
	out := make([]string, 0, len(c.OrgFiles))
	for _, f := range c.OrgFiles {
		out = append(out, c.resolve(f))
	}
	return out
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Repo.Dir, p)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write a
//     default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The parent directory is created (0700), the file is written atomically via
// a temp file + rename, and final permissions are 0600 since the config can
// carry credentials.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".orgcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up the temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
