package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

var (
	ErrRepoPathNotSet         = errors.New("repository path is not configured")
	ErrRepoPathNotFound       = errors.New("repository path does not exist")
	ErrRepoInvalidStructure   = errors.New("repository structure is invalid")
	ErrGitUserNotConfigured   = errors.New("git user is not configured: set user.name and user.email in ~/.gitconfig or nattka config")
	ErrInvalidMalformedPolicy = errors.New("malformed_policy must be \"failed\" or \"unknown\"")
	ErrInvalidDuration        = errors.New("invalid duration")
)

const (
	// DefaultBugzillaURL is the tracker used when none is configured
	DefaultBugzillaURL = "https://bugs.gentoo.org"
	// DefaultBugzillaTimeout bounds a single tracker request
	DefaultBugzillaTimeout = 30 * time.Second
	// DefaultCacheTTL is how long a cached check outcome stays valid
	DefaultCacheTTL = time.Hour
	// DefaultJobs is the number of bugs processed concurrently
	DefaultJobs = 1

	PolicyFailed  = "failed"
	PolicyUnknown = "unknown"
)

// Config represents the application configuration
type Config struct {
	Repository RepositoryConfig `yaml:"repository"`
	Bugzilla   BugzillaConfig   `yaml:"bugzilla"`
	Process    ProcessConfig    `yaml:"process"`
	Git        GitConfig        `yaml:"git"`
}

// RepositoryConfig holds the ebuild repository location
type RepositoryConfig struct {
	Path string `yaml:"path"`
}

// BugzillaConfig holds tracker settings
type BugzillaConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"` // may reference env vars, e.g. ${BUGZILLA_KEY}
	Timeout string `yaml:"timeout"` // Go duration, e.g. "30s"
}

// ProcessConfig holds process-bugs settings
type ProcessConfig struct {
	Jobs            int    `yaml:"jobs"`
	MalformedPolicy string `yaml:"malformed_policy"` // "failed" or "unknown"
	CacheFile       string `yaml:"cache_file"`
	CacheTTL        string `yaml:"cache_ttl"` // Go duration, e.g. "1h"
}

// GitConfig holds git user settings
type GitConfig struct {
	User  string `yaml:"user"`
	Email string `yaml:"email"`
}

// envOverrides lists the environment variables that take precedence over
// the config file
type envOverrides struct {
	RepoPath    string `env:"NATTKA_REPO"`
	BugzillaURL string `env:"NATTKA_BUGZILLA_URL"`
	APIKey      string `env:"NATTKA_API_KEY"`
	Jobs        int    `env:"NATTKA_JOBS"`
}

// ConfigPaths returns all possible config file paths in priority order
// 1. ~/.config/nattka/config.yaml (XDG standard - priority)
// 2. ~/.nattka/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "nattka", "config.yaml"),
		filepath.Join(home, ".nattka", "config.yaml"),
	}, nil
}

// DefaultConfigPath returns the default config file path (XDG standard)
func DefaultConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return paths[0], nil
}

// DefaultCacheFile returns $XDG_CACHE_HOME/nattka/cache.json
func DefaultCacheFile() (string, error) {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "nattka", "cache.json"), nil
}

// defaultConfig returns the configuration written on first load
func defaultConfig() *Config {
	return &Config{
		Bugzilla: BugzillaConfig{
			URL:     DefaultBugzillaURL,
			Timeout: DefaultBugzillaTimeout.String(),
		},
		Process: ProcessConfig{
			Jobs:            DefaultJobs,
			MalformedPolicy: PolicyFailed,
			CacheTTL:        DefaultCacheTTL.String(),
		},
	}
}

// Load reads configuration from the first available config file
// Priority: ~/.config/nattka/config.yaml > ~/.nattka/config.yaml
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes configuration to the default config file
func (c *Config) Save() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// The file may carry an API key
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides config values with NATTKA_* environment variables.
func (c *Config) ApplyEnv(ctx context.Context) error {
	return c.applyEnvFrom(ctx, envconfig.OsLookuper())
}

func (c *Config) applyEnvFrom(ctx context.Context, lookuper envconfig.Lookuper) error {
	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if env.RepoPath != "" {
		c.Repository.Path = env.RepoPath
	}
	if env.BugzillaURL != "" {
		c.Bugzilla.URL = env.BugzillaURL
	}
	if env.APIKey != "" {
		c.Bugzilla.APIKey = env.APIKey
	}
	if env.Jobs > 0 {
		c.Process.Jobs = env.Jobs
	}
	return nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error
	switch c.Process.MalformedPolicy {
	case "", PolicyFailed, PolicyUnknown:
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidMalformedPolicy, c.Process.MalformedPolicy))
	}
	if _, err := c.Bugzilla.GetTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Process.GetCacheTTL(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GetURL returns the tracker URL, or the default when unset
func (b BugzillaConfig) GetURL() string {
	if b.URL == "" {
		return DefaultBugzillaURL
	}
	return strings.TrimRight(b.URL, "/")
}

// GetTimeout returns the configured request timeout or the default
func (b BugzillaConfig) GetTimeout() (time.Duration, error) {
	return parseDuration("bugzilla.timeout", b.Timeout, DefaultBugzillaTimeout)
}

// GetJobs returns the configured concurrency, at least 1
func (p ProcessConfig) GetJobs() int {
	if p.Jobs <= 0 {
		return DefaultJobs
	}
	return p.Jobs
}

// GetMalformedPolicy returns the policy for malformed package lists
func (p ProcessConfig) GetMalformedPolicy() string {
	if p.MalformedPolicy == "" {
		return PolicyFailed
	}
	return p.MalformedPolicy
}

// GetCacheTTL returns the configured cache TTL or the default
func (p ProcessConfig) GetCacheTTL() (time.Duration, error) {
	return parseDuration("process.cache_ttl", p.CacheTTL, DefaultCacheTTL)
}

// GetCacheFile returns the configured cache file or the XDG default
func (p ProcessConfig) GetCacheFile() (string, error) {
	if p.CacheFile != "" {
		return expandHome(p.CacheFile)
	}
	return DefaultCacheFile()
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w for %s: %q", ErrInvalidDuration, field, value)
	}
	return d, nil
}

// expandHome replaces a leading ~ with the user's home directory
func expandHome(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// GetRepositoryPath returns the validated repository path
func (c *Config) GetRepositoryPath() (string, error) {
	if c.Repository.Path == "" {
		return "", ErrRepoPathNotSet
	}

	path, err := expandHome(c.Repository.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrRepoPathNotFound
		}
		return "", err
	}

	if !info.IsDir() {
		return "", ErrRepoPathNotFound
	}

	result := ValidateRepoStructure(path)
	if !result.Valid {
		return "", &RepoValidationError{
			Path:   path,
			Errors: result.Errors,
		}
	}

	return path, nil
}

// GetGitUser returns the git user name and email.
// It first tries to read from ~/.gitconfig, then falls back to nattka config.
func (c *Config) GetGitUser() (user, email string, err error) {
	gitconfigPath, err := defaultGitconfigPath()
	if err == nil {
		user, email, err = parseGitconfig(gitconfigPath)
		if err == nil && user != "" && email != "" {
			return user, email, nil
		}
	}

	if c.Git.User != "" && c.Git.Email != "" {
		return c.Git.User, c.Git.Email, nil
	}

	return "", "", ErrGitUserNotConfigured
}

// defaultGitconfigPath returns the default gitconfig file path
func defaultGitconfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gitconfig"), nil
}

// parseGitconfig reads user.name and user.email from a gitconfig file.
// The gitconfig file uses INI format.
func parseGitconfig(path string) (user, email string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	return ParseGitconfigContent(file)
}

// ParseGitconfigContent parses gitconfig content from an io.Reader.
func ParseGitconfigContent(r interface{ Read([]byte) (int, error) }) (user, email string, err error) {
	scanner := bufio.NewScanner(r)
	inUserSection := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.ToLower(strings.Trim(line, "[]"))
			inUserSection = section == "user"
			continue
		}

		if inUserSection {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(strings.ToLower(parts[0]))
			value := strings.TrimSpace(parts[1])

			switch key {
			case "name":
				user = value
			case "email":
				email = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", err
	}

	return user, email, nil
}

// RepoValidationResult contains repository validation results
type RepoValidationResult struct {
	Valid  bool     // True if repository structure is valid
	Errors []string // Critical issues that prevent operation
}

// RepoValidationError represents a repository validation failure
type RepoValidationError struct {
	Path   string
	Errors []string
}

func (e *RepoValidationError) Error() string {
	msg := "repository validation failed for " + e.Path + ":"
	for _, err := range e.Errors {
		msg += "\n  - " + err
	}
	msg += "\n\nSuggestion: check repository.path in the config or pass --repo"
	return msg
}

// Is makes errors.Is(err, ErrRepoInvalidStructure) match.
func (e *RepoValidationError) Is(target error) bool {
	return target == ErrRepoInvalidStructure
}

// ValidateRepoStructure checks if a path is an ebuild repository.
// A valid repository must have:
// - profiles/ directory
// - metadata/ directory
func ValidateRepoStructure(path string) *RepoValidationResult {
	result := &RepoValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	if _, err := os.Stat(filepath.Join(path, "profiles")); os.IsNotExist(err) {
		result.Valid = false
		result.Errors = append(result.Errors, "missing profiles/ directory")
	}

	if _, err := os.Stat(filepath.Join(path, "metadata")); os.IsNotExist(err) {
		result.Valid = false
		result.Errors = append(result.Errors, "missing metadata/ directory")
	}

	return result
}
