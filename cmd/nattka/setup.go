package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/obentoo/nattka/internal/common/bugzilla"
	"github.com/obentoo/nattka/internal/common/config"
	"github.com/obentoo/nattka/internal/processor"
	"github.com/obentoo/nattka/internal/repository"
)

// environment is what every bug command works against
type environment struct {
	cfg     *config.Config
	repo    *repository.Repository
	tracker *bugzilla.Client
	policy  processor.MalformedPolicy
}

// loadConfig reads the config file, then applies NATTKA_* variables and
// command-line overrides, in that order
func loadConfig(ctx context.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.ApplyEnv(ctx); err != nil {
		return nil, err
	}
	if repoPath != "" {
		cfg.Repository.Path = repoPath
	}
	if bugzillaURL != "" {
		cfg.Bugzilla.URL = bugzillaURL
	}
	if apiKey != "" {
		cfg.Bugzilla.APIKey = apiKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openRepository opens the configured repository
func openRepository(cfg *config.Config) (*repository.Repository, error) {
	path, err := cfg.GetRepositoryPath()
	if err != nil {
		return nil, err
	}
	return repository.Open(path)
}

func setup(ctx context.Context) (*environment, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := processor.ParseMalformedPolicy(cfg.Process.GetMalformedPolicy())
	if err != nil {
		return nil, err
	}

	// Validate has already rejected a bad timeout
	timeout, _ := cfg.Bugzilla.GetTimeout()
	tracker := bugzilla.NewClient(cfg.Bugzilla.GetURL(),
		bugzilla.WithTimeout(timeout),
		bugzilla.WithAPIKey(cfg.Bugzilla.APIKey),
	)

	return &environment{cfg: cfg, repo: repo, tracker: tracker, policy: policy}, nil
}

// parseBugIDs converts bug number arguments, dropping repeats
func parseBugIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	seen := make(map[int]bool, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid bug number %q", arg)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
