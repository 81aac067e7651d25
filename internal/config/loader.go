// Package config loads the static, file-declared half of a workspace's
// tool sources (spec.md §4.1 "sources are declared... and loaded").
// Grounded on the teacher's internal/config/loader.go: same
// read-parse-validate-apply shape and the same "file rows are tagged
// and stale file-sourced rows are pruned" upsert strategy, narrowed
// from mcplexer.yaml's downstream_servers/route_rules/workspaces
// schema (none of which this data model has an equivalent entity for)
// to a flat list of store.ToolSource declarations.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/revittco/toolrt/internal/store"
	"gopkg.in/yaml.v3"
)

// FileConfig is the top-level toolrt.yaml structure (spec.md §3
// "ToolSource").
type FileConfig struct {
	Sources []sourceConfig `yaml:"sources"`
}

type sourceConfig struct {
	ID      string         `yaml:"id"`
	Type    string         `yaml:"type"` // openapi|graphql|postman|mcp
	Name    string         `yaml:"name"`
	Enabled *bool          `yaml:"enabled,omitempty"` // nil means true
	Config  map[string]any `yaml:"config"`
}

// LoadFile reads, parses, and validates a YAML config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML config data.
func Parse(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply upserts a workspace's tool sources from config into the store,
// tagged implicitly by appearing in fileIDs; any tool source this
// workspace's store holds that no longer appears in the file is
// deleted (spec.md's file loader has no "orphan" concept of its own,
// so this mirrors the teacher's own prune-on-apply behavior rather
// than leaving stale rows to silently keep serving stale tools).
func Apply(ctx context.Context, s store.Store, cfg *FileConfig) error {
	return s.Tx(ctx, func(tx store.Store) error {
		return applySources(ctx, tx, cfg.Sources)
	})
}

func applySources(ctx context.Context, tx store.Store, items []sourceConfig) error {
	fileIDs := make(map[string]bool, len(items))
	for _, c := range items {
		fileIDs[c.ID] = true
		cfgBytes, err := json.Marshal(c.Config)
		if err != nil {
			return fmt.Errorf("marshal config for source %s: %w", c.ID, err)
		}
		enabled := true
		if c.Enabled != nil {
			enabled = *c.Enabled
		}
		src := &store.ToolSource{
			ID: c.ID, Type: c.Type, Name: c.Name, Enabled: enabled,
			Config: cfgBytes, UpdatedAt: time.Now().UTC(),
		}
		if _, err := tx.GetToolSource(ctx, c.ID); err != nil {
			if err := tx.CreateToolSource(ctx, src); err != nil {
				return fmt.Errorf("create source %s: %w", c.ID, err)
			}
			continue
		}
		if err := tx.UpdateToolSource(ctx, src); err != nil {
			return fmt.Errorf("update source %s: %w", c.ID, err)
		}
	}
	return pruneStaleSources(ctx, tx, fileIDs)
}

func pruneStaleSources(ctx context.Context, tx store.Store, fileIDs map[string]bool) error {
	all, err := tx.ListToolSources(ctx, "")
	if err != nil {
		return fmt.Errorf("list sources for prune: %w", err)
	}
	for _, s := range all {
		if !fileIDs[s.ID] {
			slog.Info("pruning tool source no longer declared in config", "id", s.ID)
			if err := tx.DeleteToolSource(ctx, s.ID); err != nil {
				return fmt.Errorf("delete stale source %s: %w", s.ID, err)
			}
		}
	}
	return nil
}
