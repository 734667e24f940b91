package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/potlab/ecx/internal/conventions"
	"github.com/potlab/ecx/internal/model"
)

// FleetYAMLRepository loads the box fleet configuration from YAML files.
type FleetYAMLRepository struct {
	fs fs.FS
}

// NewFleetYAMLRepository creates a new YAML fleet repository.
func NewFleetYAMLRepository(filesystem fs.FS) *FleetYAMLRepository {
	return &FleetYAMLRepository{fs: filesystem}
}

// GetFleet loads the box fleet from a YAML file and returns validated domain
// models.
func (r *FleetYAMLRepository) GetFleet(ctx context.Context, path string) ([]model.BoxConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var cfg fleetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if len(cfg.Boxes) == 0 {
		return nil, fmt.Errorf("at least one box is required")
	}

	boxes := make([]model.BoxConfig, 0, len(cfg.Boxes))
	seen := map[string]bool{}
	for i, b := range cfg.Boxes {
		box, err := b.toModel()
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}
		if seen[box.ID] {
			return nil, fmt.Errorf("box %d: duplicated box id %q", i, box.ID)
		}
		seen[box.ID] = true
		boxes = append(boxes, box)
	}

	return boxes, nil
}

// fleetConfig represents the YAML structure for the box fleet.
type fleetConfig struct {
	Boxes []boxConfig `yaml:"boxes"`
}

// boxConfig represents the YAML structure for one box connection record.
type boxConfig struct {
	ID              string `yaml:"id"`
	BaseURL         string `yaml:"base_url"`
	APIToken        string `yaml:"api_token"`
	RequestTimeout  string `yaml:"request_timeout"`
	DownloadTimeout string `yaml:"download_timeout"`
}

func (c boxConfig) toModel() (model.BoxConfig, error) {
	box := model.BoxConfig{
		ID:              c.ID,
		BaseURL:         c.BaseURL,
		APIToken:        c.APIToken,
		RequestTimeout:  conventions.DefaultRequestTimeout,
		DownloadTimeout: conventions.DefaultDownloadTimeout,
	}

	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			return model.BoxConfig{}, fmt.Errorf("invalid request_timeout: %w", err)
		}
		box.RequestTimeout = d
	}
	if c.DownloadTimeout != "" {
		d, err := time.ParseDuration(c.DownloadTimeout)
		if err != nil {
			return model.BoxConfig{}, fmt.Errorf("invalid download_timeout: %w", err)
		}
		box.DownloadTimeout = d
	}

	if err := box.Validate(); err != nil {
		return model.BoxConfig{}, fmt.Errorf("invalid box configuration: %w", err)
	}

	return box, nil
}

// BatchYAMLRepository loads measurement batch files from YAML.
type BatchYAMLRepository struct {
	fs fs.FS
}

// NewBatchYAMLRepository creates a new YAML batch repository.
func NewBatchYAMLRepository(filesystem fs.FS) *BatchYAMLRepository {
	return &BatchYAMLRepository{fs: filesystem}
}

// GetBatch loads the entry drafts of a batch file. Entries are returned as
// drafts; normalization happens when the start command is built.
func (r *BatchYAMLRepository) GetBatch(ctx context.Context, path string) ([]model.EntryDraft, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var cfg batchConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if len(cfg.Entries) == 0 {
		return nil, fmt.Errorf("at least one entry is required")
	}

	entries := make([]model.EntryDraft, 0, len(cfg.Entries))
	for _, e := range cfg.Entries {
		entries = append(entries, e.toModel())
	}

	return entries, nil
}

// batchConfig represents the YAML structure for a measurement batch.
type batchConfig struct {
	Entries []entryConfig `yaml:"entries"`
}

// entryConfig represents the YAML structure for one batch entry.
type entryConfig struct {
	Box    string                    `yaml:"box"`
	Slot   string                    `yaml:"slot"`
	Well   string                    `yaml:"well"`
	Modes  []string                  `yaml:"modes"`
	Params map[string]map[string]any `yaml:"params"`
}

func (c entryConfig) toModel() model.EntryDraft {
	return model.EntryDraft{
		BoxID:        c.Box,
		Slot:         c.Slot,
		WellID:       c.Well,
		Modes:        c.Modes,
		ParamsByMode: c.Params,
	}
}
