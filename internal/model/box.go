package model

import (
	"fmt"
	"time"
)

// BoxConfig is the connection record of one backend box. Each box is an
// independently addressable service with its own credential.
type BoxConfig struct {
	ID      string
	BaseURL string
	// APIToken authenticates every call against this box.
	APIToken string
	// RequestTimeout bounds start/poll/cancel calls.
	RequestTimeout time.Duration
	// DownloadTimeout bounds result archive downloads, which can be much
	// slower than regular calls.
	DownloadTimeout time.Duration
}

// Validate validates the box connection record.
func (c *BoxConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("box id is required: %w", ErrNotValid)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("box base_url is required: %w", ErrNotValid)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("box request timeout must be positive: %w", ErrNotValid)
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("box download timeout must be positive: %w", ErrNotValid)
	}
	return nil
}
