// Package app wires the catalog services into the Telegram runtime.
package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/catalogbot/core/config"
	coredatabase "github.com/m3rciful/catalogbot/core/database"
	"github.com/m3rciful/catalogbot/internal/transfer"
)

// UploadsConfig controls where received documents are staged.
type UploadsConfig struct {
	Dir string `yaml:"dir" envconfig:"UPLOADS_DIR"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Backup   transfer.Config     `yaml:"backup"`
	Uploads  UploadsConfig       `yaml:"uploads"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// LoadConfig reads path and the environment and validates every section.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.ReadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults and validates.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if len(c.Telegram.OwnerIDs) == 0 {
		return fmt.Errorf("telegram.owner_ids (ADMIN_IDS) must list at least one owner")
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	if err := c.Backup.Normalize(); err != nil {
		return err
	}
	c.Uploads.Dir = strings.TrimSpace(c.Uploads.Dir)
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	return nil
}
