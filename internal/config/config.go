package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"martbuild/internal/common"
	"martbuild/pkg/models"
)

func GetConfigPath() string {
	// Check for environment variable first
	if configPath := os.Getenv("MARTBUILD_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".martbuild")
}

func GetConfigFile() string {
	// Check for environment variable first
	if configFile := os.Getenv("MARTBUILD_CONFIG"); configFile != "" {
		// Validate the path to prevent directory traversal
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			// Fall back to default if invalid
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

func Load() (*models.Config, error) {
	configFile := GetConfigFile()

	cleanedPath, err := common.CleanPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// A missing config file is fine: every option has a default
	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		cfg := &models.Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&config)
	return &config, nil
}

func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := GetConfigFile()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// ApplyDefaults fills in every unset pipeline option. The defaults mirror the
// original models: a 730-day date window, Sat/Sun weekends, a holiday season
// of December plus November 24th onward, CVSS v3 tier thresholds and a -1
// sentinel key.
func ApplyDefaults(cfg *models.Config) {
	p := &cfg.Pipeline

	if p.DuplicatePolicy == "" {
		p.DuplicatePolicy = "error"
	}
	if p.SentinelKey == 0 {
		p.SentinelKey = -1
	}
	if p.KeyHash == "" {
		p.KeyHash = "fnv1a-64"
	}

	d := &p.DateDimension
	if d.StartDate == "" {
		d.StartDate = "2025-01-01"
	}
	if d.Days == 0 {
		d.Days = 730
	}
	if len(d.WeekendDays) == 0 {
		d.WeekendDays = []string{"Saturday", "Sunday"}
	}
	if len(d.HolidaySeason.FullMonths) == 0 && d.HolidaySeason.PartialMonth == 0 {
		d.HolidaySeason = models.HolidaySeason{
			FullMonths:   []int{12},
			PartialMonth: 11,
			FromDay:      24,
		}
	}

	if len(p.SeverityTiers) == 0 {
		p.SeverityTiers = []models.SeverityTier{
			{Name: "CRITICAL", MinScore: 9.0},
			{Name: "HIGH", MinScore: 7.0},
			{Name: "MEDIUM", MinScore: 4.0},
			{Name: "LOW", MinScore: 0.0},
		}
	}

	g := &cfg.Generator
	if g.Seed == 0 {
		g.Seed = 42
	}
	if g.Products == 0 {
		g.Products = 1000
	}
	if g.Stores == 0 {
		g.Stores = 50
	}
	if g.Vendors == 0 {
		g.Vendors = 20
	}
	if g.StartDate == "" {
		g.StartDate = d.StartDate
	}
	if g.Days == 0 {
		g.Days = d.Days
	}
	if g.OutputDir == "" {
		g.OutputDir = "data/raw"
	}

	e := &cfg.Extractor
	if e.Days == 0 {
		e.Days = 365
	}
	if e.OutputDir == "" {
		e.OutputDir = "data/raw"
	}

	if cfg.ModelsRepo.Branch == "" {
		cfg.ModelsRepo.Branch = "main"
	}
}
