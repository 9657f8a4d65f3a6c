// Package config loads the threshold file that tunes the diagnostic
// checks. All fields are optional pointers so a partial JSON file only
// overrides what it names; the Get* methods supply the defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Thresholds is the root threshold configuration. The schema is flat so the
// same file can tune any combination of checks.
type Thresholds struct {
	// Observing-conditions params
	SkyTolerance    *float64 `json:"sky_tolerance,omitempty"`    // mag/arcsec^2
	SeeingTolerance *float64 `json:"seeing_tolerance,omitempty"` // arcsec

	// Raw-values params
	SaturationThreshold *float64 `json:"saturation_threshold,omitempty"` // ADU
	AllowedSaturated    *int     `json:"allowed_saturated_pixels,omitempty"`

	// Sky-noise params
	KSProbLimit   *float64 `json:"ks_pvalue_limit,omitempty"`
	MeanSigLimit  *float64 `json:"mean_sig_limit,omitempty"`
	StdevSigLimit *float64 `json:"stdev_sig_limit,omitempty"`

	// Loader params
	Workers *int `json:"workers,omitempty"`
}

// EmptyThresholds returns a Thresholds with every field unset, i.e. all
// defaults.
func EmptyThresholds() *Thresholds {
	return &Thresholds{}
}

// LoadThresholds reads a threshold file. Fields omitted from the JSON keep
// their defaults, so partial configs are safe.
func LoadThresholds(path string) (*Thresholds, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("threshold file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat threshold file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("threshold file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read threshold file: %w", err)
	}

	cfg := EmptyThresholds()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse threshold JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *Thresholds) Validate() error {
	if c.SkyTolerance != nil && *c.SkyTolerance < 0 {
		return fmt.Errorf("sky_tolerance must be non-negative, got %f", *c.SkyTolerance)
	}
	if c.SeeingTolerance != nil && *c.SeeingTolerance < 0 {
		return fmt.Errorf("seeing_tolerance must be non-negative, got %f", *c.SeeingTolerance)
	}
	if c.SaturationThreshold != nil && *c.SaturationThreshold <= 0 {
		return fmt.Errorf("saturation_threshold must be positive, got %f", *c.SaturationThreshold)
	}
	if c.AllowedSaturated != nil && *c.AllowedSaturated < 0 {
		return fmt.Errorf("allowed_saturated_pixels must be non-negative, got %d", *c.AllowedSaturated)
	}
	if c.KSProbLimit != nil && (*c.KSProbLimit <= 0 || *c.KSProbLimit > 1) {
		return fmt.Errorf("ks_pvalue_limit must be in (0, 1], got %f", *c.KSProbLimit)
	}
	if c.MeanSigLimit != nil && *c.MeanSigLimit <= 0 {
		return fmt.Errorf("mean_sig_limit must be positive, got %f", *c.MeanSigLimit)
	}
	if c.StdevSigLimit != nil && *c.StdevSigLimit <= 0 {
		return fmt.Errorf("stdev_sig_limit must be positive, got %f", *c.StdevSigLimit)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetSkyTolerance returns the sky_tolerance value or the default.
func (c *Thresholds) GetSkyTolerance() float64 {
	if c.SkyTolerance == nil {
		return 0 // strict comparison
	}
	return *c.SkyTolerance
}

// GetSeeingTolerance returns the seeing_tolerance value or the default.
func (c *Thresholds) GetSeeingTolerance() float64 {
	if c.SeeingTolerance == nil {
		return 0 // strict comparison
	}
	return *c.SeeingTolerance
}

// GetSaturationThreshold returns the saturation_threshold value or the default.
func (c *Thresholds) GetSaturationThreshold() float64 {
	if c.SaturationThreshold == nil {
		return 65535 // 16-bit ADU ceiling
	}
	return *c.SaturationThreshold
}

// GetAllowedSaturated returns the allowed_saturated_pixels value or the default.
func (c *Thresholds) GetAllowedSaturated() int {
	if c.AllowedSaturated == nil {
		return 0
	}
	return *c.AllowedSaturated
}

// GetKSProbLimit returns the ks_pvalue_limit value or the default.
func (c *Thresholds) GetKSProbLimit() float64 {
	if c.KSProbLimit == nil {
		return 0.01
	}
	return *c.KSProbLimit
}

// GetMeanSigLimit returns the mean_sig_limit value or the default.
func (c *Thresholds) GetMeanSigLimit() float64 {
	if c.MeanSigLimit == nil {
		return 5
	}
	return *c.MeanSigLimit
}

// GetStdevSigLimit returns the stdev_sig_limit value or the default.
func (c *Thresholds) GetStdevSigLimit() float64 {
	if c.StdevSigLimit == nil {
		return 5
	}
	return *c.StdevSigLimit
}

// GetWorkers returns the workers value or the default.
func (c *Thresholds) GetWorkers() int {
	if c.Workers == nil {
		return 1 // sequential
	}
	return *c.Workers
}
