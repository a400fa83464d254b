// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config describes how the HAT is wired and used, loaded from YAML.
//
// Zero values mean "use the default"; Normalize fills them in.
package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root of the file.
type Config struct {
	HAT HATConfig `yaml:"hat"`
}

// HATConfig describes one HAT.
type HATConfig struct {
	// Bus is the I²C bus name as known by i2creg. Empty is the first bus.
	Bus     string         `yaml:"bus"`
	PWM     PWMConfig      `yaml:"pwm"`
	Battery BatteryConfig  `yaml:"battery"`
	Display *DisplayConfig `yaml:"display"` // optional
	GPIO    *GPIOConfig    `yaml:"gpio"`    // optional
}

// ---- PWM ----

type PWMConfig struct {
	Address     uint16          `yaml:"address"`
	FrequencyHz int             `yaml:"frequency_hz"`
	Channels    []ChannelConfig `yaml:"channels"`
}

type ChannelConfig struct {
	Channel  int    `yaml:"channel"`
	Mode     string `yaml:"mode"`
	Extended bool   `yaml:"extended"`
	// FrequencyHz overrides PWMConfig.FrequencyHz. The chip runs at a single
	// frequency; a mismatch is coerced with a warning.
	FrequencyHz int      `yaml:"frequency_hz"`
	Initial     *float64 `yaml:"initial"`
}

// ---- BATTERY ----

type BatteryConfig struct {
	Address          uint16  `yaml:"address"`
	ReferenceVoltage float64 `yaml:"reference_voltage"`
	DividerGain      float64 `yaml:"divider_gain"`
	FilterK          float64 `yaml:"filter_k"`
	IntervalMs       int     `yaml:"interval_ms"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ---- GPIO ----

type GPIOConfig struct {
	Button     string `yaml:"button"`
	LED        string `yaml:"led"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// Load reads, validates and normalizes the file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes, validates and normalizes a YAML document. Unknown keys are
// rejected.
func Parse(b []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}
