// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
hat:
  bus: "1"
  pwm:
    frequency_hz: 50
    channels:
      - channel: 0
        mode: servo90
      - channel: 3
        mode: reverseMotor
        initial: 0
      - channel: 15
        mode: servo180
        extended: true
        frequency_hz: 125
  battery:
    divider_gain: 7.5
  display:
    width: 128
    height: 32
  gpio: {}
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	h := cfg.HAT
	if h.Bus != "1" || h.PWM.Address != 0x40 || h.PWM.FrequencyHz != 50 {
		t.Fatalf("pwm = %+v", h.PWM)
	}
	if len(h.PWM.Channels) != 3 {
		t.Fatalf("channels = %+v", h.PWM.Channels)
	}
	if c := h.PWM.Channels[0]; c.FrequencyHz != 50 || c.Initial != nil {
		t.Fatalf("channel 0 = %+v", c)
	}
	if c := h.PWM.Channels[1]; c.Initial == nil || *c.Initial != 0 {
		t.Fatalf("channel 3 = %+v", c)
	}
	if c := h.PWM.Channels[2]; !c.Extended || c.FrequencyHz != 125 {
		t.Fatalf("channel 15 = %+v", c)
	}
	b := h.Battery
	if b.Address != 0x4D || b.ReferenceVoltage != 3.3 || b.DividerGain != 7.5 || b.FilterK != 0.1 || b.IntervalMs != 50 {
		t.Fatalf("battery = %+v", b)
	}
	if d := h.Display; d == nil || d.Width != 128 || d.Height != 32 {
		t.Fatalf("display = %+v", d)
	}
	if g := h.GPIO; g == nil || g.Button != "GPIO20" || g.LED != "GPIO21" || g.DebounceMs != 200 {
		t.Fatalf("gpio = %+v", g)
	}
}

func TestParse_defaults(t *testing.T) {
	cfg, err := Parse([]byte("hat: {}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HAT.Display != nil || cfg.HAT.GPIO != nil {
		t.Fatal("optional sections enabled by default")
	}
	if cfg.HAT.PWM.FrequencyHz != 50 {
		t.Fatalf("frequency = %d", cfg.HAT.PWM.FrequencyHz)
	}
	cfg, err = Parse([]byte("hat:\n  display: {}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d := cfg.HAT.Display; d.Width != 128 || d.Height != 64 {
		t.Fatalf("display = %+v", d)
	}
}

func TestParse_errors(t *testing.T) {
	data := []struct {
		name, doc, want string
	}{
		{"unknown key", "hat:\n  pwn: {}\n", "pwn"},
		{"frequency", "hat:\n  pwm:\n    frequency_hz: 60\n", "frequency_hz"},
		{"channel range", "hat:\n  pwm:\n    channels:\n      - {channel: 16, mode: servo90}\n", "out of range"},
		{"duplicate", "hat:\n  pwm:\n    channels:\n      - {channel: 1, mode: servo90}\n      - {channel: 1, mode: onOff}\n", "twice"},
		{"mode", "hat:\n  pwm:\n    channels:\n      - {channel: 1, mode: stepper}\n", "stepper"},
		{"onOff initial", "hat:\n  pwm:\n    channels:\n      - {channel: 1, mode: onOff, initial: -1}\n", "initial"},
		{"filter", "hat:\n  battery:\n    filter_k: 1.5\n", "filter_k"},
		{"panel", "hat:\n  display: {width: 64, height: 48}\n", "64x48"},
		{"pins", "hat:\n  gpio: {button: GPIO4, led: GPIO4}\n", "share"},
	}
	for _, line := range data {
		_, err := Parse([]byte(line.doc))
		if err == nil {
			t.Errorf("%s: expected error", line.name)
			continue
		}
		if !strings.Contains(err.Error(), line.want) {
			t.Errorf("%s: %v doesn't mention %q", line.name, err, line.want)
		}
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hat.yaml")
	if err := os.WriteFile(p, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidate_nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected error")
	}
	Normalize(nil)
}
