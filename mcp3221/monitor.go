// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp3221

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the configuration options of a Monitor.
//
// Zero fields take the value from DefaultOpts.
type Opts struct {
	// Reference is the ADC reference voltage, in volts.
	Reference float64
	// Gain is the ratio of the resistor divider in front of the ADC.
	Gain float64
	// K is the filter constant, in (0, 1). Larger follows faster.
	K float64
	// Interval is the sampling period.
	Interval time.Duration
	// CalibrationSamples is the number of readings averaged by Calibrate.
	CalibrationSamples int
	// CalibrationInterval is the delay between two calibration readings.
	CalibrationInterval time.Duration
	Logger              golog.Logger
}

// DefaultOpts matches the HAT: 3.3V reference and a 7.66 divider, sampled
// at 20Hz.
var DefaultOpts = Opts{
	Reference:           3.3,
	Gain:                7.66,
	K:                   0.1,
	Interval:            50 * time.Millisecond,
	CalibrationSamples:  100,
	CalibrationInterval: 10 * time.Millisecond,
}

// Monitor samples the battery voltage in the background.
//
// Filtered can be called from any goroutine at any time. Sampling and
// Calibrate exclude each other.
type Monitor struct {
	dev         *Dev
	ref         float64
	k           float64
	interval    time.Duration
	calSamples  int
	calInterval time.Duration
	logger      golog.Logger

	mu   sync.Mutex // serializes sampling and calibration; guards gain
	gain float64

	filtered atomic.Uint64 // math.Float64bits of the filtered voltage
	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor returns a Monitor reading dev. The filter starts at 0V.
func NewMonitor(dev *Dev, opts *Opts) (*Monitor, error) {
	o := DefaultOpts
	if opts != nil {
		o = merge(*opts)
	}
	if o.K <= 0 || o.K >= 1 {
		return nil, errors.Errorf("mcp3221: filter constant %g not in (0, 1)", o.K)
	}
	if o.Reference <= 0 || o.Gain <= 0 {
		return nil, errors.Errorf("mcp3221: invalid reference %gV or gain %g", o.Reference, o.Gain)
	}
	if o.Interval < 0 || o.CalibrationSamples < 0 || o.CalibrationInterval < 0 {
		return nil, errors.New("mcp3221: negative interval or sample count")
	}
	if o.Logger == nil {
		o.Logger = golog.Global()
	}
	return &Monitor{
		dev:         dev,
		ref:         o.Reference,
		k:           o.K,
		interval:    o.Interval,
		calSamples:  o.CalibrationSamples,
		calInterval: o.CalibrationInterval,
		logger:      o.Logger,
		gain:        o.Gain,
		stop:        make(chan struct{}),
	}, nil
}

func (m *Monitor) String() string {
	return m.dev.String()
}

// Run samples every Interval until ctx is canceled or Stop is called.
//
// A failed reading is logged and skipped. Run returns nil after Stop and
// ctx.Err() on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("mcp3221: monitor already running")
	}
	defer m.running.Store(false)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		if _, err := m.Sample(); err != nil {
			m.logger.Warnw("battery sample failed", "adc", m.dev.String(), "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case <-t.C:
		}
	}
}

// Stop asks Run to return once its current iteration completes. A stopped
// Monitor doesn't run again.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Running reports whether Run is executing.
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// Sample takes one reading, folds it into the filter and returns the
// instantaneous battery voltage.
func (m *Monitor) Sample() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.read()
	if err != nil {
		return 0, err
	}
	v *= m.gain
	old := math.Float64frombits(m.filtered.Load())
	m.filtered.Store(math.Float64bits(old*(1-m.k) + v*m.k))
	return v, nil
}

// Filtered returns the smoothed battery voltage in volts, rounded to 10mV.
func (m *Monitor) Filtered() float64 {
	return round2(math.Float64frombits(m.filtered.Load()))
}

// FilteredPotential returns Filtered as a physic.ElectricPotential.
func (m *Monitor) FilteredPotential() physic.ElectricPotential {
	return physic.ElectricPotential(m.Filtered() * float64(physic.Volt))
}

// Voltage takes one reading and returns the battery voltage rounded to 10mV,
// without touching the filter.
func (m *Monitor) Voltage() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.read()
	if err != nil {
		return 0, err
	}
	return round2(v * m.gain), nil
}

// Gain returns the divider ratio in use.
func (m *Monitor) Gain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// Calibrate measures a known battery voltage and derives the divider ratio
// from it. It returns the new ratio.
//
// Sampling is suspended while it runs, CalibrationSamples×CalibrationInterval.
func (m *Monitor) Calibrate(ctx context.Context, exact float64) (float64, error) {
	if exact <= 0 {
		return 0, errors.Errorf("mcp3221: invalid calibration voltage %gV", exact)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0.
	for i := 0; i < m.calSamples; i++ {
		if i != 0 {
			if err := wait(ctx, m.calInterval); err != nil {
				return 0, err
			}
		}
		v, err := m.read()
		if err != nil {
			return 0, errors.Wrap(err, "mcp3221: calibrate")
		}
		sum += v
	}
	avg := sum / float64(m.calSamples)
	if avg == 0 {
		return 0, errors.New("mcp3221: calibrate: ADC reads 0V")
	}
	m.gain = exact / avg
	m.logger.Infow("battery divider calibrated", "adc", m.dev.String(), "gain", m.gain)
	return m.gain, nil
}

// read returns the voltage at the ADC input.
//
// Must be called with mu held.
func (m *Monitor) read() (float64, error) {
	code, err := m.dev.Read()
	if err != nil {
		return 0, err
	}
	return float64(code) / FullScale * m.ref, nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func merge(o Opts) Opts {
	d := DefaultOpts
	if o.Reference != 0 {
		d.Reference = o.Reference
	}
	if o.Gain != 0 {
		d.Gain = o.Gain
	}
	if o.K != 0 {
		d.K = o.K
	}
	if o.Interval != 0 {
		d.Interval = o.Interval
	}
	if o.CalibrationSamples != 0 {
		d.CalibrationSamples = o.CalibrationSamples
	}
	if o.CalibrationInterval != 0 {
		d.CalibrationInterval = o.CalibrationInterval
	}
	d.Logger = o.Logger
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
