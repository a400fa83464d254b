// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package userio drives the push button and the LED of the HAT.
package userio

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
)

// Default pins on the HAT, by GPIO name.
const (
	ButtonPin = "GPIO20"
	LEDPin    = "GPIO21"
)

// DefaultDebounce is the minimum time between two reported presses.
const DefaultDebounce = 200 * time.Millisecond

// poll bounds how long OnPress takes to notice a canceled context.
const poll = 100 * time.Millisecond

// Button reports presses, detected on the falling edge.
type Button struct {
	pin      gpio.PinIn
	debounce time.Duration
	now      func() time.Time
}

// NewButton configures p as a floating input with falling edge detection.
// debounce 0 means DefaultDebounce.
func NewButton(p gpio.PinIn, debounce time.Duration) (*Button, error) {
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	if err := p.In(gpio.Float, gpio.FallingEdge); err != nil {
		return nil, errors.Wrapf(err, "userio: button %s", p)
	}
	return &Button{pin: p, debounce: debounce, now: time.Now}, nil
}

func (b *Button) String() string {
	return b.pin.String()
}

// Pressed reports whether the button is held down.
func (b *Button) Pressed() bool {
	return b.pin.Read() == gpio.Low
}

// OnPress calls fn for every press until ctx is canceled. Edges closer than
// the debounce interval to the last reported press are dropped.
//
// fn runs on the caller's goroutine; a slow fn delays the next press.
func (b *Button) OnPress(ctx context.Context, fn func()) error {
	var last time.Time
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.pin.WaitForEdge(poll) {
			continue
		}
		now := b.now()
		if !last.IsZero() && now.Sub(last) < b.debounce {
			continue
		}
		last = now
		fn()
	}
}

// Halt implements conn.Resource. It interrupts a pending edge wait.
func (b *Button) Halt() error {
	return b.pin.Halt()
}

// LED is an output that remembers its state.
//
// The state is cached: some GPIO drivers reconfigure a line as input when it
// is read.
type LED struct {
	mu  sync.Mutex
	pin gpio.PinOut
	on  bool
}

// NewLED configures p as an output, initially off.
func NewLED(p gpio.PinOut) (*LED, error) {
	if err := p.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "userio: led %s", p)
	}
	return &LED{pin: p}, nil
}

func (l *LED) String() string {
	return l.pin.String()
}

// Set turns the LED on or off.
func (l *LED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set(on)
}

// Toggle inverts the LED.
func (l *LED) Toggle() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set(!l.on)
}

// On reports whether the LED was last turned on.
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Halt implements conn.Resource. It turns the LED off.
func (l *LED) Halt() error {
	return l.Set(false)
}

func (l *LED) set(on bool) error {
	if err := l.pin.Out(gpio.Level(on)); err != nil {
		return errors.Wrapf(err, "userio: led %s", l.pin)
	}
	l.on = on
	return nil
}
