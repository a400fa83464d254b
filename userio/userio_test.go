// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package userio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestNewButton(t *testing.T) {
	p := &gpiotest.Pin{N: ButtonPin, Num: 20, EdgesChan: make(chan gpio.Level)}
	b, err := NewButton(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b.debounce != DefaultDebounce {
		t.Fatalf("debounce = %s", b.debounce)
	}
	if p.P != gpio.Float {
		t.Fatalf("pull = %s", p.P)
	}
	p.L = gpio.Low
	if !b.Pressed() {
		t.Fatal("Pressed() = false")
	}
	// gpiotest refuses edge detection without a channel.
	if _, err := NewButton(&gpiotest.Pin{N: "GPIO5"}, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestButton_OnPress(t *testing.T) {
	edges := make(chan gpio.Level)
	b, err := NewButton(&gpiotest.Pin{N: ButtonPin, EdgesChan: edges}, 200*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	clock := time.Unix(1000, 0)
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}
	b.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	ctx, cancel := context.WithCancel(context.Background())
	presses := make(chan struct{}, 10)
	done := make(chan error)
	go func() {
		done <- b.OnPress(ctx, func() { presses <- struct{}{} })
	}()

	edges <- gpio.Low
	<-presses
	// Bounce 50ms later is dropped.
	advance(50 * time.Millisecond)
	edges <- gpio.Low
	// A real press 300ms after the first one is reported.
	advance(250 * time.Millisecond)
	edges <- gpio.Low
	<-presses

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("OnPress() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnPress didn't return")
	}
	if n := len(presses); n != 0 {
		t.Fatalf("%d extra presses", n)
	}
}

func TestLED(t *testing.T) {
	p := &gpiotest.Pin{N: LEDPin, Num: 21, L: gpio.High}
	l, err := NewLED(p)
	if err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.Low || l.On() {
		t.Fatal("LED not off after NewLED")
	}
	if err := l.Toggle(); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.High || !l.On() {
		t.Fatal("Toggle() didn't turn on")
	}
	if err := l.Toggle(); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.Low {
		t.Fatal("Toggle() didn't turn off")
	}
	if err := l.Set(true); err != nil {
		t.Fatal(err)
	}
	if err := l.Halt(); err != nil {
		t.Fatal(err)
	}
	if p.L != gpio.Low || l.On() {
		t.Fatal("Halt() didn't turn off")
	}
}
