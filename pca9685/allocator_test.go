// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestAllocator_Claim(t *testing.T) {
	for i := 0; i < NumChannels; i++ {
		var a Allocator
		if err := a.Claim(i, Servo90); err != nil {
			t.Fatalf("Claim(%d) = %v", i, err)
		}
		for _, m := range []Mode{Servo90, ReverseMotor, OnOff} {
			if err := a.Claim(i, m); !errors.Is(err, ErrChannelInUse) {
				t.Fatalf("second Claim(%d, %s) = %v", i, m, err)
			}
		}
		if m, ok := a.Mode(i); !ok || m != Servo90 {
			t.Fatalf("Mode(%d) = %s, %t", i, m, ok)
		}
	}
}

func TestAllocator_InvalidChannel(t *testing.T) {
	var a Allocator
	for _, i := range []int{-100, -1, 16, 17, 255} {
		if err := a.Claim(i, Servo180); !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("Claim(%d) = %v", i, err)
		}
	}
	if got := a.Claimed(); len(got) != 0 {
		t.Fatalf("Claimed() = %v", got)
	}
}

func TestAllocator_InvalidMode(t *testing.T) {
	var a Allocator
	if err := a.Claim(0, Mode(99)); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("err = %v", err)
	}
}

func TestAllocator_Release(t *testing.T) {
	var a Allocator
	for _, i := range []int{3, 1, 15} {
		if err := a.Claim(i, ForwardMotor); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := a.Claimed(), []int{1, 3, 15}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Claimed() = %v, want %v", got, want)
	}
	a.Release(3)
	a.Release(3)
	a.Release(-1)
	if _, ok := a.Mode(3); ok {
		t.Fatal("channel 3 still claimed")
	}
	if err := a.Claim(3, OnOff); err != nil {
		t.Fatalf("reclaim = %v", err)
	}
}
