// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package regbus

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestI2C_ReadReg(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x40, W: []byte{0x00}, R: []byte{0x11}},
		},
	}
	b := New(&bus)
	v, err := b.ReadReg(0x40, 0x00)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x11 {
		t.Fatalf("ReadReg() = 0x%02X, want 0x11", v)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestI2C_Writes(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x40, W: []byte{0xFE, 0x79}},
			{Addr: 0x40, W: []byte{0x06, 0x00, 0x00, 0x32, 0x01}},
			{Addr: 0x00, W: []byte{0x06}},
		},
	}
	b := New(&bus)
	if err := b.WriteReg(0x40, 0xFE, 0x79); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteRegs(0x40, 0x06, []byte{0x00, 0x00, 0x32, 0x01}); err != nil {
		t.Fatal(err)
	}
	if err := b.WriteRegs(0x00, 0x06, nil); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestI2C_ReadBlock(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x4D, W: []byte{0x00}, R: []byte{0x08, 0x00}},
		},
	}
	b := New(&bus)
	got, err := b.ReadBlock(0x4D, 0x00, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x08, 0x00}) {
		t.Fatalf("ReadBlock() = %#v", got)
	}
	if _, err := b.ReadBlock(0x4D, 0x00, 0); err == nil {
		t.Fatal("expected error on empty read")
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestI2C_Error(t *testing.T) {
	bus := i2ctest.Playback{DontPanic: true}
	b := New(&bus)
	if _, err := b.ReadReg(0x40, 0x00); err == nil {
		t.Fatal("expected error")
	}
	if err := b.WriteReg(0x40, 0x00, 0x01); err == nil {
		t.Fatal("expected error")
	}
}
