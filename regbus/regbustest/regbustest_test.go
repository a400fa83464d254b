// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package regbustest

import (
	"bytes"
	"testing"
)

func TestFake_Tx(t *testing.T) {
	f := &Fake{}
	if err := f.Tx(0x40, []byte{0xFE, 1, 2}, nil); err != nil {
		t.Fatal(err)
	}
	// Auto-increment wraps at 0xFF.
	if f.Reg(0x40, 0xFE) != 1 || f.Reg(0x40, 0xFF) != 2 {
		t.Fatal("burst not applied")
	}
	r := make([]byte, 2)
	if err := f.Tx(0x40, []byte{0xFE}, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{1, 2}) {
		t.Fatalf("read %v", r)
	}
	if w := f.Writes(0x40); len(w) != 1 || w[0].Reg != 0xFE {
		t.Fatalf("writes %+v", w)
	}
	if err := f.Tx(0x40, nil, r); err == nil {
		t.Fatal("expected error")
	}
}

func TestFake_Queue(t *testing.T) {
	f := &Fake{}
	f.SetReg(0x4D, 0, 0xAA)
	f.Queue(0x4D, []byte{0x0F, 0xFF})
	b, err := f.ReadBlock(0x4D, 0, 2)
	if err != nil || !bytes.Equal(b, []byte{0x0F, 0xFF}) {
		t.Fatalf("%v %v", b, err)
	}
	// Queue drained, falls back to the register file.
	if b, err = f.ReadBlock(0x4D, 0, 1); err != nil || b[0] != 0xAA {
		t.Fatalf("%v %v", b, err)
	}
	f.Queue(0x4D, []byte{1})
	if _, err := f.ReadBlock(0x4D, 0, 2); err == nil {
		t.Fatal("expected length error")
	}
	f.Reset()
	if len(f.Ops) != 0 {
		t.Fatal("ops not cleared")
	}
}
