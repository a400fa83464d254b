// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package regbus

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
)

// Bus is register level access to devices sharing one two-wire bus.
type Bus interface {
	// ReadReg reads one byte from register reg of the device at addr.
	ReadReg(addr uint16, reg byte) (byte, error)
	// WriteReg writes one byte to register reg of the device at addr.
	WriteReg(addr uint16, reg, val byte) error
	// WriteRegs writes data in a single transaction starting at reg. The device
	// must auto-increment its register pointer for this to span registers.
	WriteRegs(addr uint16, reg byte, data []byte) error
	// ReadBlock sends cmd then reads n bytes in the same transaction.
	ReadBlock(addr uint16, cmd byte, n int) ([]byte, error)
}

// I2C implements Bus over an i2c.Bus.
//
// Transactions are serialized so that multi-byte writes from concurrent
// callers never interleave.
type I2C struct {
	mu  sync.Mutex
	bus i2c.Bus
}

// New returns a Bus issuing transactions on b.
func New(b i2c.Bus) *I2C {
	return &I2C{bus: b}
}

// Unwrap returns the underlying bus. Two I2C built on the same i2c.Bus unwrap
// to the same value.
func (b *I2C) Unwrap() i2c.Bus {
	return b.bus
}

// String implements conn.Resource.
func (b *I2C) String() string {
	return b.bus.String()
}

// ReadReg implements Bus.
func (b *I2C) ReadReg(addr uint16, reg byte) (byte, error) {
	var r [1]byte
	if err := b.tx(addr, []byte{reg}, r[:]); err != nil {
		return 0, errors.Wrapf(err, "regbus: read 0x%02X@0x%02X", reg, addr)
	}
	return r[0], nil
}

// WriteReg implements Bus.
func (b *I2C) WriteReg(addr uint16, reg, val byte) error {
	if err := b.tx(addr, []byte{reg, val}, nil); err != nil {
		return errors.Wrapf(err, "regbus: write 0x%02X@0x%02X", reg, addr)
	}
	return nil
}

// WriteRegs implements Bus.
func (b *I2C) WriteRegs(addr uint16, reg byte, data []byte) error {
	w := make([]byte, 0, len(data)+1)
	w = append(w, reg)
	w = append(w, data...)
	if err := b.tx(addr, w, nil); err != nil {
		return errors.Wrapf(err, "regbus: write %d bytes at 0x%02X@0x%02X", len(data), reg, addr)
	}
	return nil
}

// ReadBlock implements Bus.
func (b *I2C) ReadBlock(addr uint16, cmd byte, n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.Errorf("regbus: invalid block length %d", n)
	}
	r := make([]byte, n)
	if err := b.tx(addr, []byte{cmd}, r); err != nil {
		return nil, errors.Wrapf(err, "regbus: read %d bytes at 0x%02X@0x%02X", n, cmd, addr)
	}
	return r, nil
}

func (b *I2C) tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus.Tx(addr, w, r)
}

var _ Bus = &I2C{}
