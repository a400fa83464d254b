// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package regbustest is meant to be used to test drivers over a fake register
// bus.
package regbustest

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/hat/v3/regbus"
)

// Op is one access recorded by Fake.
type Op struct {
	Addr  uint16
	Reg   byte
	Data  []byte
	Write bool
}

// Fake is a set of in-memory register files, one per device address.
//
// Register pointers auto-increment on multi-byte accesses and wrap at 0xFF.
// ReadBlock returns queued replies from Blocks first, then falls back to the
// register file.
//
// Fake is also an i2c.Bus: the first written byte of a transaction selects
// the register, the rest is written from there, then the read happens.
type Fake struct {
	sync.Mutex
	// Blocks holds queued ReadBlock replies per device address.
	Blocks map[uint16][][]byte
	// Err, when set, is returned by every access.
	Err error
	// Ops is the log of every access, in order.
	Ops []Op

	regs map[uint16]*[256]byte
}

// Reg returns the current content of a register.
func (f *Fake) Reg(addr uint16, reg byte) byte {
	f.Lock()
	defer f.Unlock()
	return f.file(addr)[reg]
}

// SetReg presets a register without recording an Op.
func (f *Fake) SetReg(addr uint16, reg, val byte) {
	f.Lock()
	defer f.Unlock()
	f.file(addr)[reg] = val
}

// Writes returns the write operations addressed to addr.
func (f *Fake) Writes(addr uint16) []Op {
	f.Lock()
	defer f.Unlock()
	var out []Op
	for _, op := range f.Ops {
		if op.Write && op.Addr == addr {
			out = append(out, op)
		}
	}
	return out
}

// Reset clears the log without touching register content.
func (f *Fake) Reset() {
	f.Lock()
	defer f.Unlock()
	f.Ops = nil
}

// ReadReg implements regbus.Bus.
func (f *Fake) ReadReg(addr uint16, reg byte) (byte, error) {
	f.Lock()
	defer f.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	v := f.file(addr)[reg]
	f.Ops = append(f.Ops, Op{Addr: addr, Reg: reg, Data: []byte{v}})
	return v, nil
}

// WriteReg implements regbus.Bus.
func (f *Fake) WriteReg(addr uint16, reg, val byte) error {
	return f.WriteRegs(addr, reg, []byte{val})
}

// WriteRegs implements regbus.Bus.
func (f *Fake) WriteRegs(addr uint16, reg byte, data []byte) error {
	f.Lock()
	defer f.Unlock()
	if f.Err != nil {
		return f.Err
	}
	file := f.file(addr)
	for i, b := range data {
		file[reg+byte(i)] = b
	}
	f.Ops = append(f.Ops, Op{Addr: addr, Reg: reg, Data: append([]byte(nil), data...), Write: true})
	return nil
}

// ReadBlock implements regbus.Bus.
func (f *Fake) ReadBlock(addr uint16, cmd byte, n int) ([]byte, error) {
	f.Lock()
	defer f.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if n <= 0 {
		return nil, errors.Errorf("regbustest: invalid block length %d", n)
	}
	var out []byte
	if q := f.Blocks[addr]; len(q) != 0 {
		out = q[0]
		f.Blocks[addr] = q[1:]
		if len(out) != n {
			return nil, errors.Errorf("regbustest: queued reply has %d bytes, want %d", len(out), n)
		}
	} else {
		file := f.file(addr)
		out = make([]byte, n)
		for i := range out {
			out[i] = file[cmd+byte(i)]
		}
	}
	f.Ops = append(f.Ops, Op{Addr: addr, Reg: cmd, Data: append([]byte(nil), out...)})
	return out, nil
}

// Queue appends a reply for the next ReadBlock on addr.
func (f *Fake) Queue(addr uint16, reply ...[]byte) {
	f.Lock()
	defer f.Unlock()
	if f.Blocks == nil {
		f.Blocks = map[uint16][][]byte{}
	}
	f.Blocks[addr] = append(f.Blocks[addr], reply...)
}

// String implements conn.Resource.
func (f *Fake) String() string {
	return "regbustest"
}

// SetSpeed implements i2c.Bus.
func (f *Fake) SetSpeed(physic.Frequency) error {
	return nil
}

// Close implements i2c.BusCloser.
func (f *Fake) Close() error {
	return nil
}

// Tx implements i2c.Bus.
func (f *Fake) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 {
		return errors.New("regbustest: Tx without register")
	}
	if len(w) > 1 || len(r) == 0 {
		if err := f.WriteRegs(addr, w[0], w[1:]); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}
	b, err := f.ReadBlock(addr, w[0], len(r))
	if err != nil {
		return err
	}
	copy(r, b)
	return nil
}

func (f *Fake) file(addr uint16) *[256]byte {
	if f.regs == nil {
		f.regs = map[uint16]*[256]byte{}
	}
	r, ok := f.regs[addr]
	if !ok {
		r = &[256]byte{}
		f.regs[addr] = r
	}
	return r
}

var _ regbus.Bus = &Fake{}
var _ i2c.BusCloser = &Fake{}
