// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp3221

import (
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/hat/v3/regbus"
)

// I2CAddr is the address of the ADC on the HAT.
const I2CAddr uint16 = 0x4D

// FullScale is the largest conversion code.
const FullScale = 4095

// Dev is a handle to the ADC.
type Dev struct {
	bus  regbus.Bus
	addr uint16
}

// New returns a handle to the ADC at addr. addr 0 means I2CAddr.
func New(bus regbus.Bus, addr uint16) *Dev {
	if addr == 0 {
		addr = I2CAddr
	}
	return &Dev{bus: bus, addr: addr}
}

func (d *Dev) String() string {
	return fmt.Sprintf("mcp3221@0x%02X", d.addr)
}

// Read returns one conversion code, 0~4095.
func (d *Dev) Read() (uint16, error) {
	b, err := d.bus.ReadBlock(d.addr, 0x00, 2)
	if err != nil {
		return 0, errors.Wrap(err, "mcp3221: read")
	}
	return (uint16(b[0])<<8 | uint16(b[1])) & FullScale, nil
}
