// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package regbus exposes byte-oriented register access to I²C devices.
//
// Every device on the HAT (the PCA9685 PWM controller, the MCP3221 ADC and the
// SSD1306 display) is driven through 8 bit registers addressed by a 7 bit
// device address. Bus is the narrow contract the drivers in this module depend
// on; I2C implements it on top of any periph.io/x/conn/v3/i2c.Bus.
package regbus
