// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hat wires the PWM HAT of a Raspberry Pi from a configuration.
//
// The HAT carries a PCA9685 16 channel PWM controller, a MCP3221 ADC
// measuring the battery, an optional SSD1306 OLED panel, a push button and a
// LED. Each device has its own package; Open brings them all up.
//
// # More details
//
// The device packages can be used directly with any
// periph.io/x/conn/v3/i2c.Bus wrapped by regbus.New.
package hat
