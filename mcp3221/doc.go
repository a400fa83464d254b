// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mcp3221 reads the single channel 12 bit ADC of the HAT and turns it
// into a filtered battery voltage.
//
// The ADC measures the battery through a resistor divider; Monitor samples it
// at 20Hz in the background and smooths the readings with an exponential
// moving average.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/20001732E.pdf
package mcp3221
