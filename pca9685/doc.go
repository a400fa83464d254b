// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pca9685 drives the 16 channel, 12 bit PWM controller of the HAT.
//
// A Chip owns the controller state shared by every output: whether the chip
// was brought up and the carrier frequency it runs at. Outputs are claimed
// from the Chip; the first claim wakes the chip and programs the frequency,
// later claims reuse it. A Channel converts a logical value (servo angle,
// motor speed, on/off) into a pulse width expressed in ticks of the 4096 step
// counter.
//
// Values outside a mode's domain are clamped, never rejected.
//
// # Datasheet
//
// https://www.nxp.com/docs/en/data-sheet/PCA9685.pdf
package pca9685
