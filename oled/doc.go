// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package oled renders onto the monochrome SSD1306 panel of the HAT.
//
// Framebuffer holds one bit per pixel in the controller's native layout: 8
// pixel high pages, least significant bit on top. It implements
// tinygo.org/x/drivers.Displayer so tinyfont can draw text on it, and pushes
// whole frames to any Sink; *ssd1306.Dev is one.
package oled
