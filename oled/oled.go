// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package oled

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Size is a panel geometry in pixels.
type Size struct {
	W, H int
}

// Panels sold with the HAT.
var (
	Size128x64 = Size{W: 128, H: 64}
	Size128x32 = Size{W: 128, H: 32}
	Size96x16  = Size{W: 96, H: 16}
)

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Valid reports whether s is a supported panel.
func (s Size) Valid() bool {
	return s == Size128x64 || s == Size128x32 || s == Size96x16
}

// Sink consumes a full frame of W×H/8 bytes.
type Sink interface {
	Write(p []byte) (int, error)
}

// On is the color that lights a pixel. Any non black color does.
var On = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Framebuffer is an off-screen frame.
type Framebuffer struct {
	size Size
	img  *image1bit.VerticalLSB
	sink Sink
	font *tinyfont.Font
}

// NewFramebuffer returns a blank frame for a panel of size s, flushed to sink.
func NewFramebuffer(s Size, sink Sink) (*Framebuffer, error) {
	if !s.Valid() {
		return nil, errors.Errorf("oled: unsupported panel %s", s)
	}
	return &Framebuffer{
		size: s,
		img:  image1bit.NewVerticalLSB(image.Rect(0, 0, s.W, s.H)),
		sink: sink,
		font: &proggy.TinySZ8pt7b,
	}, nil
}

// Size implements drivers.Displayer.
func (f *Framebuffer) Size() (x, y int16) {
	return int16(f.size.W), int16(f.size.H)
}

// SetPixel implements drivers.Displayer. Pixels off the panel are ignored.
func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || int(x) >= f.size.W || int(y) >= f.size.H {
		return
	}
	f.img.SetBit(int(x), int(y), image1bit.Bit(c.R|c.G|c.B != 0))
}

// Display implements drivers.Displayer. It writes the whole frame to the
// sink.
func (f *Framebuffer) Display() error {
	n, err := f.sink.Write(f.img.Pix)
	if err != nil {
		return errors.Wrap(err, "oled: display")
	}
	if n != len(f.img.Pix) {
		return errors.Errorf("oled: display: short write %d/%d", n, len(f.img.Pix))
	}
	return nil
}

// Pixel reports whether the pixel at x, y is lit.
func (f *Framebuffer) Pixel(x, y int) bool {
	return bool(f.img.BitAt(x, y))
}

// Bytes returns the frame in panel layout. It aliases the frame.
func (f *Framebuffer) Bytes() []byte {
	return f.img.Pix
}

// Clear turns every pixel off.
func (f *Framebuffer) Clear() {
	for i := range f.img.Pix {
		f.img.Pix[i] = 0
	}
}

// Text draws s with its baseline at y.
func (f *Framebuffer) Text(x, y int16, s string) {
	tinyfont.WriteLine(f, f.font, x, y, s, On)
}

// Lines clears the frame and draws one string per text row, from the top.
// Rows that don't fit are dropped.
func (f *Framebuffer) Lines(lines ...string) {
	f.Clear()
	h := int16(f.font.YAdvance)
	for i, l := range lines {
		y := h * int16(i+1)
		if int(y-h) >= f.size.H {
			break
		}
		f.Text(0, y-2, l)
	}
}

// Display is a Framebuffer bound to an SSD1306 panel.
type Display struct {
	*Framebuffer
	dev *ssd1306.Dev
}

// Open initializes the SSD1306 on bus and returns a blank frame for it.
func Open(bus i2c.Bus, s Size) (*Display, error) {
	if !s.Valid() {
		return nil, errors.Errorf("oled: unsupported panel %s", s)
	}
	// Short panels wire their rows sequentially.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: s.W, H: s.H, Sequential: s.H < 64})
	if err != nil {
		return nil, errors.Wrap(err, "oled")
	}
	fb, err := NewFramebuffer(s, dev)
	if err != nil {
		return nil, err
	}
	return &Display{Framebuffer: fb, dev: dev}, nil
}

// Invert switches the panel between white on black and black on white.
func (d *Display) Invert(blackOnWhite bool) error {
	return d.dev.Invert(blackOnWhite)
}

// Halt implements conn.Resource. It turns the panel off.
func (d *Display) Halt() error {
	return d.dev.Halt()
}

var _ drivers.Displayer = &Framebuffer{}
