// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package oled

import (
	"bytes"
	"errors"
	"image/color"
	"testing"
)

type sink struct {
	frames [][]byte
	n      int
	err    error
}

func (s *sink) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.frames = append(s.frames, append([]byte(nil), p...))
	if s.n != 0 {
		return s.n, nil
	}
	return len(p), nil
}

func TestNewFramebuffer(t *testing.T) {
	for _, s := range []Size{Size128x64, Size128x32, Size96x16} {
		f, err := NewFramebuffer(s, &sink{})
		if err != nil {
			t.Fatal(err)
		}
		if n := len(f.Bytes()); n != s.W*s.H/8 {
			t.Errorf("%s: %d bytes", s, n)
		}
		if x, y := f.Size(); int(x) != s.W || int(y) != s.H {
			t.Errorf("%s: Size() = %d, %d", s, x, y)
		}
	}
	if _, err := NewFramebuffer(Size{W: 64, H: 48}, &sink{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFramebuffer_SetPixel(t *testing.T) {
	f, err := NewFramebuffer(Size128x64, &sink{})
	if err != nil {
		t.Fatal(err)
	}
	f.SetPixel(0, 0, On)
	f.SetPixel(5, 9, On)
	f.SetPixel(127, 63, color.RGBA{G: 1})
	f.SetPixel(128, 0, On)
	f.SetPixel(-1, 3, On)
	b := f.Bytes()
	if b[0] != 0x01 {
		t.Errorf("page 0 col 0 = 0x%02X", b[0])
	}
	if b[128+5] != 0x02 {
		t.Errorf("page 1 col 5 = 0x%02X", b[128+5])
	}
	if b[7*128+127] != 0x80 {
		t.Errorf("page 7 col 127 = 0x%02X", b[7*128+127])
	}
	if !f.Pixel(5, 9) || f.Pixel(5, 10) {
		t.Error("Pixel() mismatch")
	}
	f.SetPixel(5, 9, color.RGBA{A: 0xFF})
	if f.Pixel(5, 9) {
		t.Error("black didn't clear the pixel")
	}
	f.Clear()
	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Error("Clear() left pixels on")
	}
}

func TestFramebuffer_Display(t *testing.T) {
	s := &sink{}
	f, err := NewFramebuffer(Size96x16, s)
	if err != nil {
		t.Fatal(err)
	}
	f.SetPixel(1, 1, On)
	if err := f.Display(); err != nil {
		t.Fatal(err)
	}
	if len(s.frames) != 1 || len(s.frames[0]) != 96*16/8 || s.frames[0][1] != 0x02 {
		t.Fatalf("frames = %v", s.frames)
	}
	s.n = 3
	if err := f.Display(); err == nil {
		t.Fatal("expected short write error")
	}
	s.err = errors.New("nack")
	if err := f.Display(); err == nil {
		t.Fatal("expected error")
	}
}

func TestFramebuffer_Text(t *testing.T) {
	f, err := NewFramebuffer(Size128x32, &sink{})
	if err != nil {
		t.Fatal(err)
	}
	f.Lines("7.42V", "12.5C")
	lit := 0
	for _, b := range f.Bytes() {
		for ; b != 0; b &= b - 1 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatal("no pixel drawn")
	}
	f.Lines()
	if !bytes.Equal(f.Bytes(), make([]byte, 128*32/8)) {
		t.Fatal("Lines() didn't clear")
	}
}
