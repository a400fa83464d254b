// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import "github.com/pkg/errors"

// NumChannels is the number of outputs of the chip.
const NumChannels = 16

// Allocator records which channels are claimed and in which mode.
//
// It does no I/O and no locking; Chip guards it.
type Allocator struct {
	claimed [NumChannels]bool
	modes   [NumChannels]Mode
}

// Claim reserves channel index for mode.
func (a *Allocator) Claim(index int, mode Mode) error {
	if index < 0 || index >= NumChannels {
		return errors.Wrapf(ErrInvalidChannel, "pca9685: channel %d", index)
	}
	if !mode.valid() {
		return errors.Wrapf(ErrInvalidMode, "pca9685: %s", mode)
	}
	if a.claimed[index] {
		return errors.Wrapf(ErrChannelInUse, "pca9685: channel %d is %s", index, a.modes[index])
	}
	a.claimed[index] = true
	a.modes[index] = mode
	return nil
}

// Release frees channel index. Releasing a free channel is a no-op.
func (a *Allocator) Release(index int) {
	if index < 0 || index >= NumChannels {
		return
	}
	a.claimed[index] = false
	a.modes[index] = 0
}

// Mode returns the mode channel index was claimed with.
func (a *Allocator) Mode(index int) (Mode, bool) {
	if index < 0 || index >= NumChannels || !a.claimed[index] {
		return 0, false
	}
	return a.modes[index], true
}

// Claimed returns the claimed channel indices in increasing order.
func (a *Allocator) Claimed() []int {
	var out []int
	for i, c := range a.claimed {
		if c {
			out = append(out, i)
		}
	}
	return out
}
