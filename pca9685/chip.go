// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pca9685

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/hat/v3/regbus"
)

// I2CAddr is the default address of the chip on the HAT.
const I2CAddr uint16 = 0x40

// FullScale is the largest tick count of the 12 bit counter.
const FullScale = 4095

// Period is the number of ticks in one PWM cycle.
const Period = 4096

// Supported carrier frequencies.
const (
	Freq50Hz  = 50 * physic.Hertz
	Freq125Hz = 125 * physic.Hertz
	Freq250Hz = 250 * physic.Hertz
)

// DefaultFrequency is used when a claim doesn't ask for one.
const DefaultFrequency = Freq50Hz

const oscillator = 25 * physic.MegaHertz

const (
	mode1     = 0x00
	mode2     = 0x01
	preScale  = 0xFE
	led0OnL   = 0x06
	led0OffL  = 0x08
	allLedOnL = 0xFA

	// MODE1 bits.
	restart = 0x80
	ai      = 0x20
	sleep   = 0x10
	sub1    = 0x08
	allCall = 0x01

	// MODE2 bits.
	outDrv = 0x04

	// LEDn_OFF_H bit forcing the output low.
	fullOff = 0x10

	// Software reset, sent to the general call address.
	swReset = 0x06
)

// Errors returned by the package. Match them with errors.Is.
var (
	ErrInvalidChannel        = errors.New("invalid channel")
	ErrChannelInUse          = errors.New("channel in use")
	ErrInvalidValue          = errors.New("invalid value")
	ErrInvalidMode           = errors.New("invalid mode")
	ErrChannelNotInitialized = errors.New("channel not initialized")
	ErrInvalidFrequency      = errors.New("unsupported frequency")
	// ErrFrequencyMismatch is only logged: the claim succeeds at the frequency
	// already programmed.
	ErrFrequencyMismatch = errors.New("frequency mismatch")
)

// Opts holds the configuration options for a Chip.
type Opts struct {
	// Addr is the chip address. Defaults to I2CAddr.
	Addr uint16
	// Settle is the oscillator settle time after wake-up. Defaults to 5ms.
	Settle time.Duration
	// Logger defaults to golog.Global().
	Logger golog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Addr:   I2CAddr,
	Settle: 5 * time.Millisecond,
}

// ChannelOpts holds the per-channel options passed to Claim.
type ChannelOpts struct {
	// Frequency is the carrier the channel wants. Only the first claim on a
	// chip decides it. Defaults to DefaultFrequency.
	Frequency physic.Frequency
	// Extended maps values onto 0.5~2.5 standard pulse units instead of 1~2.
	Extended bool
}

// Chip is the state shared by every channel of one controller.
//
// Claiming a channel and bringing the chip up happen under one lock, so
// concurrent claims never initialize the chip twice nor hand out the same
// channel twice.
type Chip struct {
	bus    regbus.Bus
	addr   uint16
	settle time.Duration
	logger golog.Logger
	sleep  func(time.Duration)
	key    chipKey

	mu          sync.Mutex
	initialized bool
	freq        physic.Frequency
	alloc       Allocator
	channels    [NumChannels]*Channel
}

// NewChip returns a Chip on bus. No I/O happens until the first Claim.
//
// Most callers want Open, which shares one Chip per bus and address for the
// whole process.
func NewChip(bus regbus.Bus, opts *Opts) *Chip {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if o.Addr == 0 {
		o.Addr = I2CAddr
	}
	if o.Settle == 0 {
		o.Settle = DefaultOpts.Settle
	}
	if o.Logger == nil {
		o.Logger = golog.Global()
	}
	return &Chip{
		bus:    bus,
		addr:   o.Addr,
		settle: o.Settle,
		logger: o.Logger,
		sleep:  time.Sleep,
	}
}

// Open returns the process wide Chip for bus at opts.Addr, creating it on
// first use. opts is ignored when the Chip already exists.
//
// Chips are shared per physical bus: wrappers such as regbus.I2C that unwrap
// to the same i2c.Bus get the same Chip. Every Open must be balanced by a
// Close.
func Open(bus regbus.Bus, opts *Opts) *Chip {
	addr := I2CAddr
	if opts != nil && opts.Addr != 0 {
		addr = opts.Addr
	}
	k := chipKey{bus: busKey(bus), addr: addr}
	opened.mu.Lock()
	defer opened.mu.Unlock()
	if e, ok := opened.chips[k]; ok {
		e.refs++
		return e.chip
	}
	c := NewChip(bus, opts)
	c.key = k
	if opened.chips == nil {
		opened.chips = map[chipKey]*openedChip{}
	}
	opened.chips[k] = &openedChip{chip: c, refs: 1}
	return c
}

// Close drops one reference taken by Open. The last one removes the Chip
// from the process registry, so the next Open brings a new Chip up.
//
// Channels already claimed keep working. Close is a no-op on a Chip built
// with NewChip.
func (c *Chip) Close() error {
	opened.mu.Lock()
	defer opened.mu.Unlock()
	e, ok := opened.chips[c.key]
	if !ok || e.chip != c {
		return nil
	}
	if e.refs--; e.refs == 0 {
		delete(opened.chips, c.key)
	}
	return nil
}

func (c *Chip) String() string {
	return fmt.Sprintf("pca9685@0x%02X", c.addr)
}

// Frequency returns the programmed carrier and whether the chip was brought
// up yet.
func (c *Chip) Frequency() (physic.Frequency, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freq, c.initialized
}

// Claimed returns the indices of the claimed channels.
func (c *Chip) Claimed() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alloc.Claimed()
}

// Claim reserves channel index for mode and returns it.
//
// The first successful claim brings the chip up at opts.Frequency. Later claims
// asking for another frequency are coerced to the active one with a warning.
func (c *Chip) Claim(index int, mode Mode, opts *ChannelOpts) (*Channel, error) {
	var o ChannelOpts
	if opts != nil {
		o = *opts
	}
	if o.Frequency == 0 {
		o.Frequency = DefaultFrequency
	}
	if !supported(o.Frequency) {
		return nil, errors.Wrapf(ErrInvalidFrequency, "pca9685: %s", o.Frequency)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.alloc.Claim(index, mode); err != nil {
		return nil, err
	}
	if !c.initialized {
		if err := c.bringUp(o.Frequency); err != nil {
			c.alloc.Release(index)
			return nil, err
		}
		c.initialized = true
		c.freq = o.Frequency
		c.logger.Debugw("chip initialized", "chip", c.String(), "frequency", c.freq.String())
	} else if o.Frequency != c.freq {
		c.logger.Warnw("coercing channel to the active frequency",
			"error", ErrFrequencyMismatch, "chip", c.String(), "channel", index,
			"requested", o.Frequency.String(), "active", c.freq.String())
		o.Frequency = c.freq
	}
	ch := &Channel{
		chip:     c,
		index:    index,
		mode:     mode,
		freq:     o.Frequency,
		extended: o.Extended,
		limits:   LimitsFor(o.Frequency),
	}
	c.channels[index] = ch
	return ch, nil
}

// Set sets the value of the channel claimed at index.
func (c *Chip) Set(index int, v float64) error {
	ch, err := c.channel(index)
	if err != nil {
		return err
	}
	return ch.SetValue(v)
}

// Reset issues a software reset on the bus and, when the chip was already up,
// brings it back at the active frequency. All outputs are low afterward.
//
// The reset is a general call: every PCA9685 on the bus resets.
func (c *Chip) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.bus.WriteRegs(0x00, swReset, nil); err != nil {
		return errors.Wrap(err, "pca9685: reset")
	}
	if !c.initialized {
		return nil
	}
	return c.bringUp(c.freq)
}

// Halt implements conn.Resource.
//
// It forces every output low. Channels keep their claims.
func (c *Chip) Halt() error {
	if err := c.bus.WriteRegs(c.addr, allLedOnL, []byte{0, 0, 0, fullOff}); err != nil {
		return errors.Wrap(err, "pca9685: halt")
	}
	return nil
}

func (c *Chip) channel(index int) (*Channel, error) {
	if index < 0 || index >= NumChannels {
		return nil, errors.Wrapf(ErrInvalidChannel, "pca9685: channel %d", index)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[index]
	if ch == nil {
		return nil, errors.Wrapf(ErrChannelNotInitialized, "pca9685: channel %d", index)
	}
	return ch, nil
}

func (c *Chip) release(ch *Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channels[ch.index] == ch {
		c.channels[ch.index] = nil
		c.alloc.Release(ch.index)
	}
}

// bringUp wakes the chip and programs the carrier.
//
// Must be called with mu held.
func (c *Chip) bringUp(f physic.Frequency) error {
	if err := c.bus.WriteReg(c.addr, mode2, outDrv); err != nil {
		return errors.Wrap(err, "pca9685: init")
	}
	if err := c.bus.WriteReg(c.addr, mode1, allCall|ai); err != nil {
		return errors.Wrap(err, "pca9685: init")
	}
	c.sleep(c.settle)
	m, err := c.bus.ReadReg(c.addr, mode1)
	if err != nil {
		return errors.Wrap(err, "pca9685: init")
	}
	if err := c.bus.WriteReg(c.addr, mode1, m&^sleep); err != nil {
		return errors.Wrap(err, "pca9685: wake")
	}
	c.sleep(c.settle)
	return c.setFrequency(f)
}

// setFrequency programs the prescaler. The oscillator must be stopped for the
// write to be accepted.
//
// Must be called with mu held.
func (c *Chip) setFrequency(f physic.Frequency) error {
	old, err := c.bus.ReadReg(c.addr, mode1)
	if err != nil {
		return errors.Wrap(err, "pca9685: set frequency")
	}
	steps := []struct{ reg, val byte }{
		{mode1, old&^restart | sleep},
		{preScale, prescaler(f)},
		{mode1, old},
	}
	for _, s := range steps {
		if err := c.bus.WriteReg(c.addr, s.reg, s.val); err != nil {
			return errors.Wrap(err, "pca9685: set frequency")
		}
	}
	c.sleep(c.settle)
	if err := c.bus.WriteReg(c.addr, mode1, old|sub1); err != nil {
		return errors.Wrap(err, "pca9685: set frequency")
	}
	return nil
}

// prescaler returns PRE_SCALE for f: round(25MHz/4096/f) - 1.
func prescaler(f physic.Frequency) byte {
	return byte(math.Round(float64(oscillator)/Period/float64(f)) - 1)
}

func supported(f physic.Frequency) bool {
	switch f {
	case Freq50Hz, Freq125Hz, Freq250Hz:
		return true
	}
	return false
}

// chipKey identifies a chip by its physical bus. bus holds the unwrapped
// i2c.Bus when there is one.
type chipKey struct {
	bus  interface{}
	addr uint16
}

type openedChip struct {
	chip *Chip
	refs int
}

var opened struct {
	mu    sync.Mutex
	chips map[chipKey]*openedChip
}

func busKey(b regbus.Bus) interface{} {
	if u, ok := b.(interface{ Unwrap() i2c.Bus }); ok {
		return u.Unwrap()
	}
	return b
}
