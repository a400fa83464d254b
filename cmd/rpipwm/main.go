// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// rpipwm drives the PWM HAT: it sweeps a servo, watches the battery, shows a
// status screen on the OLED and toggles the LED on button presses.
//
// Usage:
//
//	rpipwm [-config hat.yaml] [-sweep 0] [-calibrate 7.4]
//	rpipwm smoketest [-bus 1] [-channel 0] [-mode servo180] [-freq 50]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"periph.io/x/hat/v3"
	"periph.io/x/hat/v3/config"
	"periph.io/x/hat/v3/pca9685"
	"periph.io/x/hat/v3/pca9685/pca9685smoketest"
)

func mainImpl() error {
	if len(os.Args) > 1 && os.Args[1] == "smoketest" {
		s := &pca9685smoketest.SmokeTest{}
		f := flag.NewFlagSet(s.Name(), flag.ExitOnError)
		return s.Run(f, os.Args[2:])
	}

	cfgPath := flag.String("config", "", "YAML configuration; defaults are used when empty")
	sweep := flag.Int("sweep", 0, "configured channel to sweep, -1 to disable")
	calibrate := flag.Float64("calibrate", 0, "calibrate the battery divider against this measured voltage and exit")
	verbose := flag.Bool("v", false, "verbose log")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	logger := golog.NewDevelopmentLogger("rpipwm")
	if !*verbose {
		logger = golog.NewLogger("rpipwm")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := hat.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warnw("close", "error", err)
		}
	}()

	if *calibrate != 0 {
		gain, err := b.Battery.Calibrate(ctx, *calibrate)
		if err != nil {
			return err
		}
		fmt.Printf("divider_gain: %.4f\n", gain)
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Battery.Run(ctx)
	})
	if ch, ok := b.Channels[*sweep]; ok {
		g.Go(func() error {
			return sweepChannel(ctx, ch, 20*time.Millisecond)
		})
	} else if *sweep >= 0 {
		logger.Infow("no channel to sweep", "channel", *sweep)
	}
	if b.Button != nil {
		g.Go(func() error {
			return b.Button.OnPress(ctx, func() {
				v, err := press(b)
				if err != nil {
					logger.Warnw("button", "error", err)
					return
				}
				logger.Infow("button", "battery", v, "led", b.LED.On())
			})
		})
	}
	if b.Display != nil {
		g.Go(func() error {
			return statusScreen(ctx, b, time.Second, logger)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// press toggles the LED and returns a fresh battery reading.
func press(b *hat.Board) (float64, error) {
	if err := b.LED.Toggle(); err != nil {
		return 0, err
	}
	return b.Battery.Voltage()
}

// defaultConfig is the HAT as shipped: a servo on channel 0, the button and
// the LED.
const defaultConfig = `hat:
  pwm:
    channels:
      - {channel: 0, mode: servo180, initial: 90}
  gpio: {}
`

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse([]byte(defaultConfig))
	}
	return config.Load(path)
}

// sweepChannel walks ch back and forth across its whole range.
func sweepChannel(ctx context.Context, ch *pca9685.Channel, step time.Duration) error {
	const steps = 50
	m := ch.Mode()
	lo, hi := m.Min(), m.Max()
	delta := (hi - lo) / steps
	v := lo
	t := time.NewTicker(step)
	defer t.Stop()
	for {
		if err := ch.SetValue(v); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if v+delta > hi || v+delta < lo {
			delta = -delta
		}
		v += delta
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "rpipwm: %s.\n", err)
		os.Exit(1)
	}
}
