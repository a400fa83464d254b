// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/hat/v3"
)

const thermalZone = "/sys/class/thermal/thermal_zone0/temp"

// statusScreen refreshes the OLED with the battery voltage, the CPU
// temperature and the IP address until ctx is canceled.
func statusScreen(ctx context.Context, b *hat.Board, every time.Duration, logger golog.Logger) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		b.Display.Lines(statusLines(b.Battery.FilteredPotential(), cpuTemp(), localIP())...)
		if err := b.Display.Display(); err != nil {
			logger.Warnw("display", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func statusLines(bat physic.ElectricPotential, temp physic.Temperature, ip string) []string {
	c := "CPU ?"
	if temp != 0 {
		c = fmt.Sprintf("CPU %.1fC", float64(temp-physic.ZeroCelsius)/float64(physic.Celsius))
	}
	if ip == "" {
		ip = "no network"
	}
	return []string{
		fmt.Sprintf("BAT %.2fV", float64(bat)/float64(physic.Volt)),
		c,
		ip,
	}
}

// cpuTemp returns 0 when the thermal zone can't be read.
func cpuTemp() physic.Temperature {
	raw, err := os.ReadFile(thermalZone)
	if err != nil {
		return 0
	}
	t, err := parseMilliCelsius(string(raw))
	if err != nil {
		return 0
	}
	return t
}

func parseMilliCelsius(s string) (physic.Temperature, error) {
	m, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "thermal")
	}
	return physic.ZeroCelsius + physic.Temperature(m)*physic.MilliCelsius, nil
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	return firstIPv4(addrs)
}

// firstIPv4 returns the first non loopback IPv4 address.
func firstIPv4(addrs []net.Addr) string {
	for _, a := range addrs {
		n, ok := a.(*net.IPNet)
		if !ok || n.IP.IsLoopback() {
			continue
		}
		if ip4 := n.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
