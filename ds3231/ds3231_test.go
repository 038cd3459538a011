// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const addr = DefaultAddress

var errRemoteIO = errors.New("remote I/O error")

// failingBus fails transaction number fail (counting from 0) and plays back
// the others.
type failingBus struct {
	*i2ctest.Playback
	fail  int
	count int
}

func (f *failingBus) Tx(a uint16, w, r []byte) error {
	n := f.count
	f.count++
	if n == f.fail {
		return errRemoteIO
	}
	return f.Playback.Tx(a, w, r)
}

func newDev(t *testing.T, ops []i2ctest.IO) (*Dev, *i2ctest.Playback) {
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := NewI2C(pb, addr)
	if err != nil {
		t.Fatal(err)
	}
	return dev, pb
}

// checkDone verifies every playback operation was consumed.
func checkDone(t *testing.T, pb *i2ctest.Playback) {
	t.Helper()
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestNewI2C(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	dev, err := NewI2C(pb, addr)
	if err != nil {
		t.Fatal(err)
	}
	if s := dev.String(); len(s) == 0 {
		t.Error("invalid String() result")
	}
	if _, err := NewI2C(pb, 0x80); err == nil {
		t.Error("expected error for 8 bit address")
	}
	// Construction doesn't touch the device.
	checkDone(t, pb)
}

func TestReadCurrent(t *testing.T) {
	dev, pb := newDev(t, []i2ctest.IO{
		// 2024-02-29 13:45:07, Thursday, century bit set.
		{Addr: addr, W: []byte{0x00}, R: []byte{0x07, 0x45, 0x13, 0x04, 0x29, 0x82, 0x24}},
	})
	dt, err := dev.ReadCurrent()
	if err != nil {
		t.Fatal(err)
	}
	expected := DateTime{Year: 2024, Month: 2, Day: 29, Hour: 13, Minute: 45, Second: 7, DayOfWeek: 4}
	if dt != expected {
		t.Errorf("ReadCurrent()=%s expected %s", dt, expected)
	}
	checkDone(t, pb)
}

func TestReadCurrentShortRead(t *testing.T) {
	dev, _ := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x00}, R: []byte{0x07, 0x45, 0x13, 0x04, 0x29, 0x02}},
	})
	dt, err := dev.ReadCurrent()
	if err == nil {
		t.Fatal("expected error on short read")
	}
	var be *BusError
	if !errors.As(err, &be) || be.Register != RegSeconds {
		t.Errorf("expected BusError on time register, got %v", err)
	}
	if dt != (DateTime{}) {
		t.Errorf("expected zero DateTime, got %s", dt)
	}
}

func TestSetTimeNoPowerLoss(t *testing.T) {
	dev, pb := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x08}},
	})
	dt := DateTime{Year: 2025, Month: 6, Day: 1, Hour: 12, Minute: 0, Second: 0, DayOfWeek: 7}
	if err := dev.SetTime(dt, false); err != nil {
		t.Fatal(err)
	}
	// Only the status read.
	if pb.Count != 1 {
		t.Errorf("expected 1 transaction, got %d", pb.Count)
	}
	checkDone(t, pb)
}

func TestSetTime(t *testing.T) {
	dt := DateTime{Year: 2025, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 58, DayOfWeek: 3}
	block := []byte{0x00, 0x58, 0x59, 0x23, 0x03, 0x31, 0x12, 0x25}
	tests := []struct {
		name   string
		status byte
		force  bool
	}{
		{name: "power lost", status: 0x88, force: false},
		{name: "forced", status: 0x08, force: true},
		{name: "forced and power lost", status: 0x83, force: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev, pb := newDev(t, []i2ctest.IO{
				{Addr: addr, W: []byte{0x0F}, R: []byte{test.status}},
				{Addr: addr, W: block},
				{Addr: addr, W: []byte{0x0F}, R: []byte{test.status}},
				// Only OSF is cleared.
				{Addr: addr, W: []byte{0x0F, test.status &^ 0x80}},
			})
			if err := dev.SetTime(dt, test.force); err != nil {
				t.Fatal(err)
			}
			checkDone(t, pb)
		})
	}
}

func TestSetTimeStatusReadFails(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	dev, err := NewI2C(&failingBus{Playback: pb, fail: 0}, addr)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.SetTime(DateTime{Year: 2025, Month: 1, Day: 1, DayOfWeek: 3}, true)
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if !errors.Is(err, errRemoteIO) {
		t.Errorf("expected wrapped bus error, got %v", err)
	}
	// Nothing was written.
	checkDone(t, pb)
}

func TestSetTimeWriteFails(t *testing.T) {
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x80}},
	}, DontPanic: true}
	dev, err := NewI2C(&failingBus{Playback: pb, fail: 1}, addr)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.SetTime(DateTime{Year: 2025, Month: 1, Day: 1, DayOfWeek: 3}, false)
	var be *BusError
	if !errors.As(err, &be) || be.Op != "write" || be.Register != RegSeconds {
		t.Fatalf("expected BusError writing time register, got %v", err)
	}
	// OSF is left set.
	checkDone(t, pb)
}

func TestSetTimeClearFlagFails(t *testing.T) {
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x80}},
		{Addr: addr, W: []byte{0x00, 0x00, 0x00, 0x00, 0x03, 0x01, 0x01, 0x25}},
	}, DontPanic: true}
	dev, err := NewI2C(&failingBus{Playback: pb, fail: 2}, addr)
	if err != nil {
		t.Fatal(err)
	}
	err = dev.SetTime(DateTime{Year: 2025, Month: 1, Day: 1, DayOfWeek: 3}, false)
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	// The time was written but the status register is not written back.
	checkDone(t, pb)
}

func TestSetTimeOutOfRange(t *testing.T) {
	// Month 13 is encoded without complaint.
	dev, pb := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x00}},
		{Addr: addr, W: []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0x13, 0x30}},
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x00}},
		{Addr: addr, W: []byte{0x0F, 0x00}},
	})
	if err := dev.SetTime(DateTime{Year: 2030, Month: 13, Day: 1, DayOfWeek: 1}, true); err != nil {
		t.Fatal(err)
	}
	checkDone(t, pb)
}

func TestLostPower(t *testing.T) {
	dev, pb := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x80}},
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x0b}},
	})
	for _, expected := range []bool{true, false} {
		lost, err := dev.LostPower()
		if err != nil {
			t.Fatal(err)
		}
		if lost != expected {
			t.Errorf("LostPower()=%t expected %t", lost, expected)
		}
	}
	checkDone(t, pb)
}

func TestReadTemperature(t *testing.T) {
	tests := []struct {
		bits     []byte
		expected float64
	}{
		{[]byte{25, 0b01000000}, 25.25},
		{[]byte{25, 0b11000000}, 25.75},
		{[]byte{0, 0}, 0},
		{[]byte{255, 0}, 255},
		{[]byte{19, 0b10111111}, 19.5},
	}
	ops := make([]i2ctest.IO, 0, len(tests))
	for _, test := range tests {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{0x11}, R: test.bits})
	}
	dev, pb := newDev(t, ops)
	for _, test := range tests {
		c, err := dev.ReadTemperature()
		if err != nil {
			t.Fatal(err)
		}
		if c != test.expected {
			t.Errorf("ReadTemperature(%#v)=%f expected %f", test.bits, c, test.expected)
		}
	}
	checkDone(t, pb)
}

func TestReadTemperatureFails(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	dev, err := NewI2C(&failingBus{Playback: pb, fail: 0}, addr)
	if err != nil {
		t.Fatal(err)
	}
	c, err := dev.ReadTemperature()
	var be *BusError
	if !errors.As(err, &be) || be.Register != RegTemperature {
		t.Fatalf("expected BusError on temperature register, got %v", err)
	}
	if c != 0 {
		t.Errorf("ReadTemperature()=%f expected 0 on error", c)
	}
	checkDone(t, pb)
}

func TestSense(t *testing.T) {
	dev, pb := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x11}, R: []byte{21, 0x80}},
	})
	env := physic.Env{Humidity: 10 * physic.PercentRH}
	if err := dev.Sense(&env); err != nil {
		t.Fatal(err)
	}
	if expected := physic.ZeroCelsius + 21500*physic.MilliKelvin; env.Temperature != expected {
		t.Errorf("temperature %s != %s", env.Temperature, expected)
	}
	if env.Humidity != 0 {
		t.Errorf("humidity %s != 0", env.Humidity)
	}
	checkDone(t, pb)

	dev.Precision(&env)
	if env.Temperature != 250*physic.MilliKelvin {
		t.Errorf("precision %s", env.Temperature)
	}
}

func TestSenseBelowZero(t *testing.T) {
	// -10°C is 0xF6 in two's complement and reads as 246°C.
	dev, pb := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x11}, R: []byte{0xF6, 0x00}},
	})
	var env physic.Env
	if err := dev.Sense(&env); err != nil {
		t.Fatal(err)
	}
	if expected := physic.ZeroCelsius + 246*physic.Kelvin; env.Temperature != expected {
		t.Errorf("temperature %s != %s", env.Temperature, expected)
	}
	checkDone(t, pb)
}

func TestSenseContinuous(t *testing.T) {
	dev, _ := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x11}, R: []byte{22, 0x00}},
		{Addr: addr, W: []byte{0x11}, R: []byte{22, 0x40}},
	})
	if _, err := dev.SenseContinuous(100 * time.Millisecond); err == nil {
		t.Error("expected error for interval below one second")
	}
	ch, err := dev.SenseContinuous(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.SenseContinuous(time.Second); err == nil {
		t.Error("expected error for second SenseContinuous")
	}
	for _, expected := range []physic.Temperature{
		physic.ZeroCelsius + 22*physic.Kelvin,
		physic.ZeroCelsius + 22250*physic.MilliKelvin,
	} {
		env := <-ch
		if env.Temperature != expected {
			t.Errorf("temperature %s != %s", env.Temperature, expected)
		}
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	// The channel is closed once the poller exits.
	for range ch {
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestSquareWave(t *testing.T) {
	dev, pb := newDev(t, []i2ctest.IO{
		// INTCN and A1IE set, switch to 4kHz.
		{Addr: addr, W: []byte{0x0E}, R: []byte{0x05}},
		{Addr: addr, W: []byte{0x0E, 0x11}},
		{Addr: addr, W: []byte{0x0E}, R: []byte{0x11}},
		{Addr: addr, W: []byte{0x0E}, R: []byte{0x1d}},
	})
	if err := dev.SetSquareWave(SquareWave4kHz); err != nil {
		t.Fatal(err)
	}
	for _, expected := range []SquareWaveMode{SquareWave4kHz, SquareWaveOff} {
		mode, err := dev.SquareWave()
		if err != nil {
			t.Fatal(err)
		}
		if mode != expected {
			t.Errorf("SquareWave()=%#x expected %#x", mode, expected)
		}
	}
	checkDone(t, pb)
}

func Test32kHz(t *testing.T) {
	dev, pb := newDev(t, []i2ctest.IO{
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x83}},
		{Addr: addr, W: []byte{0x0F, 0x8b}},
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x8b}},
		{Addr: addr, W: []byte{0x0F}, R: []byte{0x8b}},
		{Addr: addr, W: []byte{0x0F, 0x83}},
	})
	if err := dev.Set32kHz(true); err != nil {
		t.Fatal(err)
	}
	enabled, err := dev.Is32kHzEnabled()
	if err != nil {
		t.Fatal(err)
	}
	if !enabled {
		t.Error("expected 32kHz output enabled")
	}
	if err := dev.Set32kHz(false); err != nil {
		t.Fatal(err)
	}
	checkDone(t, pb)
}
