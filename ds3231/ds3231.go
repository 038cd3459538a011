// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the fixed I²C address of the DS3231.
const DefaultAddress uint16 = 0x68

// SquareWaveMode is the INTCN/RS2/RS1 field of the control register.
type SquareWaveMode byte

const (
	// SquareWaveOff sets INTCN, routing the alarm interrupt to INT/SQW.
	SquareWaveOff  SquareWaveMode = 0x1C
	SquareWave1Hz  SquareWaveMode = 0x00
	SquareWave1kHz SquareWaveMode = 0x08
	SquareWave4kHz SquareWaveMode = 0x10
	SquareWave8kHz SquareWaveMode = 0x18
)

const (
	// The temperature LSB holds quarter degrees in its top two bits.
	temperatureResolution = 0.25
	// Conversions run every 64s, polling faster only returns the same value.
	minimumSenseInterval = time.Second
)

// Dev is a handle to a DS3231.
//
// The bus is shared, not owned: Halt doesn't close it.
type Dev struct {
	d    *i2c.Dev
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewI2C returns a handle to a DS3231 on bus b at addr, usually
// DefaultAddress. The device isn't accessed.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	if addr > 0x7f {
		return nil, fmt.Errorf("ds3231: invalid 7 bit address %#x", addr)
	}
	return &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("DS3231{%s}", d.d)
}

// SetTime writes t to the time keeping registers if the oscillator stop
// flag is set, i.e. the clock lost power since it was last set, or if force
// is true. The flag is cleared afterwards.
//
// Without the flag and without force no register is written.
func (d *Dev) SetTime(t DateTime, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, err := d.readRegister(RegStatus)
	if err != nil {
		return &PreconditionError{Op: "set time", Err: err}
	}
	if status&statusOSF == 0 && !force {
		return nil
	}
	if err := d.writeBurst(RegSeconds, t.encode()); err != nil {
		return err
	}
	return d.updateRegister("clear oscillator stop flag", RegStatus, statusOSF, 0)
}

// ReadCurrent returns the content of the time keeping registers. The seven
// registers are read in one transaction so the fields are coherent.
func (d *Dev) ReadCurrent() (DateTime, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readCurrent()
}

func (d *Dev) readCurrent() (DateTime, error) {
	r, err := d.readBlock(RegSeconds, 7)
	if err != nil {
		return DateTime{}, err
	}
	return decodeDateTime(r), nil
}

// LostPower reports whether the oscillator stop flag is set, meaning the
// time is invalid until SetTime is called.
func (d *Dev) LostPower() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, err := d.readRegister(RegStatus)
	if err != nil {
		return false, err
	}
	return status&statusOSF != 0, nil
}

// ReadTemperature returns the last converted temperature in °C.
//
// The MSB is used as-is, without sign extension.
func (d *Dev) ReadTemperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readTemperature()
}

func (d *Dev) readTemperature() (float64, error) {
	r, err := d.readBlock(RegTemperature, 2)
	if err != nil {
		return 0, err
	}
	return float64(r[0]) + float64(r[1]>>6)*temperatureResolution, nil
}

// SetSquareWave selects the INT/SQW output. Any mode other than
// SquareWaveOff takes the pin away from the alarm interrupt.
func (d *Dev) SetSquareWave(mode SquareWaveMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setSquareWave(mode)
}

func (d *Dev) setSquareWave(mode SquareWaveMode) error {
	return d.updateRegister("set square wave", RegControl, controlSquareWave, byte(mode))
}

// SquareWave returns the INT/SQW output selection. With INTCN set the rate
// bits are irrelevant and SquareWaveOff is returned.
func (d *Dev) SquareWave() (SquareWaveMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ctrl, err := d.readRegister(RegControl)
	if err != nil {
		return SquareWaveOff, err
	}
	if ctrl&controlINTCN != 0 {
		return SquareWaveOff, nil
	}
	return SquareWaveMode(ctrl & (controlRS1 | controlRS2)), nil
}

// Set32kHz enables or disables the 32kHz output pin.
func (d *Dev) Set32kHz(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var v byte
	if enabled {
		v = statusEN32kHz
	}
	return d.updateRegister("set 32kHz output", RegStatus, statusEN32kHz, v)
}

// Is32kHzEnabled reports whether the 32kHz output pin is enabled.
func (d *Dev) Is32kHzEnabled() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, err := d.readRegister(RegStatus)
	if err != nil {
		return false, err
	}
	return status&statusEN32kHz != 0, nil
}

// Sense reads the temperature. Implements physic.SenseEnv.
//
// Like ReadTemperature the MSB is used as-is, so a reading below 0°C comes
// back 256°C too high.
func (d *Dev) Sense(env *physic.Env) error {
	env.Temperature = 0
	env.Pressure = 0
	env.Humidity = 0
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := d.readTemperature()
	if err != nil {
		return err
	}
	env.Temperature = physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
	return nil
}

// SenseContinuous reads the temperature every interval and writes it to the
// returned channel. Implements physic.SenseEnv. Call Halt to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minimumSenseInterval {
		return nil, fmt.Errorf("ds3231: invalid interval %s, minimum %s", interval, minimumSenseInterval)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("ds3231: SenseContinuous already running")
	}
	d.stop = make(chan struct{})
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go d.sensePoll(interval, ch, d.stop)
	return ch, nil
}

func (d *Dev) sensePoll(interval time.Duration, ch chan<- physic.Env, stop <-chan struct{}) {
	defer d.wg.Done()
	defer close(ch)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e := physic.Env{}
			if err := d.Sense(&e); err != nil {
				log.Print(err)
				continue
			}
			select {
			case ch <- e:
			case <-stop:
				return
			}
		}
	}
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(env *physic.Env) {
	env.Temperature = 250 * physic.MilliKelvin
	env.Pressure = 0
	env.Humidity = 0
}

// Halt stops a running SenseContinuous. The clock keeps running. Implements
// conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return nil
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
