// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"errors"
	"fmt"

	"github.com/GermanBionicSystems/rtc/common"
)

// Alarm selects one of the two alarms. Only Alarm1 and Alarm2 are
// meaningful; other values are rejected before the bus is touched.
type Alarm byte

const (
	Alarm1 Alarm = 1
	Alarm2 Alarm = 2
)

// bit is the alarm's flag in the status register and its enable bit in the
// control register; both are bit (a-1).
func (a Alarm) bit() byte {
	return 1 << (a - 1)
}

func (a Alarm) validate() error {
	if a != Alarm1 && a != Alarm2 {
		return fmt.Errorf("ds3231: invalid alarm %d", a)
	}
	return nil
}

func (a Alarm) other() Alarm {
	if a == Alarm1 {
		return Alarm2
	}
	return Alarm1
}

// Alarm1Mode selects which fields alarm 1 matches on. Bits 0..3 are the
// A1M1..A1M4 mask flags (1 means the field is ignored) and bit 4 is DY/DT.
// The values follow table 2 of the datasheet.
type Alarm1Mode byte

const (
	// Alarm1PerSecond fires once per second.
	Alarm1PerSecond Alarm1Mode = 0x0F
	// Alarm1Second fires when the seconds match.
	Alarm1Second Alarm1Mode = 0x0E
	// Alarm1Minute fires when minutes and seconds match.
	Alarm1Minute Alarm1Mode = 0x0C
	// Alarm1Hour fires when hours, minutes and seconds match.
	Alarm1Hour Alarm1Mode = 0x08
	// Alarm1DayOfMonth fires when date, hours, minutes and seconds match.
	Alarm1DayOfMonth Alarm1Mode = 0x00
	// Alarm1DayOfWeek fires when day, hours, minutes and seconds match.
	Alarm1DayOfWeek Alarm1Mode = 0x10
)

// Alarm2Mode selects which fields alarm 2 matches on. Bits 0..2 are the
// A2M2..A2M4 mask flags and bit 3 is DY/DT. Alarm 2 has no seconds register
// and fires at second 00.
type Alarm2Mode byte

const (
	// Alarm2PerMinute fires once per minute.
	Alarm2PerMinute Alarm2Mode = 0x07
	// Alarm2Minute fires when the minutes match.
	Alarm2Minute Alarm2Mode = 0x06
	// Alarm2Hour fires when hours and minutes match.
	Alarm2Hour Alarm2Mode = 0x04
	// Alarm2DayOfMonth fires when date, hours and minutes match.
	Alarm2DayOfMonth Alarm2Mode = 0x00
	// Alarm2DayOfWeek fires when day, hours and minutes match.
	Alarm2DayOfWeek Alarm2Mode = 0x08
)

// AlarmTime is the position an alarm is compared against. Only one of Day
// and DayOfWeek is written, as chosen by the mode's DY/DT bit. Alarm 2
// ignores Second.
type AlarmTime struct {
	Day       int
	DayOfWeek int
	Hour      int
	Minute    int
	Second    int
}

func (dt DateTime) alarmTime() AlarmTime {
	return AlarmTime{Day: dt.Day, DayOfWeek: dt.DayOfWeek, Hour: dt.Hour, Minute: dt.Minute, Second: dt.Second}
}

// dateSelector is the content of an alarm day register: either a day of
// the month or a day of the week, never both.
type dateSelector struct {
	n       int
	weekday bool
}

func dayOfMonth(n int) dateSelector { return dateSelector{n: n} }
func dayOfWeek(n int) dateSelector { return dateSelector{n: n, weekday: true} }

func (s dateSelector) encode() byte {
	b := common.ToBCD(byte(s.n))
	if s.weekday {
		b |= alarmDYDT
	}
	return b
}

func decodeDateSelector(b byte) dateSelector {
	return dateSelector{n: int(common.FromBCD(b & 0x3f)), weekday: b&alarmDYDT != 0}
}

func (s dateSelector) apply(at *AlarmTime) {
	if s.weekday {
		at.DayOfWeek = s.n
	} else {
		at.Day = s.n
	}
}

func selectDay(at AlarmTime, weekday bool) dateSelector {
	if weekday {
		return dayOfWeek(at.DayOfWeek)
	}
	return dayOfMonth(at.Day)
}

// maskBit moves mode bit n to bit 7 of an alarm register.
func maskBit(mode byte, n uint) byte {
	return (mode >> n & 1) << 7
}

func (m Alarm1Mode) encode(at AlarmTime) []byte {
	day := selectDay(at, m&0x10 != 0)
	return []byte{
		common.ToBCD(byte(at.Second)) | maskBit(byte(m), 0),
		common.ToBCD(byte(at.Minute)) | maskBit(byte(m), 1),
		common.ToBCD(byte(at.Hour)) | maskBit(byte(m), 2),
		day.encode() | maskBit(byte(m), 3),
	}
}

func decodeAlarm1(r []byte) (AlarmTime, Alarm1Mode) {
	var mode byte
	for i, b := range r[:4] {
		mode |= (b >> 7) << i
	}
	day := decodeDateSelector(r[3])
	if day.weekday {
		mode |= 0x10
	}
	at := AlarmTime{
		Second: int(common.FromBCD(r[0] &^ alarmMatch)),
		Minute: int(common.FromBCD(r[1] &^ alarmMatch)),
		Hour:   int(common.FromBCD(r[2] & 0x3f)),
	}
	day.apply(&at)
	return at, Alarm1Mode(mode)
}

func (m Alarm2Mode) encode(at AlarmTime) []byte {
	day := selectDay(at, m&0x08 != 0)
	return []byte{
		common.ToBCD(byte(at.Minute)) | maskBit(byte(m), 0),
		common.ToBCD(byte(at.Hour)) | maskBit(byte(m), 1),
		day.encode() | maskBit(byte(m), 2),
	}
}

func decodeAlarm2(r []byte) (AlarmTime, Alarm2Mode) {
	var mode byte
	for i, b := range r[:3] {
		mode |= (b >> 7) << i
	}
	day := decodeDateSelector(r[2])
	if day.weekday {
		mode |= 0x08
	}
	at := AlarmTime{
		Minute: int(common.FromBCD(r[0] &^ alarmMatch)),
		Hour:   int(common.FromBCD(r[1] & 0x3f)),
	}
	day.apply(&at)
	return at, Alarm2Mode(mode)
}

// SetAlarm1 programs alarm 1 and enables it.
//
// Both alarm flags are cleared, alarm 2 is disabled and the square wave is
// switched off so INT/SQW carries the alarm interrupt. The enable bit is
// only set when INTCN is set in the control register. A failed step does not
// stop the following ones; the alarm registers may be written even though
// the returned error reports that enabling failed.
func (d *Dev) SetAlarm1(at AlarmTime, mode Alarm1Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setAlarm(Alarm1, RegAlarm1, mode.encode(at))
}

// SetAlarm2 programs alarm 2 and enables it. It behaves like SetAlarm1 with
// the roles of the alarms swapped.
func (d *Dev) SetAlarm2(at AlarmTime, mode Alarm2Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setAlarm(Alarm2, RegAlarm2, mode.encode(at))
}

func (d *Dev) setAlarm(a Alarm, reg Register, payload []byte) error {
	var errs []error
	for _, n := range []Alarm{Alarm1, Alarm2} {
		if err := d.clearAlarm(n); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.disableAlarm(a.other()); err != nil {
		errs = append(errs, err)
	}
	if err := d.setSquareWave(SquareWaveOff); err != nil {
		errs = append(errs, err)
	}
	if err := d.writeBurst(reg, payload); err != nil {
		errs = append(errs, err)
	}
	ctrl, err := d.readRegister(RegControl)
	if err != nil {
		errs = append(errs, &PreconditionError{Op: fmt.Sprintf("enable alarm %d", a), Err: err})
	} else if ctrl&controlINTCN != 0 {
		if err := d.writeRegister(RegControl, ctrl|a.bit()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReadAlarm1 returns the programmed alarm 1 position and mode.
func (d *Dev) ReadAlarm1() (AlarmTime, Alarm1Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.readBlock(RegAlarm1, 4)
	if err != nil {
		return AlarmTime{}, 0, err
	}
	at, mode := decodeAlarm1(r)
	return at, mode, nil
}

// ReadAlarm2 returns the programmed alarm 2 position and mode.
func (d *Dev) ReadAlarm2() (AlarmTime, Alarm2Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, err := d.readBlock(RegAlarm2, 3)
	if err != nil {
		return AlarmTime{}, 0, err
	}
	at, mode := decodeAlarm2(r)
	return at, mode, nil
}

// SetTimer1 programs alarm 1 to fire off after the current time.
//
// See Future for the calendar arithmetic. If the current time can't be read
// nothing is written.
func (d *Dev) SetTimer1(off TimerOffset, mode Alarm1Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now, err := d.readCurrent()
	if err != nil {
		return &PreconditionError{Op: "set timer 1", Err: err}
	}
	return d.setAlarm(Alarm1, RegAlarm1, mode.encode(Future(now, off).alarmTime()))
}

// SetTimer2 programs alarm 2 to fire off after the current time. off.Seconds
// is ignored.
func (d *Dev) SetTimer2(off TimerOffset, mode Alarm2Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now, err := d.readCurrent()
	if err != nil {
		return &PreconditionError{Op: "set timer 2", Err: err}
	}
	off.Seconds = 0
	return d.setAlarm(Alarm2, RegAlarm2, mode.encode(Future(now, off).alarmTime()))
}

// Alarmed reports whether the alarm's flag is set in the status register.
// The flag stays set until ClearAlarm.
func (d *Dev) Alarmed(a Alarm) (bool, error) {
	if err := a.validate(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	status, err := d.readRegister(RegStatus)
	if err != nil {
		return false, err
	}
	return status&a.bit() != 0, nil
}

// ClearAlarm clears the alarm's flag, releasing the interrupt output.
func (d *Dev) ClearAlarm(a Alarm) error {
	if err := a.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearAlarm(a)
}

func (d *Dev) clearAlarm(a Alarm) error {
	return d.updateRegister(fmt.Sprintf("clear alarm %d", a), RegStatus, a.bit(), 0)
}

// DisableAlarm clears the alarm's interrupt enable bit. The alarm registers
// are left alone and the flag still gets set when the alarm matches.
func (d *Dev) DisableAlarm(a Alarm) error {
	if err := a.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disableAlarm(a)
}

func (d *Dev) disableAlarm(a Alarm) error {
	return d.updateRegister(fmt.Sprintf("disable alarm %d", a), RegControl, a.bit(), 0)
}
