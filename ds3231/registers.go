// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"fmt"

	"github.com/GermanBionicSystems/rtc/common"
	"periph.io/x/conn/v3"
)

// Register is the address of a DS3231 register.
type Register byte

// Register blocks: seconds..year is 7 bytes, alarm 1 is 4 bytes, alarm 2 is
// 3 bytes and the temperature is an MSB followed by an LSB.
const (
	RegSeconds     Register = 0x00
	RegAlarm1      Register = 0x07
	RegAlarm2      Register = 0x0B
	RegControl     Register = 0x0E
	RegStatus      Register = 0x0F
	RegAgingOffset Register = 0x10
	RegTemperature Register = 0x11
)

func (r Register) String() string {
	switch r {
	case RegSeconds:
		return "time register"
	case RegAlarm1:
		return "alarm1 register"
	case RegAlarm2:
		return "alarm2 register"
	case RegControl:
		return "control register"
	case RegStatus:
		return "status register"
	case RegAgingOffset:
		return "aging offset register"
	case RegTemperature:
		return "temperature register"
	default:
		return fmt.Sprintf("register %#02x", byte(r))
	}
}

// Control register bits. A1IE and A2IE are bits 0 and 1, see Alarm.bit.
const (
	controlINTCN byte = 1 << 2
	controlRS1   byte = 1 << 3
	controlRS2   byte = 1 << 4

	controlSquareWave = controlINTCN | controlRS1 | controlRS2
)

// Status register bits. A1F and A2F are bits 0 and 1, see Alarm.bit.
const (
	statusEN32kHz byte = 1 << 3
	statusOSF     byte = 1 << 7
)

// Flag bits shared with BCD fields.
const (
	monthCentury byte = 1 << 7
	alarmMatch   byte = 1 << 7
	alarmDYDT    byte = 1 << 6
)

// readRegister reads a single register.
func (d *Dev) readRegister(reg Register) (byte, error) {
	r, err := readBlock(d.d, reg, 1)
	if err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Dev) readBlock(reg Register, n int) ([]byte, error) {
	return readBlock(d.d, reg, n)
}

func (d *Dev) writeRegister(reg Register, value byte) error {
	return writeBurst(d.d, reg, []byte{value})
}

func (d *Dev) writeBurst(reg Register, data []byte) error {
	return writeBurst(d.d, reg, data)
}

// updateRegister replaces the bits of reg selected by mask with value,
// preserving the rest. op names the operation for a failed read.
func (d *Dev) updateRegister(op string, reg Register, mask, value byte) error {
	current, err := d.readRegister(reg)
	if err != nil {
		return &PreconditionError{Op: op, Err: err}
	}
	return d.writeRegister(reg, common.Update(current, mask, value))
}

// readBlock writes the start address then reads n consecutive registers in
// the same transaction. A short read is reported by c as an error.
func readBlock(c conn.Conn, reg Register, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := c.Tx([]byte{byte(reg)}, r); err != nil {
		return nil, &BusError{Op: "read", Register: reg, Err: err}
	}
	return r, nil
}

// writeBurst writes data starting at reg in one transaction. The device
// increments its register pointer after every byte.
func writeBurst(c conn.Conn, reg Register, data []byte) error {
	w := make([]byte, 0, len(data)+1)
	w = append(w, byte(reg))
	w = append(w, data...)
	if err := c.Tx(w, nil); err != nil {
		return &BusError{Op: "write", Register: reg, Err: err}
	}
	return nil
}
