// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds3231 controls a Maxim DS3231 real-time clock over I²C.
//
// The driver reads and calibrates the time keeping registers, reads the
// on-die temperature sensor, and programs the two alarms either at an
// absolute wall-clock position or relative to the current time.
//
// All values cross the bus as packed BCD. The driver performs no range
// checks: a month of 13 is encoded and written as-is.
//
// The INT/SQW pin is shared between the square-wave generator and the alarm
// interrupt output. Programming an alarm therefore switches the square wave
// off.
//
// The temperature sensor is exposed through physic.SenseEnv. The device
// refreshes it every 64 seconds.
//
// # Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/DS3231.pdf
package ds3231
