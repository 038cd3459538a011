// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/rtc/common"
)

// DateTime is the content of the time keeping registers.
//
// Year is 2000..2099, Month 1..12, Day 1..31, Hour 0..23 (24 hour mode),
// Minute and Second 0..59 and DayOfWeek 1..7. The ranges are not enforced.
type DateTime struct {
	Year      int
	Month     int
	Day       int
	Hour      int
	Minute    int
	Second    int
	DayOfWeek int
}

// FromTime returns the wall clock fields of t in its own location. Sunday
// is day 7.
func FromTime(t time.Time) DateTime {
	dow := int(t.Weekday())
	if dow == 0 {
		dow = 7
	}
	return DateTime{
		Year:      t.Year(),
		Month:     int(t.Month()),
		Day:       t.Day(),
		Hour:      t.Hour(),
		Minute:    t.Minute(),
		Second:    t.Second(),
		DayOfWeek: dow,
	}
}

// Time returns dt as a UTC time.Time. DayOfWeek is ignored.
func (dt DateTime) Time() time.Time {
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.UTC)
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (day %d)", dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, dt.DayOfWeek)
}

// encode returns the seconds..year register block.
func (dt DateTime) encode() []byte {
	return []byte{
		common.ToBCD(byte(dt.Second)),
		common.ToBCD(byte(dt.Minute)),
		common.ToBCD(byte(dt.Hour)),
		common.ToBCD(byte(dt.DayOfWeek)),
		common.ToBCD(byte(dt.Day)),
		common.ToBCD(byte(dt.Month)),
		common.ToBCD(byte(dt.Year - 2000)),
	}
}

// decodeDateTime parses the seconds..year register block. The century bit
// of the month register is dropped.
func decodeDateTime(r []byte) DateTime {
	return DateTime{
		Second:    int(common.FromBCD(r[0])),
		Minute:    int(common.FromBCD(r[1])),
		Hour:      int(common.FromBCD(r[2])),
		DayOfWeek: int(common.FromBCD(r[3])),
		Day:       int(common.FromBCD(r[4])),
		Month:     int(common.FromBCD(r[5] &^ monthCentury)),
		Year:      int(common.FromBCD(r[6])) + 2000,
	}
}

// TimerOffset is a delay relative to the current time, added field by
// field. Fields are expected to be non-negative.
type TimerOffset struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// daysInMonth returns the length of month. Every year divisible by 4 is a
// leap year, which holds for 2000..2099. Invalid months count as 31 days.
func daysInMonth(month, year int) int {
	if month < 1 || month > 12 {
		return 31
	}
	if month == 2 && year%4 == 0 {
		return 29
	}
	return monthDays[month-1]
}

// Future returns now advanced by off, carrying seconds into minutes,
// minutes into hours and hours into days.
//
// The month never advances: a day past the end of the month wraps to the
// start of the same month. This is enough for alarm matching, which only
// looks at the day, but the returned Month and Year are those of now.
// DayOfWeek advances by the same number of days.
func Future(now DateTime, off TimerOffset) DateTime {
	s := now.Second + off.Seconds
	m := now.Minute + off.Minutes + s/60
	h := now.Hour + off.Hours + m/60
	days := off.Days + h/24

	next := now
	next.Second = s % 60
	next.Minute = m % 60
	next.Hour = h % 24
	next.Day = (now.Day-1+days)%daysInMonth(now.Month, now.Year) + 1
	next.DayOfWeek = (now.DayOfWeek-1+days)%7 + 1
	return next
}
