// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rtc is a container for real-time clock drivers.
//
// Drivers talk to their device through periph.io/x/conn/v3/i2c; opening the
// bus and initializing the host is left to the caller.
package rtc
