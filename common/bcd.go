// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, binary-coded decimal conversion of clock registers.
package common

// ToBCD converts a binary value into packed binary-coded decimal, the tens
// digit in the high nibble. Values above 99 are not rejected; the result is
// whatever the arithmetic produces, which is what the hardware will store.
func ToBCD(v byte) byte {
	return v + 6*(v/10)
}

// FromBCD converts a packed binary-coded decimal byte into its binary value.
// Flag bits sharing the byte must be masked off by the caller.
func FromBCD(v byte) byte {
	return v - 6*(v>>4)
}

// Update returns reg with the bits in mask cleared and the bits of value
// that fall inside mask set. Bits outside mask are preserved.
func Update(reg, mask, value byte) byte {
	return reg&^mask | value&mask
}
