// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds3231

import "fmt"

// BusError is returned when a register transfer did not complete, including
// a read that came back short.
type BusError struct {
	// Op is "read" or "write".
	Op       string
	Register Register
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("ds3231: %s %s: %v", e.Op, e.Register, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// PreconditionError is returned when an operation was abandoned because a
// register read it depends on failed. Nothing past the failed read was
// written.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v; %s not performed", e.Err, e.Op)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
