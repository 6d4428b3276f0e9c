package main

import "errors"

// ErrKernelTimeout is returned when a coprocessor kernel does not
// signal the expected control bit within its polling budget (§5, §7).
var ErrKernelTimeout = errors.New("coprocessor kernel: polling budget exhausted")

// ErrBatchOverflow is returned when a flush's encoded batch (explicit
// or mid-frame) does not fit the command-buffer region (command_builder.go's
// flushLocked), distinguishing a genuine capacity overflow from any
// other shared-region write failure.
var ErrBatchOverflow = errors.New("command batch: capacity exceeded")
