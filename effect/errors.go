package effect

import "errors"

// ErrTableFull is returned by Table.Append once MaxSlots is reached.
var ErrTableFull = errors.New("effect: table is full")

// ErrNull signals that a Start call produced no usable configuration
// (the original's SOX_EFF_NULL): the slot should be removed from the
// chain rather than treated as fatal.
var ErrNull = errors.New("effect: no effect in this configuration")

// ErrDeadlock is returned by the scheduler when a Flow call consumes
// and produces zero samples without reporting EOF (spec §4.4's "Effect
// deadlock").
var ErrDeadlock = errors.New("effect: deadlock, no progress and no EOF")
