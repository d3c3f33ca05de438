package cpu

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when stepping a halted or faulted CPU.
	ErrInvalidState = errors.New("cpu is not runnable")

	// ErrUnknownOpcode is the cause of a fault on an unassigned opcode.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// State is the execution state of the CPU.
type State byte

const (
	Standby State = iota
	Running
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Standby:
		return "standby"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", byte(s))
}

// Fault describes why execution stopped.
type Fault struct {
	Opcode  byte
	Address uint16
}

func (f *Fault) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X at 0x%04X", f.Opcode, f.Address)
}

func (f *Fault) Unwrap() error { return ErrUnknownOpcode }

// Status is the state plus the fault that caused it, if any.
type Status struct {
	State State
	Fault *Fault
}

// Terminal reports whether no further instruction can execute.
func (s Status) Terminal() bool {
	return s.State == Halted || s.State == Faulted
}

// Reason is the fault description, empty unless faulted.
func (s Status) Reason() string {
	if s.Fault == nil {
		return ""
	}
	return s.Fault.Error()
}

// Err returns the fault as an error, nil unless faulted.
func (s Status) Err() error {
	if s.Fault == nil {
		return nil
	}
	return s.Fault
}

func (s Status) String() string {
	if s.State == Faulted && s.Fault != nil {
		return fmt.Sprintf("%s: %s", s.State, s.Fault)
	}
	return s.State.String()
}
