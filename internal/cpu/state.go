package cpu

// Snapshot is a serialisable copy of everything the CPU owns except memory.
type Snapshot struct {
	Registers Registers
	Flags     Flags
	Status    State
	Fault     *Fault

	InterruptsEnabled bool
	EIShadow          bool
	Pending           bool
	PendingRST        byte
	Steps             uint64
}

// Snapshot captures the CPU state for a save state.
func (c *CPU) Snapshot() Snapshot {
	s := Snapshot{
		Registers:         c.Registers,
		Flags:             c.Flags,
		Status:            c.status.State,
		InterruptsEnabled: c.inte,
		EIShadow:          c.eiShadow,
		Pending:           c.pending,
		PendingRST:        c.pendingRST,
		Steps:             c.steps,
	}
	if c.status.Fault != nil {
		f := *c.status.Fault
		s.Fault = &f
	}
	return s
}

// Restore replaces the CPU state with a snapshot.
func (c *CPU) Restore(s Snapshot) {
	c.Registers = s.Registers
	c.Flags = s.Flags
	c.status = Status{State: s.Status, Fault: s.Fault}
	c.inte = s.InterruptsEnabled
	c.eiShadow = s.EIShadow
	c.pending = s.Pending
	c.pendingRST = s.PendingRST & 7
	c.steps = s.Steps
}

// Reset returns the CPU to standby with cleared registers, keeping memory
// and the attached IO.
func (c *CPU) Reset() {
	c.Restore(Snapshot{})
}
