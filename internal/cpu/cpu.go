// Package cpu implements the Intel 8080 instruction set.
package cpu

import (
	"context"
	"fmt"
)

// Memory is the address space the CPU executes from.
type Memory interface {
	ReadByte(addr uint16) byte
	WriteByte(addr uint16, value byte)
}

// IO receives IN and OUT instructions.
type IO interface {
	In(port byte) byte
	Out(port byte, value byte)
}

type nopIO struct{}

func (nopIO) In(byte) byte   { return 0 }
func (nopIO) Out(byte, byte) {}

// ctxCheckInterval is how many instructions Run executes between context checks.
const ctxCheckInterval = 4096

// CPU is one 8080 processor bound to its memory.
type CPU struct {
	Registers
	Flags Flags

	mem    Memory
	io     IO
	status Status

	inte bool // interrupt enable
	// EI takes effect after the instruction that follows it
	eiShadow   bool
	pending    bool
	pendingRST byte

	steps uint64

	// set by instructions that load PC themselves
	jumped bool
}

// New creates a CPU in standby with all registers and flags cleared.
func New(mem Memory) *CPU {
	return &CPU{mem: mem, io: nopIO{}}
}

// SetIO attaches the port handler. nil restores the default which reads 0
// and discards writes.
func (c *CPU) SetIO(io IO) {
	if io == nil {
		io = nopIO{}
	}
	c.io = io
}

func (c *CPU) Status() Status { return c.status }

// Steps is the number of instructions executed, including serviced interrupts.
func (c *CPU) Steps() uint64 { return c.steps }

// InterruptsEnabled reports the state of the INTE flip-flop.
func (c *CPU) InterruptsEnabled() bool { return c.inte }

// RequestInterrupt latches an interrupt that executes RST n at the next
// instruction boundary where interrupts are enabled. A later request
// replaces an earlier one that has not been serviced yet.
func (c *CPU) RequestInterrupt(n byte) {
	c.pending = true
	c.pendingRST = n & 7
}

// InterruptPending reports whether a requested interrupt is still latched.
func (c *CPU) InterruptPending() bool { return c.pending }

func (c *CPU) read8(addr uint16) byte     { return c.mem.ReadByte(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.mem.WriteByte(addr, v) }

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) push16(v uint16) {
	c.SP -= 2
	c.write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.SP)
	c.SP += 2
	return v
}

// jump loads PC and suppresses the automatic advance for this step.
func (c *CPU) jump(addr uint16) {
	c.PC = addr
	c.jumped = true
}

func (c *CPU) call(addr uint16, ret uint16) {
	c.push16(ret)
	c.jump(addr)
}

// Step executes exactly one instruction, or services a pending interrupt.
// Guest faults are reported through Status, not as errors.
func (c *CPU) Step() error {
	if c.status.Terminal() {
		return fmt.Errorf("%w: %s", ErrInvalidState, c.status)
	}
	c.status.State = Running

	if c.pending && c.inte && !c.eiShadow {
		c.pending = false
		c.inte = false
		c.steps++
		c.push16(c.PC)
		c.PC = uint16(c.pendingRST) * 8
		return nil
	}
	c.eiShadow = false

	pc := c.PC
	op := c.read8(pc)
	in := &instructionSet[op]
	if !in.Defined() {
		c.status = Status{State: Faulted, Fault: &Fault{Opcode: op, Address: pc}}
		return nil
	}

	c.jumped = false
	c.execute(in)
	c.steps++

	if c.status.State == Halted {
		return nil
	}
	if !c.jumped {
		c.PC = pc + in.Length
	}
	return nil
}

// Run steps until the CPU halts or faults. It checks ctx between
// instructions and returns ctx.Err() when cancelled. A guest that loops
// forever runs until cancelled.
func (c *CPU) Run(ctx context.Context) error {
	for {
		for i := 0; i < ctxCheckInterval; i++ {
			if c.status.Terminal() {
				return nil
			}
			if err := c.Step(); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// RunFor executes at most n instructions and returns how many ran. It
// stops early on a terminal status or a cancelled context.
func (c *CPU) RunFor(ctx context.Context, n int) (int, error) {
	for i := 0; i < n; i++ {
		if c.status.Terminal() {
			return i, nil
		}
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}
		if err := c.Step(); err != nil {
			return i, err
		}
	}
	return n, nil
}
