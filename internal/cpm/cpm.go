// Package cpm provides a minimal CP/M 2.2 BDOS so that .COM programs which
// only use console calls can run on the bare machine.
//
// Install writes three things into memory: a HLT at the warm boot vector
// 0x0000, a jump to the BDOS stub at the entry point 0x0005 and the stub
// itself. The stub hands every call except function 0 to the device on
// port 0xFF, which implements it in Go. Console reads never block: when no
// key is queued the device asks the stub to repeat the call, so the guest
// spins in the stub like a polling BIOS would.
package cpm

import (
	"errors"
	"fmt"
	"io"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/retroenv/retrogolib/log"
)

const (
	WarmBoot  = 0x0000
	Entry     = 0x0005
	StubAddr  = 0xFE00
	Port      = 0xFF
	StackTop  = StubAddr
	TPAOrigin = 0x0100

	// version reported by function 12: CP/M 2.2
	version = 0x22
	// returned when input is exhausted
	eofChar = 0x1A
)

var (
	// ErrUnimplemented is returned by Call for functions the shim lacks.
	ErrUnimplemented = errors.New("unimplemented BDOS function")
	// ErrReserved is returned for images that would be overwritten by Install.
	ErrReserved = errors.New("image overlaps CP/M reserved memory")
)

// stub is placed at StubAddr. After OUT the device answers IN with 1 when
// the call must be repeated. Results are returned in L and copied to A.
var stub = []byte{
	0x79,             // MOV A,C
	0xB7,             // ORA A
	0xCA, 0x00, 0x00, // JZ 0000
	0xD3, Port, // OUT FF
	0xDB, Port, // IN FF
	0xB7,             // ORA A
	0xC2, 0x00, 0xFE, // JNZ FE00
	0x7D, // MOV A,L
	0xC9, // RET
}

// Memory is the memory the BDOS reads strings from and writes buffers to.
type Memory interface {
	ReadByte(addr uint16) byte
	WriteByte(addr uint16, value byte)
}

// Keyboard supplies console input without blocking.
type Keyboard interface {
	// Key returns the next key, ok is false when none is queued.
	Key() (b byte, ok bool)
	KeyWaiting() bool
	// Ended reports that no further keys will arrive.
	Ended() bool
}

type handler struct {
	desc string
	fn   func(b *BDOS) error
}

// BDOS is the port device that services BDOS calls.
type BDOS struct {
	cpu    *cpu.CPU
	mem    Memory
	kb     Keyboard
	out    io.Writer
	logger *log.Logger

	calls map[byte]handler
	retry bool
	line  []byte

	Calls    int
	Warnings int
}

// New creates a BDOS reading console input from kb and writing console
// output to out. kb may be nil, reads then return ^Z.
func New(c *cpu.CPU, mem Memory, kb Keyboard, out io.Writer, logger *log.Logger) *BDOS {
	b := &BDOS{
		cpu:    c,
		mem:    mem,
		kb:     kb,
		out:    out,
		logger: logger,
	}
	b.calls = map[byte]handler{
		1:  {"C_READ", (*BDOS).readChar},
		2:  {"C_WRITE", (*BDOS).writeChar},
		6:  {"C_RAWIO", (*BDOS).rawIO},
		9:  {"C_WRITESTR", (*BDOS).writeString},
		10: {"C_READSTR", (*BDOS).readString},
		11: {"C_STAT", (*BDOS).status},
		12: {"S_BDOSVER", (*BDOS).version},
		25: {"DRV_GET", (*BDOS).driveGet},
	}
	return b
}

// Install writes the warm boot trap, the entry jump and the stub, and
// pushes a return address of 0x0000 so a final RET ends the program. It
// returns the initial stack pointer.
func Install(mem Memory) uint16 {
	mem.WriteByte(WarmBoot, 0x76) // HLT

	mem.WriteByte(Entry, 0xC3) // JMP StubAddr
	mem.WriteByte(Entry+1, byte(StubAddr&0xFF))
	mem.WriteByte(Entry+2, byte(StubAddr>>8))

	for i, v := range stub {
		mem.WriteByte(StubAddr+uint16(i), v)
	}

	sp := uint16(StackTop - 2)
	mem.WriteByte(sp, byte(WarmBoot&0xFF))
	mem.WriteByte(sp+1, byte(WarmBoot>>8))
	return sp
}

// CheckSegment returns ErrReserved when n bytes at origin touch what
// Install writes: the page zero vectors, the initial return address or
// the stub.
func CheckSegment(origin uint16, n int) error {
	start := int(origin)
	for _, r := range [][2]int{
		{WarmBoot, Entry + 3},
		{StackTop - 2, StubAddr + len(stub)},
	} {
		if n > 0 && start < r[1] && start+n > r[0] {
			return fmt.Errorf("%w: %d bytes at 0x%04X touch 0x%04X-0x%04X",
				ErrReserved, n, origin, r[0], r[1]-1)
		}
	}
	return nil
}

// In reports whether the last call has to be repeated.
func (b *BDOS) In(byte) byte {
	if b.retry {
		b.retry = false
		return 1
	}
	return 0
}

// Out services the function in register C.
func (b *BDOS) Out(_ byte, _ byte) {
	if err := b.Call(b.cpu.C); err != nil {
		b.Warnings++
		b.logger.Warn("BDOS call failed",
			log.Int("function", int(b.cpu.C)),
			log.Hex("pc", b.cpu.PC),
			log.Err(err))
	}
}

// Call runs BDOS function fn with the arguments in the CPU registers.
func (b *BDOS) Call(fn byte) error {
	b.Calls++
	b.retry = false
	h, ok := b.calls[fn]
	if !ok {
		b.setResult(0xFF)
		return fmt.Errorf("function %d: %w", fn, ErrUnimplemented)
	}
	b.logger.Debug("BDOS call",
		log.Int("function", int(fn)),
		log.String("name", h.desc),
		log.Hex("de", b.cpu.DE()))
	return h.fn(b)
}

// setResult stores an 8 bit result the way CP/M 2.2 does, in A and L with
// H and B cleared.
func (b *BDOS) setResult(v byte) {
	b.cpu.A = v
	b.cpu.SetHL(uint16(v))
	b.cpu.B = 0
}

func (b *BDOS) write(p ...byte) error {
	if b.out == nil {
		return nil
	}
	_, err := b.out.Write(p)
	return err
}

// readKey returns the next key, ^Z once input ended, or ok false when
// the caller has to wait.
func (b *BDOS) readKey() (byte, bool) {
	if b.kb == nil {
		return eofChar, true
	}
	if c, ok := b.kb.Key(); ok {
		return c, true
	}
	if b.kb.Ended() {
		return eofChar, true
	}
	return 0, false
}

func (b *BDOS) keyWaiting() bool {
	return b.kb != nil && b.kb.KeyWaiting()
}

func (b *BDOS) readChar() error {
	c, ok := b.readKey()
	if !ok {
		b.retry = true
		return nil
	}
	b.setResult(c)
	return b.write(c)
}

func (b *BDOS) writeChar() error {
	return b.write(b.cpu.E)
}

func (b *BDOS) rawIO() error {
	switch b.cpu.E {
	case 0xFF:
		var key byte
		if b.kb != nil {
			key, _ = b.kb.Key()
		}
		b.setResult(key)
		return nil
	default:
		return b.write(b.cpu.E)
	}
}

func (b *BDOS) writeString() error {
	addr := b.cpu.DE()
	var s []byte
	// a missing terminator stops after one full pass over memory
	for range 0x10000 {
		c := b.mem.ReadByte(addr)
		if c == '$' {
			return b.write(s...)
		}
		s = append(s, c)
		addr++
	}
	return fmt.Errorf("string at 0x%04X has no terminator", b.cpu.DE())
}

// readString fills the buffer at DE: byte 0 is the capacity, byte 1
// receives the length and the text follows. Keys collect across repeated
// calls until Enter, end of input or a full buffer.
func (b *BDOS) readString() error {
	addr := b.cpu.DE()
	capacity := int(b.mem.ReadByte(addr))
	for len(b.line) < capacity {
		c, ok := b.readKey()
		if !ok {
			b.retry = true
			return nil
		}
		if c == '\r' || c == '\n' || c == eofChar {
			break
		}
		b.line = append(b.line, c)
	}
	for i, c := range b.line {
		b.mem.WriteByte(addr+2+uint16(i), c)
	}
	b.mem.WriteByte(addr+1, byte(len(b.line)))
	b.line = b.line[:0]
	return nil
}

func (b *BDOS) status() error {
	if b.keyWaiting() {
		b.setResult(0xFF)
	} else {
		b.setResult(0)
	}
	return nil
}

func (b *BDOS) version() error {
	b.setResult(version)
	return nil
}

func (b *BDOS) driveGet() error {
	b.setResult(0)
	return nil
}
