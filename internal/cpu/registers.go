package cpu

import "fmt"

// Register identifies an 8-bit operand by its three-bit encoding in the
// opcode. M is the memory cell addressed by HL.
type Register byte

const (
	RegB Register = iota
	RegC
	RegD
	RegE
	RegH
	RegL
	RegM
	RegA
)

var registerNames = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("Register(%d)", byte(r))
}

// Pair identifies a register pair by its two-bit encoding. PairPSW replaces
// PairSP in PUSH and POP.
type Pair byte

const (
	PairBC Pair = iota
	PairDE
	PairHL
	PairSP
	PairPSW
)

var pairNames = [5]string{"B", "D", "H", "SP", "PSW"}

// String returns the assembler name: the high register for BC, DE and HL.
func (p Pair) String() string {
	if int(p) < len(pairNames) {
		return pairNames[p]
	}
	return fmt.Sprintf("Pair(%d)", byte(p))
}

// Registers is the programmer visible register file minus the flags.
type Registers struct {
	A, B, C, D, E, H, L byte

	SP uint16
	PC uint16
}

// Get returns an 8-bit register. RegM has no storage here and reads as 0.
func (r *Registers) Get(reg Register) byte {
	switch reg {
	case RegB:
		return r.B
	case RegC:
		return r.C
	case RegD:
		return r.D
	case RegE:
		return r.E
	case RegH:
		return r.H
	case RegL:
		return r.L
	case RegA:
		return r.A
	}
	return 0
}

// Set writes an 8-bit register. Writes to RegM are ignored.
func (r *Registers) Set(reg Register, v byte) {
	switch reg {
	case RegB:
		r.B = v
	case RegC:
		r.C = v
	case RegD:
		r.D = v
	case RegE:
		r.E = v
	case RegH:
		r.H = v
	case RegL:
		r.L = v
	case RegA:
		r.A = v
	}
}

func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r *Registers) SetBC(v uint16) { r.B = byte(v >> 8); r.C = byte(v) }
func (r *Registers) SetDE(v uint16) { r.D = byte(v >> 8); r.E = byte(v) }
func (r *Registers) SetHL(v uint16) { r.H = byte(v >> 8); r.L = byte(v) }

// Pair returns BC, DE, HL or SP. PSW needs the flags and is handled by the CPU.
func (r *Registers) Pair(p Pair) uint16 {
	switch p {
	case PairBC:
		return r.BC()
	case PairDE:
		return r.DE()
	case PairHL:
		return r.HL()
	case PairSP:
		return r.SP
	}
	return 0
}

func (r *Registers) SetPair(p Pair, v uint16) {
	switch p {
	case PairBC:
		r.SetBC(v)
	case PairDE:
		r.SetDE(v)
	case PairHL:
		r.SetHL(v)
	case PairSP:
		r.SP = v
	}
}

func (r Registers) String() string {
	return fmt.Sprintf("A=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X PC=%04X",
		r.A, r.B, r.C, r.D, r.E, r.H, r.L, r.SP, r.PC)
}
