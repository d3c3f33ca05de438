// Package disasm renders 8080 instructions as assembler text.
package disasm

import (
	"fmt"
	"strings"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
)

// Reader is the memory the disassembler reads from.
type Reader interface {
	ReadByte(addr uint16) byte
}

// Line is one disassembled instruction.
type Line struct {
	Address uint16
	Bytes   []byte
	Text    string
}

func (l Line) String() string {
	hex := make([]string, len(l.Bytes))
	for i, b := range l.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%04X  %-8s  %s", l.Address, strings.Join(hex, " "), l.Text)
}

// Instruction disassembles the instruction at addr and returns its text
// and length in bytes. Unassigned opcodes render as a data byte.
func Instruction(mem Reader, addr uint16) (string, uint16) {
	op := mem.ReadByte(addr)
	in := cpu.Lookup(op)
	if !in.Defined() {
		return fmt.Sprintf("DB $%02X", op), 1
	}

	var imm uint16
	switch in.Length {
	case 2:
		imm = uint16(mem.ReadByte(addr + 1))
	case 3:
		imm = uint16(mem.ReadByte(addr+1)) | uint16(mem.ReadByte(addr+2))<<8
	}

	var shown []cpu.Operand
	switch in.Op {
	case cpu.OpMov, cpu.OpMvi, cpu.OpLxi:
		shown = []cpu.Operand{in.Dst, in.Src}
	case cpu.OpSta, cpu.OpStax, cpu.OpShld, cpu.OpOut,
		cpu.OpInr, cpu.OpDcr, cpu.OpInx, cpu.OpDcx, cpu.OpPop:
		shown = []cpu.Operand{in.Dst}
	case cpu.OpSphl:
	default:
		// accumulator, HL and SP destinations are implicit in the mnemonic
		shown = []cpu.Operand{in.Src}
	}

	var args []string
	if in.Op == cpu.OpRst {
		args = append(args, fmt.Sprint(in.Vector))
	}
	for _, o := range shown {
		if s := operand(o, imm); s != "" {
			args = append(args, s)
		}
	}

	text := in.Mnemonic()
	if len(args) > 0 {
		text += " " + strings.Join(args, ",")
	}
	return text, in.Length
}

func operand(o cpu.Operand, imm uint16) string {
	switch o.Mode {
	case cpu.ModeRegister, cpu.ModeMemory:
		return o.Reg.String()
	case cpu.ModePair, cpu.ModeIndirect:
		return o.Pair.String()
	case cpu.ModeImmediate8, cpu.ModePort:
		return fmt.Sprintf("$%02X", imm)
	case cpu.ModeImmediate16, cpu.ModeAbsolute:
		return fmt.Sprintf("$%04X", imm)
	}
	return ""
}

// Range disassembles count instructions starting at addr.
func Range(mem Reader, addr uint16, count int) []Line {
	lines := make([]Line, 0, count)
	for i := 0; i < count; i++ {
		text, n := Instruction(mem, addr)
		raw := make([]byte, n)
		for j := uint16(0); j < n; j++ {
			raw[j] = mem.ReadByte(addr + j)
		}
		lines = append(lines, Line{Address: addr, Bytes: raw, Text: text})
		addr += n
	}
	return lines
}
