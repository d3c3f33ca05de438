package cpu

import "fmt"

// Mode describes where an operand lives.
type Mode byte

const (
	ModeImplied     Mode = iota
	ModeRegister         // 8-bit register
	ModeMemory           // byte at (HL)
	ModeIndirect         // byte at (BC) or (DE)
	ModePair             // 16-bit register pair
	ModeImmediate8       // byte following the opcode
	ModeImmediate16      // word following the opcode
	ModeAbsolute         // byte or word at the address following the opcode
	ModePort             // port number following the opcode
)

// Operand is one resolved source or destination.
type Operand struct {
	Mode Mode
	Reg  Register
	Pair Pair
}

// Op tags the behaviour of an opcode. The dispatcher switches on it.
type Op byte

const (
	OpIllegal Op = iota
	OpNop
	OpHlt
	OpMov
	OpMvi
	OpLxi
	OpLda
	OpSta
	OpLhld
	OpShld
	OpLdax
	OpStax
	OpXchg
	OpXthl
	OpSphl
	OpPchl
	OpAdd
	OpAdc
	OpSub
	OpSbb
	OpAna
	OpXra
	OpOra
	OpCmp
	OpInr
	OpDcr
	OpInx
	OpDcx
	OpDad
	OpDaa
	OpCma
	OpStc
	OpCmc
	OpRlc
	OpRrc
	OpRal
	OpRar
	OpJmp
	OpJcc
	OpCall
	OpCcc
	OpRet
	OpRcc
	OpRst
	OpPush
	OpPop
	OpIn
	OpOut
	OpEi
	OpDi
)

var opNames = [...]string{
	OpIllegal: "???",
	OpNop:     "NOP", OpHlt: "HLT",
	OpMov: "MOV", OpMvi: "MVI", OpLxi: "LXI",
	OpLda: "LDA", OpSta: "STA", OpLhld: "LHLD", OpShld: "SHLD",
	OpLdax: "LDAX", OpStax: "STAX",
	OpXchg: "XCHG", OpXthl: "XTHL", OpSphl: "SPHL", OpPchl: "PCHL",
	OpAdd: "ADD", OpAdc: "ADC", OpSub: "SUB", OpSbb: "SBB",
	OpAna: "ANA", OpXra: "XRA", OpOra: "ORA", OpCmp: "CMP",
	OpInr: "INR", OpDcr: "DCR", OpInx: "INX", OpDcx: "DCX", OpDad: "DAD",
	OpDaa: "DAA", OpCma: "CMA", OpStc: "STC", OpCmc: "CMC",
	OpRlc: "RLC", OpRrc: "RRC", OpRal: "RAL", OpRar: "RAR",
	OpJmp: "JMP", OpJcc: "J", OpCall: "CALL", OpCcc: "C",
	OpRet: "RET", OpRcc: "R", OpRst: "RST",
	OpPush: "PUSH", OpPop: "POP", OpIn: "IN", OpOut: "OUT",
	OpEi: "EI", OpDi: "DI",
}

// immediate forms of the eight ALU operations use different mnemonics
var immNames = map[Op]string{
	OpAdd: "ADI", OpAdc: "ACI", OpSub: "SUI", OpSbb: "SBI",
	OpAna: "ANI", OpXra: "XRI", OpOra: "ORI", OpCmp: "CPI",
}

func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", byte(o))
}

// Condition is the three-bit condition field of Jcc, Ccc and Rcc.
type Condition byte

const (
	CondNZ Condition = iota
	CondZ
	CondNC
	CondC
	CondPO
	CondPE
	CondP
	CondM
)

var condNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

func (cc Condition) String() string { return condNames[cc&7] }

// Holds reports whether the condition is true for the given flags.
func (cc Condition) Holds(f Flags) bool {
	switch cc & 7 {
	case CondNZ:
		return !f.Zero
	case CondZ:
		return f.Zero
	case CondNC:
		return !f.Carry
	case CondC:
		return f.Carry
	case CondPO:
		return !f.Parity
	case CondPE:
		return f.Parity
	case CondP:
		return !f.Sign
	default:
		return f.Sign
	}
}

// Instruction is the decoded form of one opcode.
type Instruction struct {
	Opcode byte
	Op     Op
	Length uint16
	Dst    Operand
	Src    Operand
	Cond   Condition
	Vector byte // RST number
}

// Defined reports whether the opcode is assigned on the 8080.
func (in Instruction) Defined() bool { return in.Op != OpIllegal }

// Mnemonic returns the assembler mnemonic, including the condition suffix
// for conditional forms.
func (in Instruction) Mnemonic() string {
	switch in.Op {
	case OpJcc, OpCcc, OpRcc:
		return in.Op.String() + in.Cond.String()
	case OpAdd, OpAdc, OpSub, OpSbb, OpAna, OpXra, OpOra, OpCmp:
		if in.Src.Mode == ModeImmediate8 {
			return immNames[in.Op]
		}
	}
	return in.Op.String()
}

var instructionSet [256]Instruction

func init() {
	for i := range instructionSet {
		instructionSet[i] = decode(byte(i))
	}
}

// Lookup returns the decoded instruction for an opcode.
func Lookup(opcode byte) Instruction {
	return instructionSet[opcode]
}

func reg(r Register) Operand {
	if r == RegM {
		return Operand{Mode: ModeMemory, Reg: RegM}
	}
	return Operand{Mode: ModeRegister, Reg: r}
}

func pair(p Pair) Operand { return Operand{Mode: ModePair, Pair: p} }

var (
	accumulator = Operand{Mode: ModeRegister, Reg: RegA}
	immediate8  = Operand{Mode: ModeImmediate8}
	immediate16 = Operand{Mode: ModeImmediate16}
	absolute    = Operand{Mode: ModeAbsolute}
	portNumber  = Operand{Mode: ModePort}
)

// decode resolves operands and length from the opcode bit fields:
// xx ddd sss, with rp = ddd>>1 for register pair forms.
func decode(op byte) Instruction {
	in := Instruction{Opcode: op, Length: 1}
	ddd := Register(op >> 3 & 7)
	sss := Register(op & 7)
	rp := Pair(op >> 4 & 3)

	switch op >> 6 {
	case 0:
		decodeLow(&in, ddd, rp)
	case 1:
		if op == 0x76 {
			in.Op = OpHlt
			return in
		}
		in.Op = OpMov
		in.Dst, in.Src = reg(ddd), reg(sss)
	case 2:
		in.Op = aluOps[ddd]
		in.Dst, in.Src = accumulator, reg(sss)
	case 3:
		decodeHigh(&in, ddd, sss, rp)
	}
	return in
}

var aluOps = [8]Op{OpAdd, OpAdc, OpSub, OpSbb, OpAna, OpXra, OpOra, OpCmp}

func decodeLow(in *Instruction, ddd Register, rp Pair) {
	op := in.Opcode
	switch op & 7 {
	case 0:
		if op == 0x00 {
			in.Op = OpNop
		}
		// 0x08..0x38 are unassigned
	case 1:
		if op&0x08 == 0 {
			in.Op, in.Length = OpLxi, 3
			in.Dst, in.Src = pair(rp), immediate16
		} else {
			in.Op = OpDad
			in.Dst, in.Src = pair(PairHL), pair(rp)
		}
	case 2:
		switch op {
		case 0x02, 0x12:
			in.Op = OpStax
			in.Dst, in.Src = Operand{Mode: ModeIndirect, Pair: rp}, accumulator
		case 0x0A, 0x1A:
			in.Op = OpLdax
			in.Dst, in.Src = accumulator, Operand{Mode: ModeIndirect, Pair: rp}
		case 0x22:
			in.Op, in.Length = OpShld, 3
			in.Dst, in.Src = absolute, pair(PairHL)
		case 0x2A:
			in.Op, in.Length = OpLhld, 3
			in.Dst, in.Src = pair(PairHL), absolute
		case 0x32:
			in.Op, in.Length = OpSta, 3
			in.Dst, in.Src = absolute, accumulator
		case 0x3A:
			in.Op, in.Length = OpLda, 3
			in.Dst, in.Src = accumulator, absolute
		}
	case 3:
		if op&0x08 == 0 {
			in.Op = OpInx
		} else {
			in.Op = OpDcx
		}
		in.Dst = pair(rp)
	case 4:
		in.Op = OpInr
		in.Dst = reg(ddd)
	case 5:
		in.Op = OpDcr
		in.Dst = reg(ddd)
	case 6:
		in.Op, in.Length = OpMvi, 2
		in.Dst, in.Src = reg(ddd), immediate8
	case 7:
		in.Op = [8]Op{OpRlc, OpRrc, OpRal, OpRar, OpDaa, OpCma, OpStc, OpCmc}[ddd]
	}
}

func decodeHigh(in *Instruction, ddd, sss Register, rp Pair) {
	op := in.Opcode
	switch sss {
	case 0:
		in.Op = OpRcc
		in.Cond = Condition(ddd)
	case 1:
		switch {
		case op&0x08 == 0:
			in.Op = OpPop
			if rp == PairSP {
				rp = PairPSW
			}
			in.Dst = pair(rp)
		case op == 0xC9:
			in.Op = OpRet
		case op == 0xE9:
			in.Op = OpPchl
		case op == 0xF9:
			in.Op = OpSphl
			in.Dst, in.Src = pair(PairSP), pair(PairHL)
		}
		// 0xD9 is unassigned
	case 2:
		in.Op, in.Length = OpJcc, 3
		in.Cond = Condition(ddd)
		in.Src = immediate16
	case 3:
		switch op {
		case 0xC3:
			in.Op, in.Length = OpJmp, 3
			in.Src = immediate16
		case 0xD3:
			in.Op, in.Length = OpOut, 2
			in.Dst, in.Src = portNumber, accumulator
		case 0xDB:
			in.Op, in.Length = OpIn, 2
			in.Dst, in.Src = accumulator, portNumber
		case 0xE3:
			in.Op = OpXthl
		case 0xEB:
			in.Op = OpXchg
		case 0xF3:
			in.Op = OpDi
		case 0xFB:
			in.Op = OpEi
		}
		// 0xCB is unassigned
	case 4:
		in.Op, in.Length = OpCcc, 3
		in.Cond = Condition(ddd)
		in.Src = immediate16
	case 5:
		if op&0x08 == 0 {
			in.Op = OpPush
			if rp == PairSP {
				rp = PairPSW
			}
			in.Src = pair(rp)
		} else if op == 0xCD {
			in.Op, in.Length = OpCall, 3
			in.Src = immediate16
		}
		// 0xDD, 0xED and 0xFD are unassigned
	case 6:
		in.Op, in.Length = aluOps[ddd], 2
		in.Dst, in.Src = accumulator, immediate8
	case 7:
		in.Op = OpRst
		in.Vector = byte(ddd)
	}
}
