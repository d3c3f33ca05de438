package cpu

// imm8 and imm16 read the operand bytes that follow the opcode at PC.
func (c *CPU) imm8() byte    { return c.read8(c.PC + 1) }
func (c *CPU) imm16() uint16 { return c.read16(c.PC + 1) }

// load8 reads a byte operand.
func (c *CPU) load8(o Operand) byte {
	switch o.Mode {
	case ModeRegister:
		return c.Registers.Get(o.Reg)
	case ModeMemory:
		return c.read8(c.HL())
	case ModeIndirect:
		return c.read8(c.Registers.Pair(o.Pair))
	case ModeImmediate8, ModePort:
		return c.imm8()
	case ModeAbsolute:
		return c.read8(c.imm16())
	}
	return 0
}

// store8 writes a byte operand.
func (c *CPU) store8(o Operand, v byte) {
	switch o.Mode {
	case ModeRegister:
		c.Registers.Set(o.Reg, v)
	case ModeMemory:
		c.write8(c.HL(), v)
	case ModeIndirect:
		c.write8(c.Registers.Pair(o.Pair), v)
	case ModeAbsolute:
		c.write8(c.imm16(), v)
	}
}

// load16 reads a word operand.
func (c *CPU) load16(o Operand) uint16 {
	switch o.Mode {
	case ModePair:
		if o.Pair == PairPSW {
			return uint16(c.A)<<8 | uint16(c.Flags.Byte())
		}
		return c.Registers.Pair(o.Pair)
	case ModeImmediate16:
		return c.imm16()
	case ModeAbsolute:
		return c.read16(c.imm16())
	}
	return 0
}

// store16 writes a word operand.
func (c *CPU) store16(o Operand, v uint16) {
	switch o.Mode {
	case ModePair:
		if o.Pair == PairPSW {
			c.A = byte(v >> 8)
			c.Flags.SetByte(byte(v))
			return
		}
		c.Registers.SetPair(o.Pair, v)
	case ModeAbsolute:
		c.write16(c.imm16(), v)
	}
}

// execute performs one decoded instruction. PC still points at its opcode.
func (c *CPU) execute(in *Instruction) {
	next := c.PC + in.Length

	switch in.Op {
	case OpNop:
	case OpHlt:
		c.status.State = Halted

	// data transfer, no flags
	case OpMov, OpMvi, OpLda, OpSta, OpLdax, OpStax:
		c.store8(in.Dst, c.load8(in.Src))
	case OpLxi, OpLhld, OpShld, OpSphl:
		c.store16(in.Dst, c.load16(in.Src))
	case OpXchg:
		hl := c.HL()
		c.SetHL(c.DE())
		c.SetDE(hl)
	case OpXthl:
		v := c.read16(c.SP)
		c.write16(c.SP, c.HL())
		c.SetHL(v)
	case OpPchl:
		c.jump(c.HL())

	// arithmetic and logic on the accumulator
	case OpAdd:
		c.add(c.load8(in.Src), false)
	case OpAdc:
		c.add(c.load8(in.Src), c.Flags.Carry)
	case OpSub:
		c.sub(c.load8(in.Src), false)
	case OpSbb:
		c.sub(c.load8(in.Src), c.Flags.Carry)
	case OpAna:
		c.logic(and8(c.A, c.load8(in.Src)))
	case OpXra:
		c.logic(xor8(c.A, c.load8(in.Src)))
	case OpOra:
		c.logic(or8(c.A, c.load8(in.Src)))
	case OpCmp:
		c.cmp(c.load8(in.Src))

	// increment and decrement
	case OpInr:
		c.store8(in.Dst, c.inr(c.load8(in.Dst)))
	case OpDcr:
		c.store8(in.Dst, c.dcr(c.load8(in.Dst)))
	case OpInx:
		c.store16(in.Dst, c.load16(in.Dst)+1)
	case OpDcx:
		c.store16(in.Dst, c.load16(in.Dst)-1)
	case OpDad:
		res, carry := dad16(c.HL(), c.load16(in.Src))
		c.SetHL(res)
		c.Flags.Carry = carry

	// accumulator and carry specials
	case OpDaa:
		res, carry, aux := daa(c.A, c.Flags.Carry, c.Flags.AuxCarry)
		c.A = res
		c.arith(res, carry, aux)
	case OpCma:
		c.A = ^c.A
	case OpStc:
		c.Flags.Carry = true
	case OpCmc:
		c.Flags.Carry = !c.Flags.Carry
	case OpRlc:
		c.rlc()
	case OpRrc:
		c.rrc()
	case OpRal:
		c.ral()
	case OpRar:
		c.rar()

	// control flow
	case OpJmp:
		c.jump(c.imm16())
	case OpJcc:
		if in.Cond.Holds(c.Flags) {
			c.jump(c.imm16())
		}
	case OpCall:
		c.call(c.imm16(), next)
	case OpCcc:
		if in.Cond.Holds(c.Flags) {
			c.call(c.imm16(), next)
		}
	case OpRet:
		c.jump(c.pop16())
	case OpRcc:
		if in.Cond.Holds(c.Flags) {
			c.jump(c.pop16())
		}
	case OpRst:
		c.call(uint16(in.Vector)*8, next)

	// stack
	case OpPush:
		c.push16(c.load16(in.Src))
	case OpPop:
		c.store16(in.Dst, c.pop16())

	// machine control and I/O
	case OpIn:
		c.A = c.io.In(c.imm8())
	case OpOut:
		c.io.Out(c.imm8(), c.A)
	case OpEi:
		c.inte = true
		c.eiShadow = true
	case OpDi:
		c.inte = false
	}
}
