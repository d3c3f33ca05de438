package cpu

func bit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func add8(a, b byte, carryIn bool) (res byte, carry, aux bool) {
	ci := bit(carryIn)
	r := uint16(a) + uint16(b) + uint16(ci)
	res = byte(r)
	carry = r > 0xFF
	aux = (a&0x0F)+(b&0x0F)+ci > 0x0F
	return
}

// sub8 computes a-b-borrowIn. The 8080 subtracts by adding the complement,
// so aux is the carry out of bit 3 of a + ^b + !borrowIn.
func sub8(a, b byte, borrowIn bool) (res byte, borrow, aux bool) {
	bi := bit(borrowIn)
	res = a - b - bi
	borrow = uint16(a) < uint16(b)+uint16(bi)
	aux = (a&0x0F)+(^b&0x0F)+(1-bi) > 0x0F
	return
}

func and8(a, b byte) byte { return a & b }
func or8(a, b byte) byte  { return a | b }
func xor8(a, b byte) byte { return a ^ b }

func inr8(v byte) (res byte, aux bool) {
	res = v + 1
	aux = res&0x0F == 0
	return
}

// dcr8 follows the hardware: aux is set unless the low nibble borrowed.
func dcr8(v byte) (res byte, aux bool) {
	res = v - 1
	aux = res&0x0F != 0x0F
	return
}

func dad16(a, b uint16) (res uint16, carry bool) {
	r := uint32(a) + uint32(b)
	return uint16(r), r > 0xFFFF
}

// daa adjusts the accumulator to packed BCD after an addition.
func daa(a byte, carry, aux bool) (res byte, carryOut, auxOut bool) {
	var correction byte
	carryOut = carry
	lsb := a & 0x0F
	msb := a >> 4
	if aux || lsb > 9 {
		correction |= 0x06
	}
	if carry || msb > 9 || (msb >= 9 && lsb > 9) {
		correction |= 0x60
		carryOut = true
	}
	res, _, auxOut = add8(a, correction, false)
	return
}

// The methods below apply an ALU result to the flags and accumulator.

func (c *CPU) arith(res byte, carry, aux bool) {
	c.Flags.setZSP(res)
	c.Flags.Carry = carry
	c.Flags.AuxCarry = aux
}

func (c *CPU) logic(res byte) {
	c.A = res
	c.arith(res, false, false)
}

func (c *CPU) add(v byte, carryIn bool) {
	res, carry, aux := add8(c.A, v, carryIn)
	c.A = res
	c.arith(res, carry, aux)
}

func (c *CPU) sub(v byte, borrowIn bool) {
	res, borrow, aux := sub8(c.A, v, borrowIn)
	c.A = res
	c.arith(res, borrow, aux)
}

func (c *CPU) cmp(v byte) {
	res, borrow, aux := sub8(c.A, v, false)
	c.arith(res, borrow, aux)
}

func (c *CPU) inr(v byte) byte {
	res, aux := inr8(v)
	c.Flags.setZSP(res)
	c.Flags.AuxCarry = aux
	return res
}

func (c *CPU) dcr(v byte) byte {
	res, aux := dcr8(v)
	c.Flags.setZSP(res)
	c.Flags.AuxCarry = aux
	return res
}

func (c *CPU) rlc() {
	cy := c.A >> 7
	c.A = c.A<<1 | cy
	c.Flags.Carry = cy == 1
}

func (c *CPU) rrc() {
	cy := c.A & 1
	c.A = c.A>>1 | cy<<7
	c.Flags.Carry = cy == 1
}

func (c *CPU) ral() {
	cy := c.A >> 7
	c.A = c.A<<1 | bit(c.Flags.Carry)
	c.Flags.Carry = cy == 1
}

func (c *CPU) rar() {
	cy := c.A & 1
	c.A = c.A>>1 | bit(c.Flags.Carry)<<7
	c.Flags.Carry = cy == 1
}
