package disasm

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/memory"
	"github.com/retroenv/retrogolib/assert"
)

func TestInstruction(t *testing.T) {
	tests := []struct {
		code   []byte
		text   string
		length uint16
	}{
		{[]byte{0x00}, "NOP", 1},
		{[]byte{0x01, 0x34, 0x12}, "LXI B,$1234", 3},
		{[]byte{0x31, 0x00, 0xF0}, "LXI SP,$F000", 3},
		{[]byte{0x02}, "STAX B", 1},
		{[]byte{0x1A}, "LDAX D", 1},
		{[]byte{0x22, 0x10, 0x40}, "SHLD $4010", 3},
		{[]byte{0x2A, 0x10, 0x40}, "LHLD $4010", 3},
		{[]byte{0x32, 0x00, 0x40}, "STA $4000", 3},
		{[]byte{0x3A, 0x00, 0x40}, "LDA $4000", 3},
		{[]byte{0x36, 0x5A}, "MVI M,$5A", 2},
		{[]byte{0x78}, "MOV A,B", 1},
		{[]byte{0x77}, "MOV M,A", 1},
		{[]byte{0x76}, "HLT", 1},
		{[]byte{0x86}, "ADD M", 1},
		{[]byte{0xFE, 0x0D}, "CPI $0D", 2},
		{[]byte{0x39}, "DAD SP", 1},
		{[]byte{0x34}, "INR M", 1},
		{[]byte{0x0B}, "DCX B", 1},
		{[]byte{0xC2, 0x00, 0x01}, "JNZ $0100", 3},
		{[]byte{0xCD, 0x05, 0x00}, "CALL $0005", 3},
		{[]byte{0xF8}, "RM", 1},
		{[]byte{0xF5}, "PUSH PSW", 1},
		{[]byte{0xE1}, "POP H", 1},
		{[]byte{0xDF}, "RST 3", 1},
		{[]byte{0xDB, 0x01}, "IN $01", 2},
		{[]byte{0xD3, 0xFF}, "OUT $FF", 2},
		{[]byte{0xF9}, "SPHL", 1},
		{[]byte{0xEB}, "XCHG", 1},
		{[]byte{0x08}, "DB $08", 1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			mem := memory.New()
			assert.NoError(t, mem.Load(0x0100, tt.code))
			text, n := Instruction(mem, 0x0100)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.length, n)
		})
	}
}

func TestRange(t *testing.T) {
	mem := memory.New()
	assert.NoError(t, mem.Load(0, []byte{0x3E, 0x01, 0xC3, 0x00, 0x00, 0x76}))
	lines := Range(mem, 0, 3)
	assert.Len(t, lines, 3)
	assert.Equal(t, uint16(0x0002), lines[1].Address)
	assert.Equal(t, "JMP $0000", lines[1].Text)
	assert.Equal(t, "0002  C3 00 00  JMP $0000", lines[1].String())
	assert.Equal(t, "HLT", lines[2].Text)
}
