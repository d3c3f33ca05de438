package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/memory"
	"github.com/retroenv/retrogolib/assert"
)

func TestRegisterLines(t *testing.T) {
	mem := memory.New()
	c := cpu.New(mem)
	c.A = 0x12
	c.SetBC(0x3456)
	c.SP = 0x0100
	c.Flags.Zero = true

	lines := registerLines(c)
	assert.Len(t, lines, 3)
	assert.Equal(t, "A=12  BC=3456  DE=0000  HL=0000", lines[0])
	assert.Equal(t, "SP=0100  PC=0000  F=42 sZ-a-p-c  DI", lines[1])
	assert.Equal(t, "standby  steps=0", lines[2])
}

func TestDisasmLines(t *testing.T) {
	mem := memory.New()
	assert.NoError(t, mem.Load(0, []byte{0x01, 0x34, 0x12, 0x76}))

	lines := disasmLines(mem, 0, 2)
	assert.Len(t, lines, 2)
	assert.Equal(t, "> 0000  01 34 12  LXI B,$1234", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  0003  76"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], "HLT"), lines[1])
}

func TestMemoryLines(t *testing.T) {
	mem := memory.New()
	assert.NoError(t, mem.Load(0xFFF0, []byte("Hi")))

	lines := memoryLines(mem, 0xFFF0, 2)
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "FFF0  48 69 00 "), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], " Hi.............."), lines[0])
	// wraps to the bottom of memory
	assert.True(t, strings.HasPrefix(lines[1], "0000  "), lines[1])
}

func TestStatePath(t *testing.T) {
	assert.Equal(t, filepath.Join("progs", "TST8080.slot1.state"), statePath("", filepath.Join("progs", "TST8080.COM"), 0))
	assert.Equal(t, filepath.Join("states", "TST8080.slot3.state"), statePath("states", filepath.Join("progs", "TST8080.COM"), 2))
	assert.Equal(t, "program.slot2.state", statePath("", "", 1))
}

func TestTail(t *testing.T) {
	tail := NewTail(3)
	for i := 0; i < 5; i++ {
		_, err := fmt.Fprintf(tail, "line %d\r\n", i)
		assert.NoError(t, err)
	}
	_, _ = tail.Write([]byte("partial"))

	lines := tail.Lines()
	assert.Len(t, lines, 3)
	assert.Equal(t, "line 3", lines[0])
	assert.Equal(t, "line 4", lines[1])
	assert.Equal(t, "partial", lines[2])
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.Defaults()
	assert.Equal(t, "i8080emu", cfg.Title)
	assert.Equal(t, 2, cfg.Scale)
	assert.Equal(t, 5000, cfg.StepsPerFrame)
	assert.Equal(t, 10, cfg.DisasmLines)
	assert.Equal(t, 6, cfg.MemoryRows)
}
