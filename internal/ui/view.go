package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/disasm"
)

// registerLines renders the CPU registers, flags and status.
func registerLines(c *cpu.CPU) []string {
	inte := "DI"
	if c.InterruptsEnabled() {
		inte = "EI"
	}
	return []string{
		fmt.Sprintf("A=%02X  BC=%04X  DE=%04X  HL=%04X", c.A, c.BC(), c.DE(), c.HL()),
		fmt.Sprintf("SP=%04X  PC=%04X  F=%02X %s  %s", c.SP, c.PC, c.Flags.Byte(), c.Flags, inte),
		fmt.Sprintf("%s  steps=%d", c.Status(), c.Steps()),
	}
}

// disasmLines lists n instructions starting at pc, marking pc.
func disasmLines(mem disasm.Reader, pc uint16, n int) []string {
	out := make([]string, 0, n)
	for i, l := range disasm.Range(mem, pc, n) {
		mark := "  "
		if i == 0 {
			mark = "> "
		}
		out = append(out, mark+l.String())
	}
	return out
}

// memoryLines dumps rows of 16 bytes starting at addr with an ASCII column.
func memoryLines(mem disasm.Reader, addr uint16, rows int) []string {
	out := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		base := addr + uint16(r*16)
		var hex, ascii strings.Builder
		for i := uint16(0); i < 16; i++ {
			b := mem.ReadByte(base + i)
			fmt.Fprintf(&hex, "%02X ", b)
			if b >= 0x20 && b < 0x7F {
				ascii.WriteByte(b)
			} else {
				ascii.WriteByte('.')
			}
		}
		out = append(out, fmt.Sprintf("%04X  %s %s", base, hex.String(), ascii.String()))
	}
	return out
}

// statePath names the file for a save state slot.
func statePath(dir, program string, slot int) string {
	name := "program"
	if program != "" {
		name = strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))
		if dir == "" {
			dir = filepath.Dir(program)
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s.slot%d.state", name, slot+1))
}

// Tail keeps the last lines written to it for the console panel. It is
// safe for use from the console input goroutine and the UI.
type Tail struct {
	mu    sync.Mutex
	max   int
	lines []string
	cur   strings.Builder
}

func NewTail(maxLines int) *Tail {
	return &Tail{max: maxLines}
}

func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		switch b {
		case '\n':
			t.push()
		case '\r':
		default:
			t.cur.WriteByte(b)
		}
	}
	return len(p), nil
}

func (t *Tail) push() {
	t.lines = append(t.lines, t.cur.String())
	t.cur.Reset()
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

// Lines returns the complete lines plus the unfinished one, oldest first.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]string(nil), t.lines...)
	if t.cur.Len() > 0 {
		out = append(out, t.cur.String())
	}
	if len(out) > t.max {
		out = out[len(out)-t.max:]
	}
	return out
}
