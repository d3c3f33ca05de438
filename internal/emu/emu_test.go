package emu

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpm"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/loader"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/memory"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/ports"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func newMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()
	return New(cfg, log.NewTestLogger(t))
}

func TestMachine_NoProgram(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.True(t, errors.Is(m.Step(), ErrNoProgram))
	assert.True(t, errors.Is(m.Run(context.Background()), ErrNoProgram))
	_, err := m.SaveState()
	assert.True(t, errors.Is(err, ErrNoProgram))
	assert.True(t, errors.Is(m.Reset(), ErrNoProgram))
}

func TestMachine_LoadProgramAndRun(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram([]byte{0x01, 0x34, 0x12, 0x76})) // LXI B,1234 / HLT
	assert.True(t, m.Loaded())
	assert.NoError(t, m.Run(context.Background()))

	c := m.CPU()
	assert.Equal(t, cpu.Halted, m.Status().State)
	assert.Equal(t, byte(0x12), c.B)
	assert.Equal(t, byte(0x34), c.C)
	assert.Equal(t, uint16(0x0003), c.PC)
	assert.Equal(t, uint64(2), c.Steps())

	// running a finished machine is a no-op
	assert.NoError(t, m.Run(context.Background()))
	assert.True(t, errors.Is(m.Step(), cpu.ErrInvalidState))
}

func TestMachine_OriginAndRegisters(t *testing.T) {
	cfg := Defaults()
	cfg.Origin = 0x2000
	cfg.SP = 0x3000
	m := newMachine(t, cfg)
	assert.NoError(t, m.LoadProgram([]byte{0xC5, 0x76})) // PUSH B / HLT

	assert.Equal(t, uint16(0x2000), m.CPU().PC)
	assert.NoError(t, m.Run(context.Background()))
	assert.Equal(t, uint16(0x2FFE), m.CPU().SP)

	cfg.PC = 0x2001
	m = newMachine(t, cfg)
	assert.NoError(t, m.LoadProgram([]byte{0xC5, 0x76}))
	assert.Equal(t, uint16(0x2001), m.CPU().PC)
}

func TestMachine_LoadOverflow(t *testing.T) {
	cfg := Defaults()
	cfg.Origin = 0xFFFF
	m := newMachine(t, cfg)
	err := m.LoadProgram([]byte{0x00, 0x76})
	assert.True(t, errors.Is(err, memory.ErrLoadOverflow))
	assert.False(t, m.Loaded())
}

func TestMachine_Fault(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram([]byte{0x00, 0x08}))
	assert.NoError(t, m.Run(context.Background()))

	st := m.Status()
	assert.Equal(t, cpu.Faulted, st.State)
	assert.Contains(t, st.Reason(), "0x08")
	assert.Contains(t, st.Reason(), "0x0001")
	assert.True(t, errors.Is(st.Err(), cpu.ErrUnknownOpcode))
}

func TestMachine_StepLimit(t *testing.T) {
	for _, trace := range []bool{false, true} {
		cfg := Defaults()
		cfg.MaxSteps = 10
		cfg.Trace = trace
		m := newMachine(t, cfg)
		assert.NoError(t, m.LoadProgram([]byte{0xC3, 0x00, 0x00})) // JMP 0

		err := m.Run(context.Background())
		assert.True(t, errors.Is(err, ErrStepLimit))
		assert.Equal(t, uint64(10), m.CPU().Steps())
		assert.Equal(t, cpu.Running, m.Status().State)
	}
}

func TestMachine_RunCancelled(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram([]byte{0xC3, 0x00, 0x00}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMachine_TraceRun(t *testing.T) {
	cfg := Defaults()
	cfg.Trace = true
	m := newMachine(t, cfg)
	assert.NoError(t, m.LoadProgram([]byte{0x3E, 0x05, 0x3D, 0xC2, 0x02, 0x00, 0x76})) // MVI A,5 / DCR A / JNZ 2 / HLT
	assert.NoError(t, m.Run(context.Background()))
	assert.Equal(t, cpu.Halted, m.Status().State)
	assert.Equal(t, uint64(12), m.CPU().Steps())

	text, n := m.Disassemble(0x0003)
	assert.Equal(t, "JNZ $0002", text)
	assert.Equal(t, uint16(3), n)
}

func TestMachine_RunFor(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram([]byte{0x00, 0x00, 0x00, 0x76}))
	n, err := m.RunFor(context.Background(), 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint16(2), m.CPU().PC)

	n, err = m.RunFor(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, cpu.Halted, m.Status().State)
}

func TestMachine_Devices(t *testing.T) {
	m := newMachine(t, Defaults())
	latch := &ports.Latch{Value: 0x41}
	m.AttachDevice(latch, 0x10)
	// IN 10 / INR A / OUT 10 / HLT
	assert.NoError(t, m.LoadProgram([]byte{0xDB, 0x10, 0x3C, 0xD3, 0x10, 0x76}))
	assert.NoError(t, m.Run(context.Background()))
	assert.Equal(t, byte(0x42), latch.Value)
	assert.Equal(t, 1, latch.Writes)
}

func TestMachine_CPM(t *testing.T) {
	var out bytes.Buffer
	m := newMachine(t, Defaults())
	m.EnableCPM(nil, &out)

	program := make([]byte, 0x30)
	copy(program, []byte{
		0x0E, 0x09, // MVI C,9
		0x11, 0x10, 0x01, // LXI D,0110
		0xCD, 0x05, 0x00, // CALL 5
		0xC9, // RET
	})
	copy(program[0x10:], "CPU IS OPERATIONAL$")
	img := &loader.Image{
		Format:   loader.FormatCOM,
		Segments: []loader.Segment{{Origin: loader.COMOrigin, Data: program}},
		Entry:    loader.COMOrigin,
		HasEntry: true,
	}
	assert.NoError(t, m.LoadImage(img))
	assert.Equal(t, uint16(0x0100), m.CPU().PC)
	assert.NoError(t, m.Run(context.Background()))

	assert.Equal(t, cpu.Halted, m.Status().State)
	assert.Equal(t, uint16(0x0000), m.CPU().PC)
	assert.Equal(t, "CPU IS OPERATIONAL", out.String())
	assert.Equal(t, 1, m.BDOS().Calls)
}

func TestMachine_CPMRejectsReservedMemory(t *testing.T) {
	m := newMachine(t, Defaults())
	m.EnableCPM(nil, nil)

	// MVI A,42 at 0x0000 would lose its first byte to the warm boot HLT
	err := m.LoadProgram([]byte{0x3E, 0x42, 0x00, 0x00, 0x06, 0x07, 0x76})
	assert.True(t, errors.Is(err, cpm.ErrReserved), "got %v", err)
	assert.False(t, m.Loaded())
	assert.True(t, errors.Is(m.Run(context.Background()), ErrNoProgram))

	img := &loader.Image{
		Format:   loader.FormatHex,
		Segments: []loader.Segment{{Origin: 0x0100, Data: []byte{0x76}}, {Origin: cpm.StubAddr + 4, Data: []byte{0x00}}},
		Entry:    0x0100,
		HasEntry: true,
	}
	err = m.LoadImage(img)
	assert.True(t, errors.Is(err, cpm.ErrReserved), "got %v", err)

	// the return address pushed below the stub is reserved too
	img.Segments = []loader.Segment{{Origin: cpm.StackTop - 1, Data: []byte{0x00}}}
	err = m.LoadImage(img)
	assert.True(t, errors.Is(err, cpm.ErrReserved), "got %v", err)

	// right after page zero and right below the stack are free
	img.Segments = []loader.Segment{{Origin: 0x0008, Data: []byte{0x76}}, {Origin: cpm.StackTop - 0x102, Data: make([]byte, 0x100)}}
	img.Entry = 0x0008
	assert.NoError(t, m.LoadImage(img))
	assert.NoError(t, m.Run(context.Background()))
	assert.Equal(t, cpu.Halted, m.Status().State)
	assert.Equal(t, uint16(0x0008), m.CPU().PC)
}

func TestMachine_FailedLoadDropsProgram(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram([]byte{0x76}))
	assert.True(t, m.Loaded())

	img := &loader.Image{
		Format: loader.FormatHex,
		Segments: []loader.Segment{
			{Origin: 0x0000, Data: []byte{0x00}},
			{Origin: 0xFFFF, Data: []byte{0x00, 0x00}},
		},
	}
	err := m.LoadImage(img)
	assert.True(t, errors.Is(err, memory.ErrLoadOverflow), "got %v", err)
	assert.False(t, m.Loaded())
	assert.True(t, errors.Is(m.Step(), ErrNoProgram))
	assert.True(t, errors.Is(m.Reset(), ErrNoProgram))
}

func TestMachine_ImageWithoutEntryStartsAtOrigin(t *testing.T) {
	cfg := Defaults()
	cfg.Origin = 0x0200
	m := newMachine(t, cfg)

	img, err := loader.ParseHex([]byte(":010200007687\n:00000001FF\n"))
	assert.NoError(t, err)
	assert.False(t, img.HasEntry)
	assert.NoError(t, m.LoadImage(img))
	assert.Equal(t, uint16(0x0200), m.CPU().PC)

	img.Entry = 0x0201
	img.HasEntry = true
	assert.NoError(t, m.LoadImage(img))
	assert.Equal(t, uint16(0x0201), m.CPU().PC)
}

func TestMachine_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.com")
	assert.NoError(t, os.WriteFile(path, []byte{0x76}, 0o644))

	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadFile(path))
	assert.Equal(t, path, m.ProgramPath())
	assert.Equal(t, uint16(0x0100), m.CPU().PC)
	assert.Equal(t, byte(0x76), m.Memory().ReadByte(0x0100))
}

func TestMachine_Reset(t *testing.T) {
	m := newMachine(t, Defaults())
	// MVI A,1 / STA 0010 / HLT
	assert.NoError(t, m.LoadProgram([]byte{0x3E, 0x01, 0x32, 0x10, 0x00, 0x76}))
	assert.NoError(t, m.Run(context.Background()))
	assert.Equal(t, byte(1), m.Memory().ReadByte(0x10))

	assert.NoError(t, m.Reset())
	assert.Equal(t, cpu.Standby, m.Status().State)
	assert.Equal(t, uint16(0), m.CPU().PC)
	assert.Equal(t, byte(0), m.Memory().ReadByte(0x10))
}

func TestMachine_SaveLoadState(t *testing.T) {
	// MVI A,7 / MVI B,9 / INR A / HLT
	program := []byte{0x3E, 0x07, 0x06, 0x09, 0x3C, 0x76}
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram(program))
	_, err := m.RunFor(context.Background(), 2)
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.gob")
	assert.NoError(t, m.SaveStateToFile(path))

	assert.NoError(t, m.Run(context.Background()))
	assert.Equal(t, byte(8), m.CPU().A)

	restored := newMachine(t, Defaults())
	assert.NoError(t, restored.LoadStateFromFile(path))
	c := restored.CPU()
	assert.Equal(t, byte(7), c.A)
	assert.Equal(t, byte(9), c.B)
	assert.Equal(t, uint16(4), c.PC)
	assert.Equal(t, uint64(2), c.Steps())
	assert.Equal(t, cpu.Running, restored.Status().State)
	assert.True(t, restored.Loaded())

	assert.NoError(t, restored.Run(context.Background()))
	assert.Equal(t, byte(8), c.A)
	assert.Equal(t, cpu.Halted, restored.Status().State)

	assert.Error(t, restored.LoadState([]byte("not a state")))
}

func TestMachine_SaveFaultedState(t *testing.T) {
	m := newMachine(t, Defaults())
	assert.NoError(t, m.LoadProgram([]byte{0xDD}))
	assert.NoError(t, m.Run(context.Background()))

	data, err := m.SaveState()
	assert.NoError(t, err)

	restored := newMachine(t, Defaults())
	assert.NoError(t, restored.LoadState(data))
	st := restored.Status()
	assert.Equal(t, cpu.Faulted, st.State)
	assert.NotNil(t, st.Fault)
	assert.Equal(t, byte(0xDD), st.Fault.Opcode)
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger(false, 0))
	assert.NotNil(t, NewLogger(false, 1))
	assert.NotNil(t, NewLogger(true, 0))
}
