// Package emu wires memory, CPU, ports and the optional CP/M shim into a
// runnable machine.
package emu

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpm"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/disasm"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/loader"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/memory"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/ports"
	"github.com/retroenv/retrogolib/log"
)

var (
	ErrNoProgram = errors.New("no program loaded")
	ErrStepLimit = errors.New("step limit reached")
)

type Machine struct {
	cfg    Config
	logger *log.Logger

	mem   *memory.Memory
	cpu   *cpu.CPU
	ports *ports.Bus
	bdos  *cpm.BDOS

	image       *loader.Image
	programPath string
}

func New(cfg Config, logger *log.Logger) *Machine {
	mem := memory.New()
	c := cpu.New(mem)
	bus := ports.NewBus()
	c.SetIO(bus)
	return &Machine{
		cfg:    cfg,
		logger: logger,
		mem:    mem,
		cpu:    c,
		ports:  bus,
	}
}

func (m *Machine) CPU() *cpu.CPU          { return m.cpu }
func (m *Machine) Memory() *memory.Memory { return m.mem }
func (m *Machine) Ports() *ports.Bus      { return m.ports }
func (m *Machine) Status() cpu.Status     { return m.cpu.Status() }
func (m *Machine) Config() Config         { return m.cfg }
func (m *Machine) BDOS() *cpm.BDOS        { return m.bdos }
func (m *Machine) ProgramPath() string    { return m.programPath }
func (m *Machine) Loaded() bool           { return m.image != nil }
func (m *Machine) SetTrace(on bool)       { m.cfg.Trace = on }
func (m *Machine) Disassemble(addr uint16) (string, uint16) {
	return disasm.Instruction(m.mem, addr)
}

// AttachDevice connects a port device.
func (m *Machine) AttachDevice(d ports.Device, port ...byte) {
	m.ports.Attach(d, port...)
}

// EnableCPM attaches the BDOS shim. Images loaded afterwards get the CP/M
// page zero and stack.
func (m *Machine) EnableCPM(kb cpm.Keyboard, out io.Writer) *cpm.BDOS {
	m.bdos = cpm.New(m.cpu, m.mem, kb, out, m.logger)
	m.ports.Attach(m.bdos, cpm.Port)
	return m.bdos
}

// LoadProgram places a raw image at the configured origin.
func (m *Machine) LoadProgram(image []byte) error {
	img, err := loader.Parse(image, loader.FormatRaw, m.cfg.Origin)
	if err != nil {
		return err
	}
	return m.LoadImage(img)
}

// LoadFile reads a program from disk, picking the format from the extension.
func (m *Machine) LoadFile(path string) error {
	img, err := loader.Load(path, m.cfg.Origin)
	if err != nil {
		return err
	}
	if err := m.LoadImage(img); err != nil {
		return err
	}
	m.programPath = path
	return nil
}

// LoadImage clears memory and the CPU, writes every segment and sets the
// start registers. Images without an entry point start at the configured
// origin. On error the machine is left without a program.
func (m *Machine) LoadImage(img *loader.Image) error {
	m.image = nil
	m.mem.Reset()
	m.cpu.Reset()

	for _, seg := range img.Segments {
		if m.bdos != nil {
			if err := cpm.CheckSegment(seg.Origin, len(seg.Data)); err != nil {
				return err
			}
		}
		if err := m.mem.Load(seg.Origin, seg.Data); err != nil {
			return fmt.Errorf("loading segment at 0x%04X: %w", seg.Origin, err)
		}
	}

	var sp uint16
	if m.bdos != nil {
		sp = cpm.Install(m.mem)
	}
	if m.cfg.SP >= 0 {
		sp = uint16(m.cfg.SP)
	}

	pc := m.cfg.Origin
	if img.HasEntry {
		pc = img.Entry
	}
	if m.cfg.PC >= 0 {
		pc = uint16(m.cfg.PC)
	}
	m.cpu.SP = sp
	m.cpu.PC = pc
	m.image = img

	m.logger.Info("Program loaded",
		log.String("format", img.Format.String()),
		log.Int("bytes", img.Size()),
		log.Int("segments", len(img.Segments)),
		log.Hex("pc", pc),
		log.Hex("sp", sp))
	return nil
}

// Reset reloads the current image and restarts it.
func (m *Machine) Reset() error {
	if m.image == nil {
		return ErrNoProgram
	}
	return m.LoadImage(m.image)
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.image == nil {
		return ErrNoProgram
	}
	if m.cfg.Trace {
		m.trace()
	}
	if err := m.cpu.Step(); err != nil {
		return err
	}
	if st := m.cpu.Status(); st.Terminal() {
		m.logStatus(st)
	}
	return nil
}

// Run executes until the program halts or faults, the step limit is hit
// or ctx is done. A guest fault is not an error, check Status.
func (m *Machine) Run(ctx context.Context) error {
	if m.image == nil {
		return ErrNoProgram
	}
	if m.cpu.Status().Terminal() {
		return nil
	}

	if !m.cfg.Trace {
		var err error
		if m.cfg.MaxSteps > 0 {
			_, err = m.cpu.RunFor(ctx, m.cfg.MaxSteps)
		} else {
			err = m.cpu.Run(ctx)
		}
		return m.finish(err)
	}

	for i := 0; m.cfg.MaxSteps <= 0 || i < m.cfg.MaxSteps; i++ {
		if m.cpu.Status().Terminal() {
			break
		}
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return m.finish(err)
			}
		}
		m.trace()
		if err := m.cpu.Step(); err != nil {
			return m.finish(err)
		}
	}
	return m.finish(nil)
}

// RunFor executes at most n instructions and reports how many ran.
func (m *Machine) RunFor(ctx context.Context, n int) (int, error) {
	if m.image == nil {
		return 0, ErrNoProgram
	}
	if !m.cfg.Trace {
		return m.cpu.RunFor(ctx, n)
	}
	for i := 0; i < n; i++ {
		if m.cpu.Status().Terminal() {
			return i, nil
		}
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return i, err
			}
		}
		m.trace()
		if err := m.cpu.Step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

func (m *Machine) finish(err error) error {
	st := m.cpu.Status()
	switch {
	case err != nil:
		return err
	case st.Terminal():
		m.logStatus(st)
		return nil
	default:
		m.logger.Warn("Step limit reached",
			log.Int("steps", m.cfg.MaxSteps),
			log.Hex("pc", m.cpu.PC))
		return ErrStepLimit
	}
}

func (m *Machine) logStatus(st cpu.Status) {
	if st.State == cpu.Faulted {
		m.logger.Error("CPU faulted",
			log.String("reason", st.Reason()),
			log.Hex("pc", m.cpu.PC))
		return
	}
	m.logger.Info("CPU halted",
		log.Hex("pc", m.cpu.PC),
		log.Int("steps", int(m.cpu.Steps())))
}

func (m *Machine) trace() {
	pc := m.cpu.PC
	text, _ := disasm.Instruction(m.mem, pc)
	m.logger.Debug("exec",
		log.Hex("pc", pc),
		log.String("op", text),
		log.String("regs", m.cpu.Registers.String()),
		log.String("flags", m.cpu.Flags.String()))
}

// --- Save/Load state ---
type machineState struct {
	Memory []byte
	CPU    cpu.Snapshot
	Image  *loader.Image
}

func (m *Machine) SaveState() ([]byte, error) {
	if m.image == nil {
		return nil, ErrNoProgram
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(machineState{
		Memory: m.mem.Bytes(),
		CPU:    m.cpu.Snapshot(),
		Image:  m.image,
	}); err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Machine) LoadState(data []byte) error {
	var s machineState
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return fmt.Errorf("decoding state: %w", err)
	}
	if err := m.mem.Restore(s.Memory); err != nil {
		return err
	}
	m.cpu.Restore(s.CPU)
	m.image = s.Image
	if m.image == nil {
		m.image = &loader.Image{}
	}
	return nil
}

func (m *Machine) SaveStateToFile(path string) error {
	data, err := m.SaveState()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (m *Machine) LoadStateFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadState(data)
}
