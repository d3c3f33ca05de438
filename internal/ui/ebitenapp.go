package ui

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/emu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/retroenv/retrogolib/log"
)

const (
	screenW    = 480
	screenH    = 480
	lineHeight = 16
	margin     = 8
)

// KeySink receives characters typed into the window.
type KeySink interface {
	Feed(b byte)
}

// App is a debug monitor window around a machine.
type App struct {
	ctx    context.Context
	cfg    Config
	m      *emu.Machine
	logger *log.Logger

	paused  bool
	fast    bool
	memAddr uint16

	tail *Tail
	keys KeySink

	// overlay/menu
	showMenu    bool
	overlay     *ebiten.Image
	menuIdx     int
	currentSlot int

	toastMsg   string
	toastUntil time.Time
}

func NewApp(ctx context.Context, cfg Config, m *emu.Machine, logger *log.Logger) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(screenW*cfg.Scale, screenH*cfg.Scale)
	return &App{
		ctx:    ctx,
		cfg:    cfg,
		m:      m,
		logger: logger,
		paused: cfg.StartPaused,
	}
}

// SetConsole shows the tail in the console panel and forwards typed
// characters to keys. With a key sink attached the letter shortcuts are
// disabled and only the function keys control the monitor.
func (a *App) SetConsole(tail *Tail, keys KeySink) {
	a.tail = tail
	a.keys = keys
}

func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.ctx.Err() != nil {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.showMenu = !a.showMenu
		a.menuIdx = 0
	}
	if a.showMenu {
		a.updateMenu()
		return nil
	}

	letters := a.keys == nil
	if a.keys != nil {
		a.feedKeys()
	}

	// Pause toggle (F1 or P)
	if pressed(ebiten.KeyF1) || (letters && pressed(ebiten.KeyP)) {
		a.paused = !a.paused
	}
	// Reset (F3 or R)
	if pressed(ebiten.KeyF3) || (letters && pressed(ebiten.KeyR)) {
		if err := a.m.Reset(); err != nil {
			a.toast("Reset failed: " + err.Error())
		} else {
			a.toast("Reset")
		}
	}
	// Single step when paused (F2, N or Space)
	if a.paused && (pressed(ebiten.KeyF2) || (letters && (pressed(ebiten.KeyN) || pressed(ebiten.KeySpace)))) {
		a.step()
	}
	if pressed(ebiten.KeyF5) {
		a.saveSlot()
	}
	if pressed(ebiten.KeyF9) {
		a.loadSlot()
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if letters && pressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot set to %d", i+1))
		}
	}
	a.updateMemoryScroll()

	// Fast-forward (Tab): while held, run more instructions per update
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)

	if !a.paused {
		n := a.cfg.StepsPerFrame
		if a.fast {
			n *= 10
		}
		a.run(n)
	}
	return nil
}

func pressed(k ebiten.Key) bool { return inpututil.IsKeyJustPressed(k) }

func (a *App) feedKeys() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x80 {
			a.keys.Feed(byte(r))
		}
	}
	if pressed(ebiten.KeyEnter) {
		a.keys.Feed('\n')
	}
	if pressed(ebiten.KeyBackspace) {
		a.keys.Feed(0x08)
	}
}

func (a *App) updateMemoryScroll() {
	switch {
	case pressed(ebiten.KeyArrowUp):
		a.memAddr -= 16
	case pressed(ebiten.KeyArrowDown):
		a.memAddr += 16
	case pressed(ebiten.KeyPageUp):
		a.memAddr -= uint16(16 * a.cfg.MemoryRows)
	case pressed(ebiten.KeyPageDown):
		a.memAddr += uint16(16 * a.cfg.MemoryRows)
	case pressed(ebiten.KeyHome):
		a.memAddr = a.m.CPU().HL() &^ 0xF
	}
}

func (a *App) step() {
	if a.m.Status().Terminal() {
		a.toast(a.m.Status().String())
		return
	}
	if err := a.m.Step(); err != nil {
		a.toast(err.Error())
	}
}

func (a *App) run(n int) {
	if a.m.Status().Terminal() {
		a.paused = true
		return
	}
	if _, err := a.m.RunFor(a.ctx, n); err != nil {
		a.logger.Error("Run failed", log.Err(err))
		a.paused = true
		return
	}
	if st := a.m.Status(); st.Terminal() {
		a.paused = true
		a.toast(st.String())
	}
}

func (a *App) saveSlot() {
	path := a.statePath(a.currentSlot)
	if err := a.m.SaveStateToFile(path); err != nil {
		a.toast("Save failed: " + err.Error())
		return
	}
	a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
}

func (a *App) loadSlot() {
	path := a.statePath(a.currentSlot)
	if _, err := os.Stat(path); err != nil {
		a.toast("Slot is empty")
		return
	}
	if err := a.m.LoadStateFromFile(path); err != nil {
		a.toast("Load failed: " + err.Error())
		return
	}
	a.paused = true
	a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
}

func (a *App) statePath(slot int) string {
	return statePath(a.cfg.StateDir, a.m.ProgramPath(), slot)
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
	a.logger.Info(msg)
}

func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x10, 0x18, 0x20, 0xFF})

	c := a.m.CPU()
	mem := a.m.Memory()

	state := "RUN"
	if a.paused {
		state = "PAUSED"
	}
	lines := []string{fmt.Sprintf("%s  %s  slot %d", a.m.ProgramPath(), state, a.currentSlot+1), ""}
	lines = append(lines, registerLines(c)...)
	lines = append(lines, "")
	lines = append(lines, disasmLines(mem, c.PC, a.cfg.DisasmLines)...)
	lines = append(lines, "")
	lines = append(lines, memoryLines(mem, a.memAddr, a.cfg.MemoryRows)...)
	if a.tail != nil {
		lines = append(lines, "", "Console:")
		lines = append(lines, a.tail.Lines()...)
	}

	y := margin
	for _, s := range lines {
		ebitenutil.DebugPrintAt(screen, s, margin, y)
		y += lineHeight
	}

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, margin, screenH-lineHeight-margin)
	}
	if a.showMenu {
		a.drawMenu(screen)
	}
}

func (a *App) Layout(outW, outH int) (int, int) { return screenW, screenH }
