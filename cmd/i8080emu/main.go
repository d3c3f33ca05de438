// Package main implements the command line front end of the Intel 8080
// emulator.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/emu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/ports"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/ui"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const (
	exitHalted    = 0
	exitFailed    = 1
	exitStepLimit = 2

	consoleStatusPort = 0x00
	consoleDataPort   = 0x01
	escapeKey         = 0x1D // Ctrl-]
)

func main() {
	os.Exit(run(app.Context(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, err := parseFlags(args)
	logger := emu.NewLogger(f.Debug, f.Verbosity)
	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			_, _ = fmt.Fprintf(stderr, "error: %s\n\n", usageErr.Error())
			usageErr.ShowUsage(stderr)
		} else {
			logger.Error(err.Error())
		}
		return exitFailed
	}
	if f.Version {
		_, _ = fmt.Fprintf(stdout, "i8080emu version: %s\n", buildinfo.Version(version, commit, date))
		return exitHalted
	}
	logger.Info("i8080emu", log.String("version", buildinfo.Version(version, commit, date)))

	cfg := emu.Defaults()
	cfg.Origin = f.Origin
	cfg.PC = f.PC
	cfg.SP = f.SP
	cfg.MaxSteps = f.Steps
	cfg.Trace = f.Debug || f.Verbosity >= 3
	m := emu.New(cfg, logger)

	// the GUI shows guest output in its console panel as well
	var tail *ui.Tail
	out := stdout
	if f.GUI {
		tail = ui.NewTail(6)
		out = io.MultiWriter(stdout, tail)
	}

	var console *ports.Console
	if f.Console || f.CPM {
		console = ports.NewConsole(consoleStatusPort, consoleDataPort, out)
		if f.Console {
			m.AttachDevice(console, consoleStatusPort, consoleDataPort)
		}
		if f.CPM {
			m.EnableCPM(console, console)
		}
		if !f.GUI {
			if f.Console {
				// raw mode swallows Ctrl-C, Ctrl-] ends the run instead
				var cancel context.CancelFunc
				ctx, cancel = context.WithCancel(ctx)
				defer cancel()
				console.EscapeKey = escapeKey
				console.OnEscape = cancel
			}
			if err := console.Start(stdin, f.Console); err != nil {
				logger.Error("Terminal setup failed", log.Err(err))
				return exitFailed
			}
			defer console.Stop()
		}
	}

	path, err := filepath.Abs(f.Program)
	if err != nil {
		path = f.Program
	}
	if err := m.LoadFile(path); err != nil {
		logger.Error("Loading program failed", log.String("file", f.Program), log.Err(err))
		return exitFailed
	}
	if f.State != "" {
		if err := m.LoadStateFromFile(f.State); err != nil {
			logger.Error("Loading state failed", log.String("file", f.State), log.Err(err))
			return exitFailed
		}
		logger.Info("State loaded", log.String("file", f.State))
	}

	if f.GUI {
		a := ui.NewApp(ctx, ui.Config{Scale: f.Scale, StartPaused: true}, m, logger)
		var keys ui.KeySink
		if console != nil {
			keys = console
		}
		a.SetConsole(tail, keys)
		err = a.Run()
	} else {
		err = m.Run(ctx)
	}

	if f.Save != "" {
		if err := m.SaveStateToFile(f.Save); err != nil {
			logger.Error("Saving state failed", log.String("file", f.Save), log.Err(err))
		} else {
			logger.Info("State saved", log.String("file", f.Save))
		}
	}
	return report(stderr, logger, m, err)
}

// report prints the final status and maps it to the exit code.
func report(w io.Writer, logger *log.Logger, m *emu.Machine, runErr error) int {
	c := m.CPU()
	st := m.Status()
	logger.Info("Registers", log.String("regs", c.Registers.String()), log.String("flags", c.Flags.String()))

	switch {
	case errors.Is(runErr, emu.ErrStepLimit):
		_, _ = fmt.Fprintf(w, "step limit reached: pc=0x%04X steps=%d\n", c.PC, c.Steps())
		return exitStepLimit
	case errors.Is(runErr, context.Canceled):
		_, _ = fmt.Fprintf(w, "interrupted: pc=0x%04X steps=%d\n", c.PC, c.Steps())
		return exitFailed
	case runErr != nil:
		logger.Error("Emulation failed", log.Err(runErr))
		return exitFailed
	}

	switch st.State {
	case cpu.Halted:
		_, _ = fmt.Fprintf(w, "halted: pc=0x%04X steps=%d\n", c.PC, c.Steps())
		return exitHalted
	case cpu.Faulted:
		_, _ = fmt.Fprintf(w, "faulted: %s (steps=%d)\n", st.Reason(), c.Steps())
		return exitFailed
	default:
		// window closed before the program finished
		_, _ = fmt.Fprintf(w, "%s: pc=0x%04X steps=%d\n", st.State, c.PC, c.Steps())
		return exitFailed
	}
}
