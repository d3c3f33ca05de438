// Command cpurunner runs 8080 diagnostic programs headless and reports
// whether they passed.
package main

import (
	"flag"
	"io"
	"os"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/emu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/loader"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

func main() {
	progPath := flag.String("prog", "", "path to the program (.com runs under the CP/M shim, .hex or raw binary otherwise)")
	steps := flag.Int("steps", 0, "max CPU steps to run (0 = until the program ends)")
	startPC := flag.Int("pc", -1, "initial PC value (default: image entry)")
	origin := flag.Uint("origin", 0, "load address for raw images")
	cpmShim := flag.Bool("cpm", false, "provide CP/M BDOS console calls (default for .com files)")
	debug := flag.Bool("debug", false, "debug logging")
	trace := flag.Bool("trace", false, "print every instruction with registers")
	until := flag.String("until", "", "stop when program output contains this substring (case-insensitive); empty to disable")
	auto := flag.Bool("auto", false, "detect pass/fail markers of the common 8080 test programs and exit with code 0/1")
	timeout := flag.Duration("timeout", 0, "optional wall-clock timeout (e.g. 30s, 2m); 0 disables")
	traceOnFail := flag.Bool("traceOnFail", false, "when a failure is detected, print a recent trace window (slows down)")
	traceWindow := flag.Int("traceWindow", 200, "number of recent instructions to include in 'traceOnFail' dump")
	outWindow := flag.Int("outWindow", 8192, "number of recent output bytes to retain for diagnostics on fail")
	flag.Parse()

	logger := emu.NewLogger(*debug, 0)
	if *progPath == "" {
		logger.Fatal("-prog is required")
	}

	cfg := emu.Defaults()
	cfg.Origin = uint16(*origin)
	cfg.PC = *startPC
	m := emu.New(cfg, logger)

	r := newRunner(m, options{
		steps:       *steps,
		trace:       *trace,
		until:       *until,
		auto:        *auto,
		timeout:     *timeout,
		traceOnFail: *traceOnFail,
		traceWindow: *traceWindow,
		outWindow:   *outWindow,
	}, os.Stdout)

	// Stream output to stdout and capture it for pattern detection
	if useCPM(*progPath, *cpmShim, flagSet("cpm")) {
		m.EnableCPM(nil, io.MultiWriter(os.Stdout, r))
	}
	if err := m.LoadFile(*progPath); err != nil {
		logger.Fatal("Loading program failed", log.String("file", *progPath), log.Err(err))
	}

	os.Exit(r.run(app.Context()))
}

// useCPM enables the shim for .com files unless -cpm was given explicitly.
func useCPM(path string, value, explicit bool) bool {
	if explicit {
		return value
	}
	return loader.DetectFormat(path) == loader.FormatCOM
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
