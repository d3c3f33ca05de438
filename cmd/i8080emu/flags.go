package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/loader"
)

// CLIFlags holds the parsed command line.
type CLIFlags struct {
	Program   string
	Debug     bool
	Verbosity int

	Origin uint16
	PC     int // -1 when not given
	SP     int // -1 when not given
	Steps  int

	CPM     bool
	Console bool

	GUI   bool
	Scale int

	State   string // load a save state before running
	Save    string // write a save state when the run ends
	Version bool
}

// UsageError is returned when the command line cannot be used and the
// usage text should be shown.
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string { return e.msg }

func (e *UsageError) ShowUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "usage: i8080emu [options] <program>\n\n")
	if e.flags != nil {
		e.flags.SetOutput(w)
		e.flags.PrintDefaults()
	}
	_, _ = fmt.Fprintln(w)
}

// countFlag counts how often a boolean style flag is given; -v=N sets it.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(s string) error {
	if s == "true" {
		*c++
		return nil
	}
	if s == "false" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid count %q", s)
	}
	*c = countFlag(n)
	return nil
}

// addrFlag parses a 16 bit address in decimal, 0x, $ or trailing h form.
type addrFlag struct {
	value *int
}

func (a addrFlag) String() string {
	if a.value == nil || *a.value < 0 {
		return ""
	}
	return fmt.Sprintf("0x%04X", *a.value)
}

func (a addrFlag) Set(s string) error {
	v, err := parseAddress(s)
	if err != nil {
		return err
	}
	*a.value = int(v)
	return nil
}

func parseAddress(s string) (uint16, error) {
	text := strings.TrimSpace(s)
	base := 0
	switch {
	case strings.HasPrefix(text, "$"):
		text, base = text[1:], 16
	case len(text) > 1 && strings.HasSuffix(strings.ToLower(text), "h"):
		text, base = text[:len(text)-1], 16
	}
	v, err := strconv.ParseUint(text, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint16(v), nil
}

// expandShortFlags turns -vv and -vvv into repeated -v.
func expandShortFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name := strings.TrimLeft(arg, "-")
		if len(arg)-len(name) >= 1 && len(name) > 1 && strings.Trim(name, "v") == "" {
			for range name {
				out = append(out, "-v")
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}

func parseFlags(args []string) (CLIFlags, error) {
	f := CLIFlags{PC: -1, SP: -1}
	flags := flag.NewFlagSet("i8080emu", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	origin := 0
	verbosity := countFlag(0)
	flags.BoolVar(&f.Debug, "d", false, "enable debug logging and instruction tracing")
	flags.BoolVar(&f.Debug, "debug", false, "enable debug logging and instruction tracing")
	flags.Var(&verbosity, "v", "increase verbosity, repeat for more (-v info, -vv debug, -vvv trace)")
	flags.Var(addrFlag{&origin}, "origin", "load address for raw images")
	flags.Var(addrFlag{&f.PC}, "pc", "start address (default: image entry or origin)")
	flags.Var(addrFlag{&f.SP}, "sp", "initial stack pointer")
	flags.IntVar(&f.Steps, "steps", 0, "stop after this many instructions (0 = unlimited)")
	flags.BoolVar(&f.CPM, "cpm", false, "provide CP/M BDOS console calls (default for .com files)")
	flags.BoolVar(&f.Console, "console", false, "attach the terminal as a serial console on ports 0 (status) and 1 (data)")
	flags.BoolVar(&f.GUI, "gui", false, "open the monitor window")
	flags.IntVar(&f.Scale, "scale", 2, "monitor window scale")
	flags.StringVar(&f.State, "state", "", "load a save state before running")
	flags.StringVar(&f.Save, "save", "", "write a save state when the run ends")
	flags.BoolVar(&f.Version, "version", false, "print version information and exit")

	if err := flags.Parse(expandShortFlags(args)); err != nil {
		return f, &UsageError{flags: flags, msg: err.Error()}
	}
	f.Verbosity = int(verbosity)
	f.Origin = uint16(origin)
	if f.Version {
		return f, nil
	}

	rest := flags.Args()
	switch {
	case len(rest) == 0:
		return f, &UsageError{flags: flags, msg: "missing program file"}
	case len(rest) > 1:
		return f, &UsageError{
			flags: flags,
			msg:   fmt.Sprintf("unexpected argument %s, pass the program file as last argument", rest[1]),
		}
	}
	f.Program = rest[0]

	if loader.DetectFormat(f.Program) == loader.FormatCOM {
		f.CPM = true
	}
	if f.Steps < 0 {
		return f, &UsageError{flags: flags, msg: "steps must not be negative"}
	}
	return f, nil
}
