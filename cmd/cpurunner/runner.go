package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/i8080emu/internal/emu"
)

const (
	resultPass    = 0
	resultFail    = 1
	resultTimeout = 2
)

var (
	// pass markers printed by TST8080, CPUTEST, 8080PRE and 8080EXM
	passRe = regexp.MustCompile(`(?i)cpu is operational|cpu tests ok|8080 preliminary tests complete|tests complete`)
	failRe = regexp.MustCompile(`(?i)cpu has failed|error|failed`)
	// zexall style progress lines: "dad <b,d,h,sp>.................  OK"
	stageRe = regexp.MustCompile(`(?m)^([a-z][^\r\n.]*)\.{3,}`)
)

type options struct {
	steps       int
	trace       bool
	until       string
	auto        bool
	timeout     time.Duration
	traceOnFail bool
	traceWindow int
	outWindow   int
}

// traceEntry is one executed instruction for the trace window.
type traceEntry struct {
	pc    uint16
	text  string
	regs  cpu.Registers
	flags cpu.Flags
}

func (te traceEntry) String() string {
	return fmt.Sprintf("PC=%04X %-14s A=%02X F=%s B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X",
		te.pc, te.text, te.regs.A, te.flags, te.regs.B, te.regs.C, te.regs.D, te.regs.E,
		te.regs.H, te.regs.L, te.regs.SP)
}

// runner steps a machine and watches the program output for pass and
// fail markers.
type runner struct {
	opts options
	m    *emu.Machine
	w    io.Writer // runner reports

	out     bytes.Buffer // everything the program printed
	checked int

	ring     []traceEntry
	ringIdx  int
	ringFill int

	outRing     []byte
	outRingIdx  int
	outRingFill int
}

func newRunner(m *emu.Machine, opts options, w io.Writer) *runner {
	if opts.traceWindow < 0 {
		opts.traceWindow = 0
	}
	if opts.outWindow < 256 {
		opts.outWindow = 256
	}
	return &runner{
		opts:    opts,
		m:       m,
		w:       w,
		ring:    make([]traceEntry, opts.traceWindow),
		outRing: make([]byte, opts.outWindow),
	}
}

// Write captures program output.
func (r *runner) Write(p []byte) (int, error) {
	r.out.Write(p)
	for _, ch := range p {
		r.outRing[r.outRingIdx] = ch
		r.outRingIdx = (r.outRingIdx + 1) % len(r.outRing)
		if r.outRingFill < len(r.outRing) {
			r.outRingFill++
		}
	}
	return len(p), nil
}

func (r *runner) record(te traceEntry) {
	if len(r.ring) == 0 {
		return
	}
	r.ring[r.ringIdx] = te
	r.ringIdx = (r.ringIdx + 1) % len(r.ring)
	if r.ringFill < len(r.ring) {
		r.ringFill++
	}
}

func (r *runner) run(ctx context.Context) int {
	start := time.Now()
	var deadline time.Time
	if r.opts.timeout > 0 {
		deadline = start.Add(r.opts.timeout)
	}
	tracing := r.opts.trace || r.opts.traceOnFail
	c := r.m.CPU()

	for i := 0; r.opts.steps <= 0 || i < r.opts.steps; i++ {
		if st := r.m.Status(); st.Terminal() {
			return r.finish(st, i, start)
		}

		var te traceEntry
		if tracing {
			te.pc = c.PC
			te.text, _ = r.m.Disassemble(c.PC)
		}
		if err := r.m.Step(); err != nil {
			fmt.Fprintf(r.w, "\nStep failed: %v\n", err)
			return resultFail
		}
		if tracing {
			te.regs = c.Registers
			te.flags = c.Flags
			if r.opts.trace {
				fmt.Fprintln(r.w, te)
			}
			r.record(te)
		}

		if code, done := r.checkOutput(i+1, start); done {
			return code
		}

		if i%4096 == 0 {
			if ctx.Err() != nil {
				fmt.Fprintf(r.w, "\nInterrupted.\n")
				r.done(i+1, start)
				return resultTimeout
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				fmt.Fprintf(r.w, "\nTimeout after %s.\n", time.Since(start).Truncate(time.Millisecond))
				r.done(i+1, start)
				return resultTimeout
			}
		}
	}
	if st := r.m.Status(); st.Terminal() {
		return r.finish(st, r.opts.steps, start)
	}
	r.done(r.opts.steps, start)
	if r.opts.auto {
		return resultTimeout
	}
	return resultPass
}

// checkOutput looks for markers in output that arrived since the last call.
func (r *runner) checkOutput(steps int, start time.Time) (int, bool) {
	if r.out.Len() == r.checked {
		return 0, false
	}
	r.checked = r.out.Len()
	s := r.out.String()

	if r.opts.auto {
		if m := failRe.FindString(s); m != "" {
			fmt.Fprintf(r.w, "\nDetected '%s' in program output.\n", m)
			r.failReport()
			r.done(steps, start)
			return resultFail, true
		}
		return 0, false
	}
	if r.opts.until != "" && strings.Contains(strings.ToLower(s), strings.ToLower(r.opts.until)) {
		fmt.Fprintf(r.w, "\nDetected '%s' in program output.\n", r.opts.until)
		r.done(steps, start)
		return resultPass, true
	}
	return 0, false
}

// finish handles a halted or faulted program. Returning to CP/M counts as
// a pass in auto mode only when a pass marker was printed.
func (r *runner) finish(st cpu.Status, steps int, start time.Time) int {
	code := resultPass
	switch {
	case st.State == cpu.Faulted:
		fmt.Fprintf(r.w, "\nProgram faulted: %s\n", st.Reason())
		r.failReport()
		code = resultFail
	case r.opts.auto && passRe.MatchString(r.out.String()):
		fmt.Fprintf(r.w, "\nDetected PASS in program output.\n")
		if stage := r.lastStage(); stage != "" {
			fmt.Fprintf(r.w, "Last stage seen: %s\n", stage)
		}
	case r.opts.auto:
		fmt.Fprintf(r.w, "\nProgram ended without a pass marker.\n")
		r.failReport()
		code = resultFail
	default:
		fmt.Fprintf(r.w, "\nProgram %s at PC=%04X.\n", st.State, r.m.CPU().PC)
	}
	r.done(steps, start)
	return code
}

func (r *runner) lastStage() string {
	mm := stageRe.FindAllStringSubmatch(r.out.String(), -1)
	if len(mm) == 0 {
		return ""
	}
	return strings.TrimSpace(mm[len(mm)-1][1])
}

func (r *runner) failReport() {
	if stage := r.lastStage(); stage != "" {
		fmt.Fprintf(r.w, "Last stage seen: %s\n", stage)
	}
	if r.opts.traceOnFail && r.ringFill > 0 {
		fmt.Fprintf(r.w, "\n--- recent trace (last %d instructions) ---\n", r.ringFill)
		// print in chronological order
		startIdx := (r.ringIdx - r.ringFill + len(r.ring)) % len(r.ring)
		for j := 0; j < r.ringFill; j++ {
			fmt.Fprintln(r.w, r.ring[(startIdx+j)%len(r.ring)])
		}
		fmt.Fprintf(r.w, "--- end trace ---\n")
	}
	if r.outRingFill > 0 {
		fmt.Fprintf(r.w, "\n--- recent output (last %d bytes) ---\n", r.outRingFill)
		startIdx := (r.outRingIdx - r.outRingFill + len(r.outRing)) % len(r.outRing)
		for j := 0; j < r.outRingFill; j++ {
			fmt.Fprintf(r.w, "%c", r.outRing[(startIdx+j)%len(r.outRing)])
		}
		fmt.Fprintf(r.w, "\n--- end output ---\n")
	}
}

func (r *runner) done(steps int, start time.Time) {
	fmt.Fprintf(r.w, "\nDone: steps=%d elapsed=%s\n", steps, time.Since(start).Truncate(time.Millisecond))
}
