package emu

// Config contains settings that affect how programs are loaded and run.
type Config struct {
	Origin uint16 // load address for raw images
	PC     int    // start address, negative to use the image entry
	SP     int    // initial stack pointer, negative for the default
	Trace  bool   // log every instruction at debug level

	// MaxSteps stops Run with ErrStepLimit after this many instructions.
	// 0 runs until the CPU halts, faults or the context ends.
	MaxSteps int
}

// Defaults returns a config that loads raw images at 0 and starts there.
func Defaults() Config {
	return Config{PC: -1, SP: -1}
}
