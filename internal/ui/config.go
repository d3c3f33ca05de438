package ui

// Config contains window and monitor settings.
type Config struct {
	Title         string // window title
	Scale         int    // integer upscaling factor
	StepsPerFrame int    // instructions executed per update while running
	StartPaused   bool   // open the monitor paused at the first instruction
	StateDir      string // directory for save state slots, "" next to the program
	DisasmLines   int    // instructions listed from PC
	MemoryRows    int    // 16 byte rows in the memory dump
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "i8080emu"
	}
	if c.Scale <= 0 {
		c.Scale = 2
	}
	if c.StepsPerFrame <= 0 {
		// roughly a 2 MHz 8080 at 60 updates per second
		c.StepsPerFrame = 5000
	}
	if c.DisasmLines <= 0 {
		c.DisasmLines = 10
	}
	if c.MemoryRows <= 0 {
		c.MemoryRows = 6
	}
}
