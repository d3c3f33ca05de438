package cpu

// Flags holds the condition codes as independent booleans. They are packed
// into a byte only for PUSH PSW / POP PSW.
type Flags struct {
	Sign     bool
	Zero     bool
	AuxCarry bool
	Parity   bool
	Carry    bool
}

// bit positions in the program status word
const (
	flagC  byte = 1 << 0
	flagP  byte = 1 << 2
	flagAC byte = 1 << 4
	flagZ  byte = 1 << 6
	flagS  byte = 1 << 7

	// bit 1 always reads as 1, bits 3 and 5 as 0
	pswFixed byte = 1 << 1
)

// parityTable[v] is true when v has an even number of set bits.
var parityTable [256]bool

func init() {
	for i := range parityTable {
		n := 0
		for v := i; v != 0; v >>= 1 {
			n += v & 1
		}
		parityTable[i] = n%2 == 0
	}
}

// Byte packs the flags as S Z 0 AC 0 P 1 C.
func (f Flags) Byte() byte {
	v := pswFixed
	if f.Sign {
		v |= flagS
	}
	if f.Zero {
		v |= flagZ
	}
	if f.AuxCarry {
		v |= flagAC
	}
	if f.Parity {
		v |= flagP
	}
	if f.Carry {
		v |= flagC
	}
	return v
}

// SetByte unpacks a program status word, ignoring the fixed bits.
func (f *Flags) SetByte(v byte) {
	f.Sign = v&flagS != 0
	f.Zero = v&flagZ != 0
	f.AuxCarry = v&flagAC != 0
	f.Parity = v&flagP != 0
	f.Carry = v&flagC != 0
}

// setZSP recomputes zero, sign and parity from a result byte.
func (f *Flags) setZSP(v byte) {
	f.Zero = v == 0
	f.Sign = v&0x80 != 0
	f.Parity = parityTable[v]
}

// String renders the flags in PSW order, upper case when set.
func (f Flags) String() string {
	b := []byte("sz-a-p-c")
	if f.Sign {
		b[0] = 'S'
	}
	if f.Zero {
		b[1] = 'Z'
	}
	if f.AuxCarry {
		b[3] = 'A'
	}
	if f.Parity {
		b[5] = 'P'
	}
	if f.Carry {
		b[7] = 'C'
	}
	return string(b)
}
