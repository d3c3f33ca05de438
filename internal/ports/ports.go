// Package ports maps the 256 8080 I/O ports to devices.
package ports

// Device handles IN and OUT for the ports it is attached to.
type Device interface {
	In(port byte) byte
	Out(port byte, value byte)
}

// Bus dispatches port accesses to attached devices. Unattached ports read
// as 0 and discard writes.
type Bus struct {
	devices [256]Device
}

func NewBus() *Bus {
	return &Bus{}
}

// Attach connects d to each of the given ports, replacing any previous
// device. A nil device detaches.
func (b *Bus) Attach(d Device, ports ...byte) {
	for _, p := range ports {
		b.devices[p] = d
	}
}

// Device returns the device on a port, or nil.
func (b *Bus) Device(port byte) Device { return b.devices[port] }

func (b *Bus) In(port byte) byte {
	if d := b.devices[port]; d != nil {
		return d.In(port)
	}
	return 0
}

func (b *Bus) Out(port byte, value byte) {
	if d := b.devices[port]; d != nil {
		d.Out(port, value)
	}
}

// Latch remembers the last byte written and returns it on input.
type Latch struct {
	Value  byte
	Writes int
}

func (l *Latch) In(byte) byte { return l.Value }

func (l *Latch) Out(_ byte, value byte) {
	l.Value = value
	l.Writes++
}
