package loader

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	recData            = 0x00
	recEOF             = 0x01
	recExtSegment      = 0x02
	recStartSegment    = 0x03
	recExtLinear       = 0x04
	recStartLinear     = 0x05
	maxAddressableSize = 0x10000
)

// ParseHex decodes Intel HEX text. Adjacent data records are merged into
// one segment. Extended address records must select the first 64K.
func ParseHex(data []byte) (*Image, error) {
	img := &Image{Format: FormatHex}
	var base uint32

	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		rec, err := parseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		switch rec.kind {
		case recData:
			addr := base + uint32(rec.address)
			if addr+uint32(len(rec.data)) > maxAddressableSize {
				return nil, fmt.Errorf("line %d: data at 0x%X beyond 64K: %w", line, addr, ErrRecord)
			}
			img.addData(uint16(addr), rec.data)

		case recEOF:
			return img, nil

		case recExtSegment, recExtLinear:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended address length %d: %w", line, len(rec.data), ErrRecord)
			}
			v := uint32(rec.data[0])<<8 | uint32(rec.data[1])
			if rec.kind == recExtSegment {
				base = v << 4
			} else {
				base = v << 16
			}

		case recStartSegment, recStartLinear:
			if len(rec.data) != 4 {
				return nil, fmt.Errorf("line %d: start address length %d: %w", line, len(rec.data), ErrRecord)
			}
			// low 16 bits of IP or EIP
			img.Entry = uint16(rec.data[2])<<8 | uint16(rec.data[3])
			img.HasEntry = true

		default:
			return nil, fmt.Errorf("line %d: record type 0x%02X: %w", line, rec.kind, ErrRecord)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading hex: %w", err)
	}
	// a missing EOF record is tolerated
	return img, nil
}

func (img *Image) addData(addr uint16, data []byte) {
	if n := len(img.Segments); n > 0 {
		last := &img.Segments[n-1]
		if int(last.Origin)+len(last.Data) == int(addr) {
			last.Data = append(last.Data, data...)
			return
		}
	}
	img.Segments = append(img.Segments, Segment{Origin: addr, Data: append([]byte(nil), data...)})
}

type record struct {
	kind    byte
	address uint16
	data    []byte
}

func parseRecord(text string) (record, error) {
	if !strings.HasPrefix(text, ":") {
		return record{}, fmt.Errorf("missing start code: %w", ErrRecord)
	}
	raw, err := hex.DecodeString(text[1:])
	if err != nil {
		return record{}, fmt.Errorf("%v: %w", err, ErrRecord)
	}
	if len(raw) < 5 {
		return record{}, fmt.Errorf("record too short: %w", ErrRecord)
	}
	count := int(raw[0])
	if len(raw) != count+5 {
		return record{}, fmt.Errorf("byte count %d does not match record length: %w", count, ErrRecord)
	}

	var sum byte
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return record{}, fmt.Errorf("checksum 0x%02X: %w", raw[len(raw)-1], ErrChecksum)
	}

	return record{
		kind:    raw[3],
		address: uint16(raw[1])<<8 | uint16(raw[2]),
		data:    raw[4 : 4+count],
	}, nil
}
