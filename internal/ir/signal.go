package ir

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks input outside a declared range or a malformed frame.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrHardwareFailure marks a carrier primitive failing mid-frame.
	ErrHardwareFailure = errors.New("hardware failure")
)

// Signal is an encoded frame as a string of '0' and '1' characters.
type Signal string

// Len returns the number of bit symbols in the frame.
func (s Signal) Len() int { return len(s) }

// Validate rejects any symbol other than '0' or '1'.
func (s Signal) Validate() error {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return fmt.Errorf("%w: symbol %q at position %d", ErrInvalidArgument, s[i], i)
		}
	}
	return nil
}

// Fields parses a full-width frame back into its numeric groups.
func (s Signal) Fields() (Fields, error) {
	if err := s.Validate(); err != nil {
		return Fields{}, err
	}
	if len(s) != FrameBits {
		return Fields{}, fmt.Errorf("%w: frame has %d bits, want %d", ErrInvalidArgument, len(s), FrameBits)
	}
	if !strings.HasPrefix(string(s), VendorHeader) {
		return Fields{}, fmt.Errorf("%w: vendor header mismatch", ErrInvalidArgument)
	}

	r := bitReader{s: string(s), pos: len(VendorHeader)}
	var f Fields
	f.TemperatureCode = r.read(4)
	r.skip(4)
	f.FanCode = r.read(4)
	r.skip(1)
	f.PowerBit = r.read(1)
	f.ModeCode = r.read(2)
	r.skip(8)
	f.Checksum1 = r.read(4)
	r.skip(1)
	if repeat := r.read(1); repeat != f.PowerBit {
		return Fields{}, fmt.Errorf("%w: power bit %d repeated as %d", ErrInvalidArgument, f.PowerBit, repeat)
	}
	f.Checksum2 = r.read(2)
	return f, nil
}

type bitReader struct {
	s   string
	pos int
}

func (r *bitReader) read(width int) int {
	v := 0
	for i := 0; i < width; i++ {
		v <<= 1
		if r.s[r.pos] == '1' {
			v |= 1
		}
		r.pos++
	}
	return v
}

func (r *bitReader) skip(width int) { r.pos += width }
