package ir

import (
	"fmt"
	"strings"
)

// Mode is the logical operating mode sent to the heatpump.
type Mode int

const (
	ModeAuto Mode = iota
	ModeCool
	ModeHeat
	ModeOff
)

// Control field limits accepted by the remote protocol.
const (
	MinTargetTemperature = 17
	MaxTargetTemperature = 30
	MinFanSpeed          = 0
	MaxFanSpeed          = 100
)

// VendorHeader is the fixed prefix of every frame.
const VendorHeader = "1111001000001101000000111111110000000001"

// FrameBits is the width of an encoded frame: the header plus 32 field bits.
const FrameBits = len(VendorHeader) + 32

var modeNames = map[Mode]string{
	ModeAuto: "AUTO",
	ModeCool: "COOL",
	ModeHeat: "HEAT",
	ModeOff:  "OFF",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts AUTO, COOL, HEAT or OFF in any letter case.
func ParseMode(s string) (Mode, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == want {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, s)
}

// Command is a snapshot of the control state to encode.
type Command struct {
	Mode              Mode
	TargetTemperature int
	FanSpeed          int
}

// Validate reports whether every field is inside its protocol range.
func (c Command) Validate() error {
	if _, ok := modeNames[c.Mode]; !ok {
		return fmt.Errorf("%w: mode %d", ErrInvalidArgument, int(c.Mode))
	}
	if c.TargetTemperature < MinTargetTemperature || c.TargetTemperature > MaxTargetTemperature {
		return fmt.Errorf("%w: target temperature %d outside [%d,%d]",
			ErrInvalidArgument, c.TargetTemperature, MinTargetTemperature, MaxTargetTemperature)
	}
	if c.FanSpeed < MinFanSpeed || c.FanSpeed > MaxFanSpeed {
		return fmt.Errorf("%w: fan speed %d outside [%d,%d]",
			ErrInvalidArgument, c.FanSpeed, MinFanSpeed, MaxFanSpeed)
	}
	return nil
}

// Fields are the numeric groups carried by a frame.
type Fields struct {
	TemperatureCode int `json:"temperature_code"`
	FanCode         int `json:"fan_code"`
	PowerBit        int `json:"power_bit"`
	ModeCode        int `json:"mode_code"`
	Checksum1       int `json:"checksum1"`
	Checksum2       int `json:"checksum2"`
}

// fieldsFor derives the frame fields from an already validated command.
func fieldsFor(c Command) Fields {
	f := Fields{
		TemperatureCode: c.TargetTemperature - MinTargetTemperature,
		FanCode:         fanCode(c.FanSpeed),
		ModeCode:        modeCode(c.Mode),
	}
	// wire polarity is inverted: 1 means off
	if c.Mode == ModeOff {
		f.PowerBit = 1
	}
	f.Checksum1 = (f.TemperatureCode + f.FanCode) % 16
	f.Checksum2 = f.ModeCode ^ 1
	return f
}

// fanCode maps 0 to automatic fan and (0,100] onto the even codes 2..12.
func fanCode(speed int) int {
	if speed <= 0 {
		return 0
	}
	return (speed/20)*2 + 2
}

// modeCode maps OFF onto HEAT's code; the unit expects HEAT while powered off.
func modeCode(m Mode) int {
	switch m {
	case ModeCool:
		return 1
	case ModeHeat, ModeOff:
		return 3
	default:
		return 0
	}
}

// Encode turns a command into the vendor frame. Out of range input is rejected
// with ErrInvalidArgument and no signal is produced.
func Encode(c Command) (Signal, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	f := fieldsFor(c)

	var b strings.Builder
	b.Grow(FrameBits)
	b.WriteString(VendorHeader)
	writeBits(&b, f.TemperatureCode, 4)
	writeBits(&b, 0, 4)
	writeBits(&b, f.FanCode, 4)
	writeBits(&b, 0, 1)
	writeBits(&b, f.PowerBit, 1)
	writeBits(&b, f.ModeCode, 2)
	writeBits(&b, 0, 8)
	writeBits(&b, f.Checksum1, 4)
	writeBits(&b, 0, 1)
	writeBits(&b, f.PowerBit, 1)
	writeBits(&b, f.Checksum2, 2)
	return Signal(b.String()), nil
}

// writeBits appends v as a big-endian group of width bits.
func writeBits(b *strings.Builder, v, width int) {
	for i := width - 1; i >= 0; i-- {
		if (v>>i)&1 == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
}
