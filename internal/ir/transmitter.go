package ir

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// CarrierFrequency is the modulation frequency of a mark.
const CarrierFrequency = 38_000

// Pulse distance timing of the vendor protocol.
const (
	HeaderMark  = 4400 * time.Microsecond
	HeaderSpace = 4350 * time.Microsecond
	BitMark     = 560 * time.Microsecond
	ZeroSpace   = 520 * time.Microsecond
	OneSpace    = 1600 * time.Microsecond
	EndMark     = 560 * time.Microsecond
	EndSpace    = 7450 * time.Microsecond
)

// FrameRepeats is how many times each Transmit sends the frame.
const FrameRepeats = 2

// Carrier is the output line driven by the transmitter. SetCarrier switches the
// 38 kHz modulation on or off; Delay holds the current level for d.
type Carrier interface {
	SetCarrier(on bool) error
	Delay(d time.Duration)
}

// State is the position of the transmitter in the frame.
type State int32

const (
	StateIdle State = iota
	StateSendingHeader
	StateSendingBits
	StateSendingEnd
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSendingHeader:
		return "sending_header"
	case StateSendingBits:
		return "sending_bits"
	case StateSendingEnd:
		return "sending_end"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Transmitter owns a carrier line and sends frames on it one call at a time.
type Transmitter struct {
	mu      sync.Mutex
	carrier Carrier

	// state in the high word, bit index in the low word
	status atomic.Uint64
}

// NewTransmitter returns an idle transmitter driving c.
func NewTransmitter(c Carrier) *Transmitter {
	return &Transmitter{carrier: c}
}

// Status reports the current state and the bit index that goes with it: the
// bit being sent, or for StateAborted the bit that failed. Both come from one
// load, so the pair is always consistent.
func (t *Transmitter) Status() (State, int) {
	v := t.status.Load()
	return State(int32(v >> 32)), int(int32(uint32(v)))
}

func (t *Transmitter) setStatus(st State, bit int) {
	t.status.Store(uint64(uint32(st))<<32 | uint64(uint32(bit)))
}

// Transmit sends s FrameRepeats times back to back. Concurrent callers are
// serialized. The frame is validated before the line is touched; a bad frame
// leaves the carrier alone and the transmitter aborted. Otherwise a call
// blocks until every frame is out or the first carrier failure, which is
// returned wrapped in ErrHardwareFailure without retrying.
func (t *Transmitter) Transmit(s Signal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := s.Validate(); err != nil {
		t.setStatus(StateAborted, 0)
		return err
	}

	// keep the pulse train on one OS thread to limit scheduling jitter
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for i := 0; i < FrameRepeats; i++ {
		if err := t.sendFrame(s); err != nil {
			_, bit := t.Status()
			t.setStatus(StateAborted, bit)
			return err
		}
	}
	t.setStatus(StateDone, 0)
	return nil
}

// PulseCount is the number of mark and space intervals one Transmit emits
// for a frame of bits symbols: a header pair, one pair per bit and an end pair,
// FrameRepeats times. A full 72-bit frame gives 296 intervals per call.
func PulseCount(bits int) int {
	return FrameRepeats * (2 + 2*bits + 2)
}

// Duration is the time one Transmit of s holds the line, every repeat included.
// It is the sum of the nominal intervals; real hold time adds carrier switching
// overhead on top.
func Duration(s Signal) time.Duration {
	d := HeaderMark + HeaderSpace + EndMark + EndSpace
	for i := 0; i < len(s); i++ {
		d += BitMark + ZeroSpace
		if s[i] == '1' {
			d += OneSpace - ZeroSpace
		}
	}
	return FrameRepeats * d
}

func (t *Transmitter) sendFrame(s Signal) error {
	t.setStatus(StateSendingHeader, 0)
	if err := t.pair(HeaderMark, HeaderSpace); err != nil {
		return fmt.Errorf("%w: header: %w", ErrHardwareFailure, err)
	}

	for i := 0; i < len(s); i++ {
		t.setStatus(StateSendingBits, i)
		space := ZeroSpace
		if s[i] == '1' {
			space = OneSpace
		}
		if err := t.pair(BitMark, space); err != nil {
			return fmt.Errorf("%w: bit %d: %w", ErrHardwareFailure, i, err)
		}
	}

	t.setStatus(StateSendingEnd, 0)
	if err := t.pair(EndMark, EndSpace); err != nil {
		return fmt.Errorf("%w: end marker: %w", ErrHardwareFailure, err)
	}
	return nil
}

// pair emits one mark followed by one space.
func (t *Transmitter) pair(mark, space time.Duration) error {
	if err := t.carrier.SetCarrier(true); err != nil {
		// the line state is unknown; try to leave it dark
		_ = t.carrier.SetCarrier(false)
		return fmt.Errorf("mark: %w", err)
	}
	t.carrier.Delay(mark)

	if err := t.carrier.SetCarrier(false); err != nil {
		return fmt.Errorf("space: %w", err)
	}
	t.carrier.Delay(space)
	return nil
}
