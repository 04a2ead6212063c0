package carrier

import (
	"errors"
	"fmt"
	"time"

	"controlling_heatpump/internal/ir"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var errPinNotFound = errors.New("gpio pin not found")

// PWM drives an IR LED from a PWM capable pin: a mark is a 50% duty cycle at
// the carrier frequency, a space holds the pin low.
type PWM struct {
	pin   gpio.PinIO
	freq  physic.Frequency
	delay func(time.Duration)
}

// OpenPWM initializes the host drivers and claims the named pin, leaving it low.
func OpenPWM(name string) (*PWM, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", errPinNotFound, name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("drive %s low: %w", name, err)
	}
	return &PWM{
		pin:   p,
		freq:  physic.Frequency(ir.CarrierFrequency) * physic.Hertz,
		delay: SpinDelay,
	}, nil
}

func (p *PWM) SetCarrier(on bool) error {
	if on {
		return p.pin.PWM(gpio.DutyHalf, p.freq)
	}
	return p.pin.Out(gpio.Low)
}

func (p *PWM) Delay(d time.Duration) { p.delay(d) }

// Close leaves the pin low and releases it.
func (p *PWM) Close() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return err
	}
	return p.pin.Halt()
}
