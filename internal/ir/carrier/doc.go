// Package carrier provides output lines for ir.Transmitter: a PWM pin driven
// through periph.io, a simulated line for hosts without an emitter, and a
// recorder used by tests.
package carrier
