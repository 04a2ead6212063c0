package logger

// Log levels accepted by log.level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// New returns a console logger at the given level. Unknown levels log everything.
// The daemon builds exactly one and hands it down to every component.
func New(level string) *Logger {
	return newZapLogger(level)
}

// Nop returns a logger that discards everything. Used by tests and optional wiring.
func Nop() *Logger {
	return newNopLogger()
}

// Or returns l, or a discarding logger when l is nil.
func Or(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
