// Package dltid defines the small fixed-width identifiers and the log
// level enumeration shared by the routing engine, the wire-format encoder
// and the diagnostic configuration protocol.
package dltid

import "fmt"

// ID is a 4-byte ASCII identifier (app id, context id, ecu id, channel
// name). Names shorter than 4 bytes are NUL-padded; names are compared by
// their raw bytes, which doubles as a cheap 32-bit hash for map keys.
type ID [4]byte

// FromString builds an ID from a name, NUL-padding short names and
// truncating names longer than 4 bytes.
func FromString(name string) ID {
	var id ID
	copy(id[:], name)
	return id
}

// String renders the ID back to a display string, trimming trailing NULs.
func (id ID) String() string {
	n := len(id)
	for n > 0 && id[n-1] == 0 {
		n--
	}
	return string(id[:n])
}

func (id ID) GoString() string {
	return fmt.Sprintf("dltid.ID(%q)", id.String())
}

// IsZero reports whether id is the all-NUL identifier.
func (id ID) IsZero() bool {
	return id == ID{}
}

// LogLevel orders numerically from Off (never sent) to Verbose (always
// sent when under threshold).
type LogLevel uint8

const (
	Off LogLevel = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Verbose
)

// UseDefaultLevel is the SET_LOG_LEVEL sentinel (0xFF) meaning "erase the
// per (app,ctx) override and fall back to the default threshold".
const UseDefaultLevel = 0xFF

// Valid reports whether l is one of the seven defined levels.
func (l LogLevel) Valid() bool {
	return l <= Verbose
}

func (l LogLevel) String() string {
	switch l {
	case Off:
		return "Off"
	case Fatal:
		return "Fatal"
	case Error:
		return "Error"
	case Warn:
		return "Warn"
	case Info:
		return "Info"
	case Debug:
		return "Debug"
	case Verbose:
		return "Verbose"
	default:
		return fmt.Sprintf("LogLevel(%d)", uint8(l))
	}
}

// ParseLogLevel maps a wire byte to a LogLevel. Only 0..6 are valid;
// 0xFF (UseDefaultLevel) is a protocol sentinel handled by the caller, not
// a level in its own right, so it is rejected here.
func ParseLogLevel(b byte) (LogLevel, bool) {
	if b > byte(Verbose) {
		return 0, false
	}
	return LogLevel(b), true
}

// Key pairs an AppId and CtxId for use as a map key in routing tables and
// threshold overrides.
type Key struct {
	App ID
	Ctx ID
}
