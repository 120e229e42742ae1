package dltwire

import (
	"encoding/binary"

	"github.com/ehrlich-b/dlt-router/internal/dltid"
)

// ParsedHeader is what the daemon's drain path needs out of a wire-encoded
// message to make a routing decision: the fields FilterAndCall keys on, plus
// enough to tell a verbose log entry from a non-verbose one. The message
// bytes themselves are forwarded to channel.Output.Send unchanged; nothing
// here re-encodes them.
type ParsedHeader struct {
	Verbose      bool
	AppID, CtxID dltid.ID
	Level        dltid.LogLevel
	MsgID        uint32 // only set when !Verbose
	BodyOffset   int    // index into the original bytes where the argument payload starts
}

// ParseHeader walks a storage-header-prefixed message far enough to recover
// ParsedHeader, without copying the payload. It returns ok=false for
// anything shorter than the fixed header layers it expects, or a standard
// header whose Len runs past the end of the slice it was handed.
//
// Only the verbose path carries AppID/CtxID/Level on the wire (the extended
// header); this package's non-verbose layout has no WAID/WCID bits, so a
// non-verbose ParsedHeader comes back with the zero AppID/CtxID and Off
// level. Routing a non-verbose record by (appId,ctxId) is therefore a
// daemon-level decision the caller makes with information it already has
// out of band, not something ParseHeader can recover from the bytes alone.
func ParseHeader(data []byte) (ParsedHeader, bool) {
	if len(data) < storageHeaderSize+standardHeaderSize {
		return ParsedHeader{}, false
	}
	off := storageHeaderSize

	htyp := data[off]
	standardLen := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
	if off+standardLen > len(data) {
		return ParsedHeader{}, false
	}
	off += standardHeaderSize

	hasExtra := htyp&(HtypWEID|HtypWTMS) == (HtypWEID | HtypWTMS)
	if hasExtra {
		if off+standardHeaderExtraSize > len(data) {
			return ParsedHeader{}, false
		}
		off += standardHeaderExtraSize
	}

	if htyp&HtypUEH == 0 {
		if off+4 > len(data) {
			return ParsedHeader{}, false
		}
		return ParsedHeader{
			Verbose:    false,
			MsgID:      binary.BigEndian.Uint32(data[off : off+4]),
			BodyOffset: off + 4,
		}, true
	}

	if off+extendedHeaderSize > len(data) {
		return ParsedHeader{}, false
	}
	msin := data[off]
	apid := data[off+2 : off+6]
	ctid := data[off+6 : off+10]
	off += extendedHeaderSize

	return ParsedHeader{
		Verbose:    true,
		AppID:      dltid.ID{apid[0], apid[1], apid[2], apid[3]},
		CtxID:      dltid.ID{ctid[0], ctid[1], ctid[2], ctid[3]},
		Level:      dltid.LogLevel(msin >> MtinShift),
		BodyOffset: off,
	}, true
}
