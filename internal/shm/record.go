package shm

import "encoding/binary"

// RegistrationTypeID is the sentinel type_identifier value marking a frame
// as a type-registration record rather than a data record (spec.md §3).
const RegistrationTypeID = 0xFFFF

// headerSize is BufferEntryHeader's wire size: an 8-byte little-endian
// nanosecond timestamp followed by a 2-byte little-endian type identifier.
// This is an internal producer<->daemon framing detail, not part of the
// externally-observed DLT wire format, so it follows the host-order
// convention the rest of this package's offsets use rather than DLT's
// network byte order.
const headerSize = 10

// BufferEntryHeader is prepended by producers inside every framed payload.
type BufferEntryHeader struct {
	TimeStampNs int64
	TypeID      uint16
}

// IsRegistration reports whether this header marks a registration record.
func (h BufferEntryHeader) IsRegistration() bool { return h.TypeID == RegistrationTypeID }

func marshalHeader(h BufferEntryHeader) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.TimeStampNs))
	binary.LittleEndian.PutUint16(buf[8:10], h.TypeID)
	return buf
}

func unmarshalHeader(data []byte) (BufferEntryHeader, bool) {
	if len(data) < headerSize {
		return BufferEntryHeader{}, false
	}
	return BufferEntryHeader{
		TimeStampNs: int64(binary.LittleEndian.Uint64(data[0:8])),
		TypeID:      binary.LittleEndian.Uint16(data[8:10]),
	}, true
}

// SharedMemoryRecord is a view the reader returns over a drained data frame.
// It is valid only until the next Switch (it aliases the mapping's bytes).
type SharedMemoryRecord struct {
	Header  BufferEntryHeader
	Payload []byte
}

// TypeRegistration is the payload of a registration record: it names the
// type_identifier being declared so the daemon's type_cb can interpret
// later records carrying it without an out-of-band schema.
type TypeRegistration struct {
	TypeID uint16
	Name   string
}

func marshalRegistration(r TypeRegistration) []byte {
	nameBytes := []byte(r.Name)
	buf := make([]byte, 2+len(nameBytes))
	binary.LittleEndian.PutUint16(buf[0:2], r.TypeID)
	copy(buf[2:], nameBytes)
	return buf
}

func unmarshalRegistration(data []byte) (TypeRegistration, bool) {
	if len(data) < 2 {
		return TypeRegistration{}, false
	}
	return TypeRegistration{
		TypeID: binary.LittleEndian.Uint16(data[0:2]),
		Name:   string(data[2:]),
	}, true
}
