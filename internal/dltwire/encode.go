package dltwire

import "github.com/ehrlich-b/dlt-router/internal/constants"

// VerboseParams collects the fields needed to build one verbose DLT message.
type VerboseParams struct {
	AppID, CtxID, Ecu string
	Level             uint8
	Mcnt              uint8
	Tmsp              uint32
	Secs              uint32
	Microsecs         int32
	NumArgs           uint8
	Payload           []byte
}

// BuildVerbosePacket constructs a storage-header-prefixed verbose DLT
// message: storage(16) + standard(4) + extra(8) + extended(10) + payload,
// truncating payload so the whole message never exceeds
// constants.MaxDltMessageBytes (spec.md §4.9's truncation rule).
func BuildVerbosePacket(p VerboseParams) []byte {
	size := len(p.Payload)
	maxPayload := constants.MaxDltMessageBytes - (storageHeaderSize + verboseHeaderSize)
	if size > maxPayload {
		size = maxPayload
	}

	buf := make([]byte, storageHeaderSize+verboseHeaderSize+size)

	marshalStorageHeader(newStorageHeader(p.Secs, p.Microsecs), buf[0:storageHeaderSize])

	off := storageHeaderSize
	marshalStandardHeader(newStandardHeader(verboseHeaderSize+size, p.Mcnt, true), buf[off:off+standardHeaderSize])
	off += standardHeaderSize

	marshalStandardHeaderExtra(newStandardHeaderExtra(toID4(p.Ecu), p.Tmsp), buf[off:off+standardHeaderExtraSize])
	off += standardHeaderExtraSize

	marshalExtendedHeader(newExtendedHeader(p.Level, p.NumArgs, toID4(p.AppID), toID4(p.CtxID)), buf[off:off+extendedHeaderSize])
	off += extendedHeaderSize

	copy(buf[off:], p.Payload[:size])
	return buf
}

// NonVerboseParams collects the fields needed to build one non-verbose DLT
// message: a 4-byte standard header plus extra plus a 32-bit message id,
// with no extended header (UEH is left clear).
type NonVerboseParams struct {
	Ecu       string
	MsgID     uint32
	Mcnt      uint8
	Tmsp      uint32
	Secs      uint32
	Microsecs int32
	Data      []byte
}

// BuildNonVerbosePacket constructs a storage-header-prefixed non-verbose DLT
// message: storage(16) + standard(4) + extra(8) + msgid(4) + data, truncated
// to constants.MaxDltMessageBytes overall.
func BuildNonVerbosePacket(p NonVerboseParams) []byte {
	size := len(p.Data)
	maxData := constants.MaxDltMessageBytes - (storageHeaderSize + nonVerboseHeaderSize)
	if size > maxData {
		size = maxData
	}

	buf := make([]byte, storageHeaderSize+nonVerboseHeaderSize+size)

	marshalStorageHeader(newStorageHeader(p.Secs, p.Microsecs), buf[0:storageHeaderSize])

	off := storageHeaderSize
	marshalStandardHeader(newStandardHeader(nonVerboseHeaderSize+size, p.Mcnt, false), buf[off:off+standardHeaderSize])
	off += standardHeaderSize

	marshalStandardHeaderExtra(newStandardHeaderExtra(toID4(p.Ecu), p.Tmsp), buf[off:off+standardHeaderExtraSize])
	off += standardHeaderExtraSize

	putUint32BE(buf[off:off+4], p.MsgID)
	off += 4

	copy(buf[off:], p.Data[:size])
	return buf
}

func putUint32BE(buf []byte, v uint32) {
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
}
