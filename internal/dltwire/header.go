// Package dltwire builds DLT (Diagnostic Log and Trace) messages byte for
// byte: storage header, standard header, its optional extra block, the
// extended header, and the file-transfer packet family layered on top of a
// verbose argument payload. All layouts are fixed C structures; this package
// marshals them by hand with encoding/binary rather than reflection, the
// same way the rest of this repository treats wire formats it does not own.
package dltwire

import (
	"encoding/binary"
	"unsafe"
)

// htyp flag bits (DltStandardHeader.Htyp).
const (
	HtypUEH  = 0x01 // use extended header
	HtypMSBF = 0x02 // payload is big-endian
	HtypWEID = 0x04 // ecu id present
	HtypWSID = 0x08 // session id present (unused here)
	HtypWTMS = 0x10 // timestamp present
	HtypVers = 0x20 // protocol version 1
)

// msin layout (DltExtendedHeader.Msin).
const (
	MstpShift = 1
	MtinShift = 4
	MsinVerb  = 0x01
	TypeLog   = 0x00
)

// storageHeaderSize, standardHeaderSize, standardHeaderExtraSize, and
// extendedHeaderSize give the fixed byte length of each layer, mirroring
// original_source's sizeof() arithmetic exactly: a verbose header is
// standardHeaderSize+standardHeaderExtraSize+extendedHeaderSize == 22 bytes,
// not the round 16 a casual reading of the format suggests.
const (
	storageHeaderSize       = 16
	standardHeaderSize      = 4
	standardHeaderExtraSize = 8
	extendedHeaderSize      = 10
	verboseHeaderSize       = standardHeaderSize + standardHeaderExtraSize + extendedHeaderSize
	nonVerboseHeaderSize    = standardHeaderSize + standardHeaderExtraSize + 4 // + msgid
)

// DltStorageHeader is the 16-byte prefix written ahead of every message when
// messages are framed for storage or transport over this daemon's channels.
type DltStorageHeader struct {
	Pattern      [4]byte
	Seconds      uint32
	Microseconds int32
	Ecu          [4]byte
}

var _ [storageHeaderSize]byte = [unsafe.Sizeof(DltStorageHeader{})]byte{}

func marshalStorageHeader(h DltStorageHeader, buf []byte) {
	_ = buf[:storageHeaderSize]
	copy(buf[0:4], h.Pattern[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Seconds)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.Microseconds))
	copy(buf[12:16], h.Ecu[:])
}

func newStorageHeader(secs uint32, microsecs int32) DltStorageHeader {
	return DltStorageHeader{
		Pattern:      [4]byte{'D', 'L', 'T', 0x01},
		Seconds:      secs,
		Microseconds: microsecs,
		Ecu:          [4]byte{'E', 'C', 'U', 0},
	}
}

// DltStandardHeader is the 4-byte header every DLT message carries.
type DltStandardHeader struct {
	Htyp uint8
	Mcnt uint8
	Len  uint16 // big-endian on the wire; total size from this header on
}

var _ [standardHeaderSize]byte = [unsafe.Sizeof(DltStandardHeader{})]byte{}

func marshalStandardHeader(h DltStandardHeader, buf []byte) {
	_ = buf[:standardHeaderSize]
	buf[0] = h.Htyp
	buf[1] = h.Mcnt
	binary.BigEndian.PutUint16(buf[2:4], h.Len)
}

// newStandardHeader composes htyp from the default flag set, optionally
// OR-ing in UEH for verbose (extended-header-bearing) messages.
func newStandardHeader(msgSize int, mcnt uint8, useExtHeader bool) DltStandardHeader {
	htyp := uint8(HtypWEID | HtypWTMS | HtypVers)
	if useExtHeader {
		htyp |= HtypUEH
	}
	return DltStandardHeader{Htyp: htyp, Mcnt: mcnt, Len: uint16(msgSize)}
}

// DltStandardHeaderExtra carries the ecu id again plus a big-endian
// timestamp, present whenever WEID|WTMS are set (always, in this package).
type DltStandardHeaderExtra struct {
	Ecu  [4]byte
	Tmsp uint32 // big-endian on the wire
}

var _ [standardHeaderExtraSize]byte = [unsafe.Sizeof(DltStandardHeaderExtra{})]byte{}

func marshalStandardHeaderExtra(h DltStandardHeaderExtra, buf []byte) {
	_ = buf[:standardHeaderExtraSize]
	copy(buf[0:4], h.Ecu[:])
	binary.BigEndian.PutUint32(buf[4:8], h.Tmsp)
}

func newStandardHeaderExtra(ecu [4]byte, tmsp uint32) DltStandardHeaderExtra {
	return DltStandardHeaderExtra{Ecu: ecu, Tmsp: tmsp}
}

// DltExtendedHeader is present only on verbose messages (htyp&UEH set).
type DltExtendedHeader struct {
	Msin uint8
	Noar uint8
	Apid [4]byte
	Ctid [4]byte
}

var _ [extendedHeaderSize]byte = [unsafe.Sizeof(DltExtendedHeader{})]byte{}

func marshalExtendedHeader(h DltExtendedHeader, buf []byte) {
	_ = buf[:extendedHeaderSize]
	buf[0] = h.Msin
	buf[1] = h.Noar
	copy(buf[2:6], h.Apid[:])
	copy(buf[6:10], h.Ctid[:])
}

// newExtendedHeader computes msin for a verbose log message: TYPE_LOG in
// MSTP, the log level in MTIN, VERB always set.
func newExtendedHeader(level uint8, numArgs uint8, appID, ctxID [4]byte) DltExtendedHeader {
	msin := uint8((TypeLog << MstpShift) | (level << MtinShift) | MsinVerb)
	return DltExtendedHeader{Msin: msin, Noar: numArgs, Apid: appID, Ctid: ctxID}
}

// toID4 copies s into a 4-byte array, NUL-padding short names, matching
// spec.md §6's "shorter names are NUL-padded" rule for dltid_t fields.
func toID4(s string) [4]byte {
	var id [4]byte
	copy(id[:], s)
	return id
}
