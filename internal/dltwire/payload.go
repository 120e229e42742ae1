package dltwire

import "encoding/binary"

// type_info bit flags (DltTypeInfo), little-endian on the wire per spec.md
// §6 ("type_info fields in the payload are little-endian bitmasks"), unlike
// every other multi-byte field in this package.
const (
	TypeInfoTyleMask = 0x0000000f
	TypeInfoSint     = 0x00000020
	TypeInfoUint     = 0x00000040
	TypeInfoStrg     = 0x00000200
	TypeInfoRawd     = 0x00000400
	TypeInfoScodMask = 0x00038000
)

const (
	Tyle8Bit   = 0x00000001
	Tyle16Bit  = 0x00000002
	Tyle32Bit  = 0x00000003
	Tyle64Bit  = 0x00000004
	Tyle128Bit = 0x00000005
)

const (
	ScodASCII = 0x00000000
	ScodUTF8  = 0x00008000
)

// argBuilder appends type_info-prefixed arguments into a payload buffer, the
// way a verbose DLT message's body is constructed one argument at a
// time. It tracks how many arguments were written so callers can fill in a
// packet's noar/NOR field once the whole sequence is built.
type argBuilder struct {
	buf   []byte
	count uint8
}

func (a *argBuilder) putTypeInfo(typeInfo uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], typeInfo)
	a.buf = append(a.buf, b[:]...)
}

// putUint16 appends a UINT|TYLE_16BIT argument.
func (a *argBuilder) putUint16(v uint16) {
	a.putTypeInfo(TypeInfoUint | Tyle16Bit)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	a.buf = append(a.buf, b[:]...)
	a.count++
}

// putUint32 appends a UINT|TYLE_32BIT argument.
func (a *argBuilder) putUint32(v uint32) {
	a.putTypeInfo(TypeInfoUint | Tyle32Bit)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.buf = append(a.buf, b[:]...)
	a.count++
}

// putInt16 appends a SINT|TYLE_16BIT argument.
func (a *argBuilder) putInt16(v int16) {
	a.putTypeInfo(TypeInfoSint | Tyle16Bit)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	a.buf = append(a.buf, b[:]...)
	a.count++
}

// putString appends a STRG|SCOD_UTF8 argument: type_info, a 16-bit
// string_length counting the trailing NUL, then the bytes and the NUL.
func (a *argBuilder) putString(s string) {
	a.putTypeInfo(TypeInfoStrg | ScodUTF8)
	n := uint16(len(s) + 1)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], n)
	a.buf = append(a.buf, lenBuf[:]...)
	a.buf = append(a.buf, s...)
	a.buf = append(a.buf, 0)
	a.count++
}

// putRaw appends a RAWD argument: type_info, a 16-bit length, then the bytes.
func (a *argBuilder) putRaw(data []byte) {
	a.putTypeInfo(TypeInfoRawd)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(data)))
	a.buf = append(a.buf, lenBuf[:]...)
	a.buf = append(a.buf, data...)
	a.count++
}
