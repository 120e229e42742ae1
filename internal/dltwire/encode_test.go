package dltwire

import (
	"testing"

	"github.com/ehrlich-b/dlt-router/internal/constants"
)

func TestBuildVerbosePacketLayout(t *testing.T) {
	payload := make([]byte, 42)
	for i := range payload {
		payload[i] = byte(i)
	}

	buf := BuildVerbosePacket(VerboseParams{
		AppID: "APP0", CtxID: "CTX0", Ecu: "ECU0",
		Level: 4, Mcnt: 0, Tmsp: 0, Secs: 0, Microsecs: 0,
		NumArgs: 1, Payload: payload,
	})

	if string(buf[0:3]) != "DLT" || buf[3] != 0x01 {
		t.Fatalf("storage header pattern = %q, want DLT\\x01", buf[0:4])
	}

	htyp := buf[storageHeaderSize]
	if htyp != 0x35 {
		t.Fatalf("htyp = 0x%02x, want 0x35", htyp)
	}

	wantLen := uint16(verboseHeaderSize + 42)
	gotLen := uint16(buf[storageHeaderSize+2])<<8 | uint16(buf[storageHeaderSize+3])
	if gotLen != wantLen {
		t.Fatalf("len = %d, want %d", gotLen, wantLen)
	}

	msin := buf[storageHeaderSize+standardHeaderSize+standardHeaderExtraSize]
	mstp := (msin >> MstpShift) & 0x07
	mtin := (msin >> MtinShift) & 0x0f
	if mstp != 0 {
		t.Fatalf("MSTP = %d, want 0", mstp)
	}
	if mtin != 4 {
		t.Fatalf("MTIN = %d, want 4", mtin)
	}

	payloadOff := storageHeaderSize + verboseHeaderSize
	if string(buf[payloadOff:]) != string(payload) {
		t.Fatalf("payload not copied bit-for-bit at offset %d", payloadOff)
	}
}

func TestBuildVerbosePacketTruncates(t *testing.T) {
	huge := make([]byte, 1<<17)
	buf := BuildVerbosePacket(VerboseParams{AppID: "APP0", CtxID: "CTX0", Ecu: "ECU0", Payload: huge})
	if len(buf) > 65536 {
		t.Fatalf("message length = %d, want <= 65536", len(buf))
	}
}

func TestBuildNonVerbosePacketNoExtendedHeader(t *testing.T) {
	buf := BuildNonVerbosePacket(NonVerboseParams{Ecu: "ECU0", MsgID: 7, Data: []byte("x")})
	htyp := buf[storageHeaderSize]
	if htyp&HtypUEH != 0 {
		t.Fatalf("non-verbose htyp should not set UEH, got 0x%02x", htyp)
	}
}

func TestPackageFileHeaderLayout(t *testing.T) {
	pkt, ok := PackageFileHeader(nil, "x.txt", 10, "2025-01-01", 1, 1, 1)
	if !ok {
		t.Fatal("PackageFileHeader returned false")
	}
	if pkt.ArgCount != FlstNOR {
		t.Fatalf("arg count = %d, want %d", pkt.ArgCount, FlstNOR)
	}

	buf := pkt.Payload
	typeInfo := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	if typeInfo != TypeInfoStrg|ScodUTF8 {
		t.Fatalf("type_info = 0x%08x, want STRG|SCOD_UTF8", typeInfo)
	}
	strLen := uint16(buf[4]) | uint16(buf[5])<<8
	if strLen != 5 {
		t.Fatalf("string_length = %d, want 5", strLen)
	}
	if string(buf[6:11]) != "FLST\x00" {
		t.Fatalf("tag bytes = %q, want FLST\\x00", buf[6:11])
	}
}

func TestFileDataClampsChunk(t *testing.T) {
	oversized := make([]byte, 4096)
	pkt, ok := FileData(nil, 1, 0, oversized)
	if !ok {
		t.Fatal("FileData returned false")
	}
	if pkt.ArgCount != FldaNOR {
		t.Fatalf("arg count = %d, want %d", pkt.ArgCount, FldaNOR)
	}
	// payload bytes live after FLDA's string (4+2+5) + two uint32 args (2*(4+4)):
	rawStart := (4 + 2 + 5) + 2*(4+4) + (4 + 2)
	if len(pkt.Payload)-rawStart != constants.MaxFileTransferChunkBytes {
		t.Fatalf("raw chunk length = %d, want %d", len(pkt.Payload)-rawStart, constants.MaxFileTransferChunkBytes)
	}
}

func TestFileErrorAndFinish(t *testing.T) {
	if pkt, ok := FileFinish(nil, 42); !ok || pkt.ArgCount != FlfiNOR {
		t.Fatalf("FileFinish = %+v, %v", pkt, ok)
	}
	if pkt, ok := FileError(nil, 42, -1); !ok || pkt.ArgCount != FlerNOR {
		t.Fatalf("FileError = %+v, %v", pkt, ok)
	}
}

func TestBuildPacketRespectsCapacityHint(t *testing.T) {
	tiny := make([]byte, 1)
	if _, ok := FileFinish(tiny, 1); ok {
		t.Fatal("expected FileFinish to fail against a 1-byte capacity hint")
	}
}
