package dltrouter

import (
	"github.com/ehrlich-b/dlt-router/internal/dltwire"
	"github.com/ehrlich-b/dlt-router/internal/shm"
)

// TestProducer wraps a Daemon's shm.Writer with convenience methods that
// build and write whole DLT packets in one call, the way a real producer
// library would sit in front of shm.Writer. Tests and cmd/dlt-router's
// demo subcommand both use this instead of hand-assembling wire bytes.
type TestProducer struct {
	writer *shm.Writer
}

// NewTestProducer returns a TestProducer writing through d's shared
// memory region, for a test or a demo goroutine to drive without reaching
// into Daemon's internals.
func NewTestProducer(d *Daemon) *TestProducer {
	return &TestProducer{writer: d.Writer()}
}

// WriteVerbose builds a verbose DLT packet with the given identity and
// level and writes it, returning false if the writer's LCB had no room
// (mirroring shm.Writer.Write's own bool contract).
func (p *TestProducer) WriteVerbose(appID, ctxID, ecu string, level uint8, payload []byte) bool {
	packet := dltwire.BuildVerbosePacket(dltwire.VerboseParams{
		AppID: appID, CtxID: ctxID, Ecu: ecu,
		Level:   level,
		NumArgs: 1,
		Payload: payload,
	})
	return p.writer.Write(0, packet)
}

// WriteNonVerbose builds a non-verbose DLT packet carrying msgID and
// writes it. Non-verbose packets carry no AppId/CtxId on the wire (see
// dltwire.ParseHeader's doc comment), so there is no identity parameter
// here to match.
func (p *TestProducer) WriteNonVerbose(ecu string, msgID uint32, data []byte) bool {
	packet := dltwire.BuildNonVerbosePacket(dltwire.NonVerboseParams{
		Ecu: ecu, MsgID: msgID, Data: data,
	})
	return p.writer.Write(0, packet)
}

// RegisterType writes a type-registration frame ahead of any records of
// that type, the same sequencing a real producer follows when it first
// starts emitting a given payload shape.
func (p *TestProducer) RegisterType(typeID uint16, name string) bool {
	return p.writer.WriteNamed(typeID, name, nil)
}
