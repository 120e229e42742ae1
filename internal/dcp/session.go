package dcp

import "github.com/ehrlich-b/dlt-router/internal/dre"

// configSession binds a connection to a single dre.Server and answers each
// framed command via OnConfigCommand. It never pushes unsolicited frames,
// so OnTick is a no-op; subscriber sessions (spec.md §4.11's other branch)
// are out of this core's scope and are not implemented here.
type configSession struct {
	server *dre.Server
}

// NewConfigSessionFactory builds the SessionFactory a DCP listener binds to
// config-command connections. The first framed message is consumed the
// same way as any later one: it is itself a command, not a handshake
// payload, since this core has no subscriber-session branch to
// distinguish it from.
func NewConfigSessionFactory(server *dre.Server) SessionFactory {
	return func(firstMessage []byte, handle SessionHandle) Session {
		session := &configSession{server: server}
		if resp := OnConfigCommand(server, firstMessage); resp != nil {
			_ = handle.Write(resp)
		}
		return session
	}
}

func (s *configSession) OnCommand(data []byte) []byte {
	return OnConfigCommand(s.server, data)
}

func (s *configSession) OnTick() bool { return false }

func (s *configSession) OnClosedByPeer() {}
