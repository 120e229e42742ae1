package dcp

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/dlt-router/internal/constants"
)

// sessionState is one connection's position in spec.md §4.11's state
// machine: New -> Active -> (ClosedByPeer | Terminating).
type sessionState uint8

const (
	stateNew sessionState = iota
	stateActive
	stateClosedByPeer
	stateTerminating
)

// frameHeaderLen is the length-prefix size of this server's framing: a
// 4-byte big-endian length followed by that many payload bytes. Framing is
// implementation-defined per spec.md §4.11 as long as it matches the client
// library, so this is the server side of that one contract.
const frameHeaderLen = 4

// maxFrameLen rejects a runaway length prefix before it drives an
// unbounded allocation; DCP commands are at most a few dozen bytes.
const maxFrameLen = 4096

// Session is bound to a connection on its first framed message. OnCommand
// is called once per subsequent framed message and its return value is
// written back as the response frame; OnTick is called once per poll
// iteration's work-queue drain step and returns whether the session wants
// to stay enqueued for another tick.
type Session interface {
	OnCommand(data []byte) []byte
	OnTick() bool
	OnClosedByPeer()
}

// SessionHandle lets a Session push an unsolicited frame to its peer
// outside the request/response cycle (used by on_tick).
type SessionHandle struct {
	fd int
}

// Write frames and sends payload to this session's connection. It returns
// the write error if the connection already closed.
func (h SessionHandle) Write(payload []byte) error {
	return writeFrame(h.fd, payload)
}

// SessionFactory binds a connection's first non-empty message to a
// Session, per spec.md §4.11's "session factory" paragraph.
type SessionFactory func(firstMessage []byte, handle SessionHandle) Session

type connection struct {
	fd       int
	id       uuid.UUID // correlates this connection's log lines across accept/close
	state    sessionState
	session  Session
	newSince time.Time
	inbuf    []byte
}

// Server is the single-threaded, poll-based AF_UNIX SOCK_STREAM server
// from spec.md §4.11.
type Server struct {
	path     string
	listenFd int
	factory  SessionFactory
	conns    map[int]*connection
	logf     func(format string, args ...any)
}

// Listen creates, binds and listens on a AF_UNIX SOCK_STREAM socket at
// path, in non-blocking mode so Serve's poll loop never stalls on accept
// or recv.
func Listen(path string, factory SessionFactory, logf func(format string, args ...any)) (*Server, error) {
	_ = unix.Unlink(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("dcp: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("dcp: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, 16); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("dcp: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("dcp: set nonblocking: %w", err)
	}

	return &Server{
		path:     path,
		listenFd: fd,
		factory:  factory,
		conns:    make(map[int]*connection),
		logf:     logf,
	}, nil
}

// Close shuts down the listening socket and every open connection.
func (s *Server) Close() error {
	for fd := range s.conns {
		unix.Close(fd)
	}
	err := unix.Close(s.listenFd)
	_ = unix.Unlink(s.path)
	return err
}

// Serve runs the poll loop (spec.md §4.11's five numbered steps) until ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := s.tick(); err != nil {
			return err
		}
	}
}

// tick runs exactly one poll-loop iteration.
func (s *Server) tick() error {
	pollfds := make([]unix.PollFd, 0, len(s.conns)+1)
	pollfds = append(pollfds, unix.PollFd{Fd: int32(s.listenFd), Events: unix.POLLIN})
	order := make([]int, 0, len(s.conns))
	for fd, c := range s.conns {
		if c.state == stateTerminating {
			continue
		}
		pollfds = append(pollfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		order = append(order, fd)
	}

	n, err := unix.Poll(pollfds, int(constants.PollTimeout/time.Millisecond))
	if err != nil && err != unix.EINTR {
		return fmt.Errorf("dcp: poll: %w", err)
	}

	if n > 0 && pollfds[0].Revents&unix.POLLIN != 0 {
		s.acceptNew()
	}
	for i, fd := range order {
		revents := pollfds[i+1].Revents
		if revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			s.deliver(fd)
		}
	}

	if n == 0 {
		s.sweepIdleNew()
	}
	s.drainTicks()
	s.reapTerminating()
	return nil
}

func (s *Server) acceptNew() {
	fd, _, err := unix.Accept(s.listenFd)
	if err != nil {
		if s.logf != nil {
			s.logf("dcp: accept: %v", err)
		}
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return
	}
	c := &connection{fd: fd, id: uuid.New(), state: stateNew, newSince: time.Now()}
	s.conns[fd] = c
	if s.logf != nil {
		s.logf("dcp: connection %s accepted", c.id)
	}
}

// deliver reads whatever is available on fd, folds it into the
// connection's pending buffer, and processes every complete frame found.
// recv returning 0 (EOF) transitions the session to ClosedByPeer, per
// spec.md §4.11's step 3.
func (s *Server) deliver(fd int) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}

	var scratch [4096]byte
	for {
		n, err := unix.Read(fd, scratch[:])
		if n > 0 {
			c.inbuf = append(c.inbuf, scratch[:n]...)
		}
		if n == 0 {
			s.closeByPeer(c)
			return
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			s.closeByPeer(c)
			return
		}
		if n < len(scratch) {
			break
		}
	}

	for {
		frame, rest, ok := splitFrame(c.inbuf)
		if !ok {
			break
		}
		c.inbuf = rest
		s.handleFrame(c, frame)
	}
}

func (s *Server) handleFrame(c *connection, frame []byte) {
	switch c.state {
	case stateNew:
		if s.factory == nil {
			c.state = stateTerminating
			return
		}
		session := s.factory(frame, SessionHandle{fd: c.fd})
		if session == nil {
			c.state = stateTerminating
			return
		}
		c.session = session
		c.state = stateActive
	case stateActive:
		if c.session == nil {
			return
		}
		resp := c.session.OnCommand(frame)
		if resp != nil {
			_ = writeFrame(c.fd, resp)
		}
	default:
	}
}

// closeByPeer transitions c through ClosedByPeer before marking it for
// removal, matching spec.md §4.11's state names even though this server
// reaps a connection in the same tick it detects the hangup.
func (s *Server) closeByPeer(c *connection) {
	if c.state == stateActive && c.session != nil {
		c.session.OnClosedByPeer()
	}
	c.state = stateClosedByPeer
	c.state = stateTerminating
	if s.logf != nil {
		s.logf("dcp: connection %s closed by peer", c.id)
	}
}

// sweepIdleNew closes connections still in New state after
// constants.NewSessionTimeout without a first message (spec.md §4.11's New
// state: "times out after ~500ms; on timeout, close without invoking the
// session factory").
func (s *Server) sweepIdleNew() {
	now := time.Now()
	for _, c := range s.conns {
		if c.state == stateNew && now.Sub(c.newSince) >= constants.NewSessionTimeout {
			c.state = stateTerminating
		}
	}
}

// drainTicks runs on_tick for every Active session, per spec.md §4.11's
// step 5. A session whose OnTick returns false is left alone; this server
// always revisits every Active session on the next iteration, so no
// explicit re-enqueue bookkeeping is needed beyond the map itself.
func (s *Server) drainTicks() {
	for _, c := range s.conns {
		if c.state != stateActive || c.session == nil {
			continue
		}
		c.session.OnTick()
	}
}

func (s *Server) reapTerminating() {
	for fd, c := range s.conns {
		if c.state == stateTerminating {
			unix.Close(fd)
			delete(s.conns, fd)
		}
	}
}

// writeFrame sends a length-prefixed frame. It tolerates partial writes
// with a retry loop since the socket is non-blocking.
func writeFrame(fd int, payload []byte) error {
	header := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	buf := append(header, payload...)
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				continue
			}
			return fmt.Errorf("dcp: write: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}

// splitFrame extracts one complete length-prefixed frame from buf, if
// present. It reports ok=false when buf does not yet hold a full frame
// (spec.md §4.11: "the server never delivers a partial message").
func splitFrame(buf []byte) (frame []byte, rest []byte, ok bool) {
	if len(buf) < frameHeaderLen {
		return nil, buf, false
	}
	length := binary.BigEndian.Uint32(buf[:frameHeaderLen])
	if length > maxFrameLen {
		return nil, nil, false
	}
	total := frameHeaderLen + int(length)
	if len(buf) < total {
		return nil, buf, false
	}
	return buf[frameHeaderLen:total], buf[total:], true
}
