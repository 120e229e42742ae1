package shm

import "context"

// AcquisitionTransport is the out-of-band control channel spec.md §4.6
// describes for the acquisition request/response handshake: the daemon asks
// a producer for its current switch_count before the producer's shared
// memory segment is unlinked from the filesystem namespace, so the daemon
// can confirm the two sides agree on which block is being drained.
// RequestSwitchCount is the only method because that is the only message
// this handshake exchanges. The only implementation in this repository is
// the TransportFunc Daemon.confirmAcquisition builds, which reads
// switch_count directly off the in-process ACB; no request is sent over a
// socket.
type AcquisitionTransport interface {
	RequestSwitchCount(ctx context.Context) (uint32, error)
}

// TransportFunc adapts a function to AcquisitionTransport, mirroring the
// handler-as-func pattern used throughout this repository's test doubles.
type TransportFunc func(ctx context.Context) (uint32, error)

func (f TransportFunc) RequestSwitchCount(ctx context.Context) (uint32, error) { return f(ctx) }

// ErrHandshakeMismatch is returned by ConfirmHandshake when the producer's
// reply does not advance switch_count by exactly one generation, which
// spec.md §7 treats as a faulty producer: the daemon closes the connection
// and unlinks the shared-memory file.
type ErrHandshakeMismatch struct {
	Expected, Got uint32
}

func (e ErrHandshakeMismatch) Error() string {
	return "shm: acquisition handshake did not advance switch_count by exactly one generation"
}

// ConfirmHandshake issues the request and validates that the reply equals
// priorSwitchCount+1 (wraparound on uint32 overflow is expected and
// harmless, per spec.md §9's switch-count-aliasing note).
func ConfirmHandshake(ctx context.Context, t AcquisitionTransport, priorSwitchCount uint32) (uint32, error) {
	got, err := t.RequestSwitchCount(ctx)
	if err != nil {
		return 0, err
	}
	if got != priorSwitchCount+1 {
		return 0, ErrHandshakeMismatch{Expected: priorSwitchCount + 1, Got: got}
	}
	return got, nil
}
