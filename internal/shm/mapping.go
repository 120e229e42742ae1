// Package shm couples an AlternatingControlBlock with a real POSIX shared
// memory mapping, framing typed records on top of it the way the teacher's
// internal/queue package couples an io_uring-backed Runner with a real
// mmap'd descriptor array (internal/queue/runner.go's mmapQueues/
// loadDescriptor).
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a byte region shared with producer processes. Real mappings are
// backed by a file under /dev/shm; NewInProcessMapping backs the same type
// with a plain heap slice for single-process deployments and tests.
type Mapping struct {
	Bytes []byte

	name string
	fd   int
}

// OpenOrCreate opens (creating if necessary) the POSIX shared-memory object
// at /dev/shm/<name>, sized to size bytes, and maps it read-write.
func OpenOrCreate(name string, size int) (*Mapping, error) {
	path := "/dev/shm/" + name
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0660)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate %s: %w", path, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}
	return &Mapping{Bytes: data, name: name, fd: fd}, nil
}

// Unlink removes the shared-memory object's filesystem entry. Spec.md's
// lifecycle rule: this happens as soon as the daemon acknowledges the
// producer's first acquire request, not at Close time, so an abrupt daemon
// exit never leaves a stale /dev/shm entry.
func (m *Mapping) Unlink() error {
	if m.name == "" {
		return nil
	}
	err := os.Remove("/dev/shm/" + m.name)
	m.name = ""
	return err
}

// Close unmaps the region and closes the backing fd, if any.
func (m *Mapping) Close() error {
	var err error
	if m.Bytes != nil {
		err = unix.Munmap(m.Bytes)
		m.Bytes = nil
	}
	if m.fd > 0 {
		unix.Close(m.fd)
		m.fd = 0
	}
	return err
}

// NewInProcessMapping backs a Mapping with an ordinary heap allocation. Used
// when the producer and the daemon are goroutines in the same process (the
// test harness and the demo producer in cmd/dlt-router), and by unit tests
// that only need the byte layout, not real cross-process visibility.
func NewInProcessMapping(size int) *Mapping {
	return &Mapping{Bytes: make([]byte, size)}
}
