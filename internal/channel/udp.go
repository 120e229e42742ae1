package channel

import (
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// dltVlanPriority is the 802.1p PCP value original_source's network/vlan.h
// assigns to DLT traffic via SO_PRIORITY.
const dltVlanPriority = 1

const sendBufferBytes = 64 * 1024

// UdpStreamOutput owns one IPv4 UDP socket plus the raw destination
// sockaddr every send fills into its message headers.
type UdpStreamOutput struct {
	fd  int
	dst unix.RawSockaddrInet4
}

// newUdpStreamOutput creates, configures, and binds a UDP socket per
// spec.md §4.8's five construction steps. Any failure after the socket is
// created is returned wrapped with context; Channel.Open decides whether to
// keep a degraded/unconfigured output rather than crash the daemon.
func newUdpStreamOutput(bindAddr string, bindPort uint16, dstAddr string, dstPort uint16, multicastIface string) (*UdpStreamOutput, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("channel: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_LOOP, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("channel: IP_MULTICAST_LOOP: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("channel: SO_REUSEPORT: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, sendBufferBytes); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("channel: SO_SNDBUF: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("channel: SO_REUSEADDR: %w", err)
	}

	if ifAddr := resolveIPv4(multicastIface); ifAddr != nil {
		var addr4 [4]byte
		copy(addr4[:], ifAddr)
		if err := unix.SetsockoptInet4Addr(fd, unix.IPPROTO_IP, unix.IP_MULTICAST_IF, addr4); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("channel: IP_MULTICAST_IF: %w", err)
		}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PRIORITY, dltVlanPriority); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("channel: SO_PRIORITY: %w", err)
	}

	bindSockAddr := &unix.SockaddrInet4{Port: int(bindPort)}
	if ip := resolveIPv4(bindAddr); ip != nil {
		copy(bindSockAddr.Addr[:], ip)
	}
	if err := unix.Bind(fd, bindSockAddr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("channel: bind %s:%d: %w", bindAddr, bindPort, err)
	}

	dst := unix.RawSockaddrInet4{Family: unix.AF_INET, Port: htons(dstPort)}
	if ip := resolveIPv4(dstAddr); ip != nil {
		copy(dst.Addr[:], ip)
	}

	return &UdpStreamOutput{fd: fd, dst: dst}, nil
}

func resolveIPv4(addr string) net.IP {
	if addr == "" {
		return nil
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil
	}
	return ip.To4()
}

func htons(v uint16) uint16 { return v<<8 | v>>8 }

// Close releases the underlying socket.
func (o *UdpStreamOutput) Close() error {
	if o.fd == 0 {
		return nil
	}
	err := unix.Close(o.fd)
	o.fd = 0
	return err
}

// ready reports whether this output has a live socket to send on.
func (o *UdpStreamOutput) ready() bool { return o.fd != 0 }

// Send batches buffers into one sendmmsg(2) call, one buffer per UDP
// datagram, each addressed at this channel's destination. Returns the
// number of messages the kernel actually accepted.
func (o *UdpStreamOutput) Send(buffers [][]byte) (int, error) {
	if !o.ready() {
		return 0, fmt.Errorf("channel: send on unconfigured socket")
	}
	if len(buffers) == 0 {
		return 0, nil
	}

	iovs := make([]unix.Iovec, len(buffers))
	hdrs := make([]unix.Mmsghdr, len(buffers))
	for i, b := range buffers {
		if len(b) > 0 {
			iovs[i].Base = &b[0]
		}
		iovs[i].SetLen(len(b))
		hdrs[i].Hdr.Name = (*byte)(unsafe.Pointer(&o.dst))
		hdrs[i].Hdr.Namelen = uint32(unsafe.Sizeof(o.dst))
		hdrs[i].Hdr.Iov = &iovs[i]
		hdrs[i].Hdr.SetIovlen(1)
	}

	n, err := unix.Sendmmsg(o.fd, hdrs, 0)
	if err != nil {
		return n, fmt.Errorf("channel: sendmmsg: %w", err)
	}
	return n, nil
}

// SendOne sends a single message scattered over multiple iovecs, the path
// spec.md §4.8 reserves for large fragmented file-transfer payloads. It
// fails with EOVERFLOW if iovs exceeds the platform's IOV_MAX, the one
// failure mode the single-message path must surface explicitly.
func (o *UdpStreamOutput) SendOne(iovs [][]byte) error {
	if !o.ready() {
		return fmt.Errorf("channel: send on unconfigured socket")
	}
	if len(iovs) > unix.IOV_MAX {
		return unix.EOVERFLOW
	}

	iov := make([]unix.Iovec, len(iovs))
	for i, b := range iovs {
		if len(b) > 0 {
			iov[i].Base = &b[0]
		}
		iov[i].SetLen(len(b))
	}

	msg := unix.Msghdr{
		Name:    (*byte)(unsafe.Pointer(&o.dst)),
		Namelen: uint32(unsafe.Sizeof(o.dst)),
	}
	if len(iov) > 0 {
		msg.Iov = &iov[0]
	}
	msg.SetIovlen(len(iov))

	_, _, errno := unix.Syscall(unix.SYS_SENDMSG, uintptr(o.fd), uintptr(unsafe.Pointer(&msg)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
