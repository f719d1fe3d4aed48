// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rt

import (
	"net"

	"golang.org/x/sys/unix"
)

// ioResult is what Read/Write resolve to: the syscall's return value
// (bytes transferred) alongside any error other than EAGAIN, which
// Read/Write handle internally by attaching a waker and reporting
// pending instead of surfacing it. Accept resolves to acceptResult.
type ioResult struct {
	N   int
	Err error
}

// TCPListener is a non-blocking TCP listener whose Accept is a Future
// driven entirely through the Reactor - there is no net.Listener or
// net.Conn underneath, since those carry their own internal poller that
// would compete with this one. This is the concrete collaborator the
// AsyncReadable / AsyncWritable contract was written against.
type TCPListener struct {
	fd      int
	reactor *Reactor
}

// ListenTCP creates a non-blocking listening socket bound to addr and
// registers it with rt's reactor.
func ListenTCP(rt *Runtime, addr *net.TCPAddr) (*TCPListener, error) {
	family := unix.AF_INET
	if addr.IP != nil && addr.IP.To4() == nil {
		family = unix.AF_INET6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	sa, err := tcpAddrToSockaddr(addr)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	if err := rt.reactor.Register(fd); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &TCPListener{fd: fd, reactor: rt.reactor}, nil
}

// acceptResult is what Accept resolves to: either a freshly accepted
// stream, or an error other than EAGAIN (including a failure to attach
// the waker for a later retry, which Accept must surface rather than
// silently hang on).
type acceptResult struct {
	Stream *TCPStream
	Err    error
}

// Accept returns a Future resolving to a freshly accepted *TCPStream.
func (l *TCPListener) Accept() Future[acceptResult] {
	return FutureFunc[acceptResult](func(cx *Context) (acceptResult, bool) {
		connFD, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			if regErr := l.reactor.Register(connFD); regErr != nil {
				_ = unix.Close(connFD)
				return acceptResult{Err: regErr}, true
			}
			return acceptResult{Stream: &TCPStream{fd: connFD, reactor: l.reactor}}, true
		case err == unix.EAGAIN:
			if attachErr := l.reactor.AttachWaker(l.fd, InterestRead, cx.Waker()); attachErr != nil {
				return acceptResult{Err: attachErr}, true
			}
			return acceptResult{}, false
		default:
			return acceptResult{Err: err}, true
		}
	})
}

// Close deregisters and closes the listening socket.
func (l *TCPListener) Close() error {
	_ = l.reactor.Deregister(l.fd)
	return unix.Close(l.fd)
}

// Addr returns the address the listener is bound to, resolving an
// ephemeral port (addr.Port == 0 at ListenTCP time) to the one the
// kernel actually assigned.
func (l *TCPListener) Addr() (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return nil, err
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}, nil
	default:
		return nil, ErrUnregisteredSource
	}
}

// TCPStream is a non-blocking TCP connection driven through the
// Reactor. Read and Write each return a Future[ioResult]: a non-blocking
// syscall attempt is made the moment the future is first polled, and
// only on EAGAIN does it attach the polling context's waker to the
// reactor and report pending - it does not pre-emptively wait even when
// the caller hasn't polled it yet, matching AsyncReadable/AsyncWritable's
// poll_read/poll_write contract directly.
type TCPStream struct {
	fd      int
	reactor *Reactor
}

// Read returns a Future that reads into buf once data is available. It
// resolves with N == 0 and a nil Err at end of stream.
func (s *TCPStream) Read(buf []byte) Future[ioResult] {
	return FutureFunc[ioResult](func(cx *Context) (ioResult, bool) {
		n, err := unix.Read(s.fd, buf)
		switch {
		case err == nil:
			return ioResult{N: n}, true
		case err == unix.EAGAIN:
			if attachErr := s.reactor.AttachWaker(s.fd, InterestRead, cx.Waker()); attachErr != nil {
				return ioResult{Err: attachErr}, true
			}
			return ioResult{}, false
		default:
			return ioResult{Err: err}, true
		}
	})
}

// Write returns a Future that writes buf, once the socket is writable.
// Short writes are reported as-is (N may be less than len(buf)); callers
// writing a larger payload call Write again with the remainder, the same
// way a blocking net.Conn's caller would loop over Write.
func (s *TCPStream) Write(buf []byte) Future[ioResult] {
	return FutureFunc[ioResult](func(cx *Context) (ioResult, bool) {
		n, err := unix.Write(s.fd, buf)
		switch {
		case err == nil:
			return ioResult{N: n}, true
		case err == unix.EAGAIN:
			if attachErr := s.reactor.AttachWaker(s.fd, InterestWrite, cx.Waker()); attachErr != nil {
				return ioResult{Err: attachErr}, true
			}
			return ioResult{}, false
		default:
			return ioResult{Err: err}, true
		}
	})
}

// Close deregisters and closes the connection.
func (s *TCPStream) Close() error {
	_ = s.reactor.Deregister(s.fd)
	return unix.Close(s.fd)
}

func tcpAddrToSockaddr(addr *net.TCPAddr) (unix.Sockaddr, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}
