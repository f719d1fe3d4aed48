// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package rt

import "golang.org/x/sys/unix"

// epollSelector backs the reactor with epoll, waking a blocked
// EpollWait via an eventfd pulsed from Reactor.Shutdown.
type epollSelector struct {
	epfd   int
	wakeFD int
	raw    [256]unix.EpollEvent
}

func newSelector() (selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakeFD)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFD, &ev); err != nil {
		_ = unix.Close(wakeFD)
		_ = unix.Close(epfd)
		return nil, err
	}
	return &epollSelector{epfd: epfd, wakeFD: wakeFD}, nil
}

func (s *epollSelector) register(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (s *epollSelector) reregister(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (s *epollSelector) deregister(fd int) error {
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (s *epollSelector) wait(buf []readyEvent) (int, error) {
	n, err := unix.EpollWait(s.epfd, s.raw[:], -1)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for i := 0; i < n && count < len(buf); i++ {
		e := s.raw[i]
		if int(e.Fd) == s.wakeFD {
			var discard [8]byte
			_, _ = unix.Read(s.wakeFD, discard[:])
			buf[count] = readyEvent{wake: true}
			count++
			continue
		}
		buf[count] = readyEvent{
			fd:    int(e.Fd),
			read:  e.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			write: e.Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0,
		}
		count++
	}
	return count, nil
}

func (s *epollSelector) pulse() error {
	buf := [8]byte{7: 1}
	_, err := unix.Write(s.wakeFD, buf[:])
	return err
}

func (s *epollSelector) close() error {
	err1 := unix.Close(s.wakeFD)
	err2 := unix.Close(s.epfd)
	if err1 != nil {
		return err1
	}
	return err2
}

func interestToEpoll(i Interest) uint32 {
	var events uint32
	if i&InterestRead != 0 {
		events |= unix.EPOLLIN
	}
	if i&InterestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}
