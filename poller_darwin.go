// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package rt

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// kqueueSelector backs the reactor with kqueue. Darwin has no eventfd,
// so shutdown uses a self-pipe the same way the teacher's wakeup_darwin.go
// does: a non-blocking pipe whose read end is registered with
// EVFILT_READ, pulsed by writing a single byte to the write end.
type kqueueSelector struct {
	kq        int
	wakeRead  int
	wakeWrite int
	raw       [256]unix.Kevent_t
}

func newSelector() (selector, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)

	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		_ = unix.Close(kq)
		return nil, err
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(kq)
		_ = syscall.Close(fds[0])
		_ = syscall.Close(fds[1])
		return nil, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		_ = unix.Close(kq)
		_ = syscall.Close(fds[0])
		_ = syscall.Close(fds[1])
		return nil, err
	}

	s := &kqueueSelector{kq: kq, wakeRead: fds[0], wakeWrite: fds[1]}
	changes := []unix.Kevent_t{{
		Ident:  uint64(s.wakeRead),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_ENABLE,
	}}
	if _, err := unix.Kevent(s.kq, changes, nil, nil); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

func (s *kqueueSelector) register(fd int, interest Interest) error {
	changes := interestToKevents(fd, interest, unix.EV_ADD|unix.EV_ENABLE)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(s.kq, changes, nil, nil)
	return err
}

func (s *kqueueSelector) reregister(fd int, interest Interest) error {
	// kqueue interest is per-filter, not a single combined mask; adding
	// EVFILT_READ/EVFILT_WRITE again with EV_ADD is idempotent, so
	// upgrading interest is the same call as the initial register.
	return s.register(fd, interest)
}

func (s *kqueueSelector) deregister(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Either filter may not have been registered; kqueue returns ENOENT
	// for that one without affecting the other, which is fine to ignore
	// here since the caller only deregisters a fully-tracked fd.
	_, _ = unix.Kevent(s.kq, changes, nil, nil)
	return nil
}

func (s *kqueueSelector) wait(buf []readyEvent) (int, error) {
	n, err := unix.Kevent(s.kq, nil, s.raw[:], nil)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for i := 0; i < n && count < len(buf); i++ {
		e := s.raw[i]
		if int(e.Ident) == s.wakeRead {
			var discard [64]byte
			for {
				if _, err := syscall.Read(s.wakeRead, discard[:]); err != nil {
					break
				}
			}
			buf[count] = readyEvent{wake: true}
			count++
			continue
		}
		ev := readyEvent{fd: int(e.Ident)}
		switch e.Filter {
		case unix.EVFILT_READ:
			ev.read = true
		case unix.EVFILT_WRITE:
			ev.write = true
		}
		if e.Flags&unix.EV_ERROR != 0 || e.Flags&unix.EV_EOF != 0 {
			ev.read = true
			ev.write = true
		}
		buf[count] = ev
		count++
	}
	return count, nil
}

func (s *kqueueSelector) pulse() error {
	_, err := syscall.Write(s.wakeWrite, []byte{1})
	return err
}

func (s *kqueueSelector) close() error {
	err1 := syscall.Close(s.wakeRead)
	err2 := syscall.Close(s.wakeWrite)
	err3 := unix.Close(s.kq)
	for _, e := range []error{err1, err2, err3} {
		if e != nil {
			return e
		}
	}
	return nil
}

func interestToKevents(fd int, i Interest, flags uint16) []unix.Kevent_t {
	var changes []unix.Kevent_t
	if i&InterestRead != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if i&InterestWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return changes
}
