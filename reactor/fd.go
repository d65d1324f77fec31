package reactor

import "golang.org/x/sys/unix"

// closedFD is the sentinel value held by a FD after it has been closed or
// released; it must never be passed to any syscall.
const closedFD = -1

// FD is an owned, move-only descriptor. A zero-value FD is not usable;
// construct one with NewFD. Closing happens exactly once: a second Close
// is a no-op, and the sentinel value prevents reuse after close.
type FD struct {
	raw int
}

// NewFD wraps a raw descriptor for ownership by the caller.
func NewFD(raw int) FD {
	return FD{raw: raw}
}

// Int returns the raw descriptor value, or closedFD if this FD has been
// closed or released.
func (f FD) Int() int {
	return f.raw
}

// Valid reports whether this FD still owns an open descriptor.
func (f FD) Valid() bool {
	return f.raw != closedFD
}

// Close closes the underlying descriptor, if any, and marks this FD as
// closed. Safe to call more than once.
func (f *FD) Close() error {
	if f.raw == closedFD {
		return nil
	}
	raw := f.raw
	f.raw = closedFD
	return unix.Close(raw)
}

// Release surrenders the raw descriptor to the caller without closing it.
// After Release, this FD is marked closed and must not be used again.
func (f *FD) Release() int {
	raw := f.raw
	f.raw = closedFD
	return raw
}
