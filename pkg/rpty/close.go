//go:build linux || darwin

package rpty

import (
	"os"

	"golang.org/x/sys/unix"
)

// Close releases fd. It is not idempotent: closing a descriptor twice
// fails with ErrIO wrapping EBADF. Closing a master never signals the
// process on the other side; whether the child sees a hangup is up to the
// OS.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return ioError("close", err)
	}
	return nil
}

// Stream returns an *os.File reading and writing the terminal behind
// master. It works on a close-on-exec duplicate switched to non-blocking
// mode so reads honour deadlines and unblock on Close. The caller still
// owns master and must close both.
//
// The non-blocking flag lives on the open file description and is shared
// with master.
func Stream(master int) (*os.File, error) {
	fd, err := dupCloexec(master)
	if err != nil {
		return nil, ioError("dup master", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, ioError("set nonblock", err)
	}
	return os.NewFile(uintptr(fd), "/dev/ptmx"), nil
}

func dupCloexec(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}
