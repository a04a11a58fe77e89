//go:build darwin

package rpty

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

func setSpeed(t *unix.Termios) {
	t.Ispeed = unix.B38400
	t.Ospeed = unix.B38400
}
