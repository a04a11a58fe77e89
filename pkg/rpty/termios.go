//go:build linux || darwin

package rpty

import "golang.org/x/sys/unix"

func ctrl(c byte) uint8 {
	return c & 0x1f
}

// DefaultTermios returns the cooked-mode profile applied to every slave
// before its child starts: UTF-8 input with CR to NL mapping, NL to CRNL
// output, 8 bit characters, job control signals and echo.
func DefaultTermios() *unix.Termios {
	t := &unix.Termios{}
	t.Iflag = unix.ICRNL | unix.IUTF8
	t.Oflag = unix.OPOST | unix.ONLCR
	t.Cflag = unix.CS8 | unix.CREAD
	t.Lflag = unix.ISIG | unix.ICANON | unix.IEXTEN | unix.ECHO | unix.ECHOE | unix.ECHOK
	setSpeed(t)

	t.Cc[unix.VINTR] = ctrl('C')
	t.Cc[unix.VQUIT] = ctrl('\\')
	t.Cc[unix.VERASE] = 0x7f
	t.Cc[unix.VKILL] = ctrl('U')
	t.Cc[unix.VEOF] = ctrl('D')
	t.Cc[unix.VSTART] = ctrl('Q')
	t.Cc[unix.VSTOP] = ctrl('S')
	t.Cc[unix.VSUSP] = ctrl('Z')
	t.Cc[unix.VREPRINT] = ctrl('R')
	t.Cc[unix.VWERASE] = ctrl('W')
	t.Cc[unix.VLNEXT] = ctrl('V')
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return t
}

// GetAttr reads the terminal attributes of fd.
func GetAttr(fd int) (*unix.Termios, error) {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, ioError("tcgetattr", err)
	}
	return t, nil
}

// SetAttr applies t to fd immediately.
func SetAttr(fd int, t *unix.Termios) error {
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		return ioError("tcsetattr", err)
	}
	return nil
}
