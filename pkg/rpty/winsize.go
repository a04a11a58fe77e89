//go:build linux || darwin

package rpty

import "golang.org/x/sys/unix"

// GetSize queries the current geometry of the terminal behind master.
func GetSize(master int) (WindowSize, error) {
	ws, err := unix.IoctlGetWinsize(master, unix.TIOCGWINSZ)
	if err != nil {
		return WindowSize{}, ioError("get window size", err)
	}
	return WindowSize{Rows: ws.Row, Cols: ws.Col}, nil
}

// SetSize applies size to the terminal behind master. The kernel notifies
// the foreground process group with SIGWINCH.
func SetSize(master int, size WindowSize) error {
	ws := &unix.Winsize{Row: size.Rows, Col: size.Cols}
	if err := unix.IoctlSetWinsize(master, unix.TIOCSWINSZ, ws); err != nil {
		return ioError("set window size", err)
	}
	return nil
}
