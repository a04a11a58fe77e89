//go:build linux

package rpty

import (
	"strconv"

	"golang.org/x/sys/unix"
)

const ptmx = "/dev/ptmx"

// Allocate opens a new master/slave pair. Both descriptors are
// close-on-exec; the master is released if anything after opening it
// fails.
func Allocate() (pair *Pair, err error) {
	master, err := unix.Open(ptmx, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, allocError("open "+ptmx, err)
	}
	defer func() {
		if err != nil {
			unix.Close(master)
		}
	}()

	// grantpt is a no-op on devpts
	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		return nil, allocError("unlockpt", err)
	}
	n, err := unix.IoctlGetUint32(master, unix.TIOCGPTN)
	if err != nil {
		return nil, allocError("ptsname", err)
	}
	name := "/dev/pts/" + strconv.FormatUint(uint64(n), 10)

	slave, err := unix.Open(name, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, allocError("open "+name, err)
	}
	return &Pair{Master: master, Slave: slave, SlavePath: name}, nil
}
