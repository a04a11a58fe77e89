//go:build darwin

package rpty

import (
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Allocate opens a new master/slave pair. Both descriptors are
// close-on-exec; the master is released if anything after opening it
// fails.
func Allocate() (*Pair, error) {
	m, s, err := pty.Open()
	if err != nil {
		return nil, allocError("openpty", err)
	}
	// the files only carry the descriptors until they are duplicated
	defer m.Close()
	defer s.Close()

	master, err := dupCloexec(int(m.Fd()))
	if err != nil {
		return nil, allocError("dup master", err)
	}
	slave, err := dupCloexec(int(s.Fd()))
	if err != nil {
		unix.Close(master)
		return nil, allocError("dup slave", err)
	}
	return &Pair{Master: master, Slave: slave, SlavePath: s.Name()}, nil
}
