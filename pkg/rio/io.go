package rio

import (
	"errors"
	"io"
	"sync"
)

// borrowed from the official go io package with some changes to support
// throughtput metrics
func copyBuffer(dst io.Writer, src io.Reader, wch chan<- int64) (err error) {
	buf := make([]byte, 32*1024)
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if ew == nil {
					ew = errors.New("invalid write result")
				}
			}
			if wch != nil && nw > 0 {
				wch <- int64(nw)
			}
			if ew != nil {
				err = ew
				break
			}
			if nr != nw {
				err = io.ErrShortWrite
				break
			}
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			break
		}
	}
	return err
}

// CopyConnWithOnClose copy bytes from c1 to c2 and viceversa. As soon as
// one direction stops, onClose is called and then both ends are closed.
// With metrics enabled the returned channel reports every written chunk
// size and must be drained by the caller; it is closed once both
// directions stopped
func CopyConnWithOnClose(
	c1 io.ReadWriteCloser,
	c2 io.ReadWriteCloser,
	metrics bool,
	onClose func()) <-chan int64 {

	var bw chan int64
	if metrics {
		bw = make(chan int64)
	}

	var once sync.Once
	var wg sync.WaitGroup

	connClose := func() {
		// onClose runs while both ends are still open, so it can still
		// deliver a last message
		onClose()
		c1.Close()
		c2.Close()
	}

	wg.Add(2)
	go func() {
		copyBuffer(c1, c2, bw)
		once.Do(connClose)
		wg.Done()
	}()

	go func() {
		copyBuffer(c2, c1, bw)
		once.Do(connClose)
		wg.Done()
	}()

	go func() {
		wg.Wait()
		if metrics {
			close(bw)
		}
	}()

	return bw
}

// CopyConn copy bytes from c1 to c2 and viceversa
func CopyConn(c1 io.ReadWriteCloser, c2 io.ReadWriteCloser) {
	CopyConnWithOnClose(c1, c2, false, func() {})
}
