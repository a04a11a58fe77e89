package sessionsapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ferama/ptyctl/pkg/logger"
	"github.com/ferama/ptyctl/pkg/rio"
	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/ferama/ptyctl/pkg/session"
	"github.com/ferama/ptyctl/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var log = logger.NewLogger("[WEB ] ", logger.Green)

const (
	// how long output is still drained after the process exited
	drainTimeout = 250 * time.Millisecond
	// how long the exit status is awaited once the terminal side ended
	exitWait = 500 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// same policy as the cors middleware
		return true
	},
}

// attach bridges a websocket to the session terminal. Binary frames carry
// terminal bytes both ways, text frames carry controlMessage values
func (r *sessionsRoutes) attach(c *gin.Context) {
	s, ok := r.session(c)
	if !ok {
		return
	}
	if err := s.TryAttach(); err != nil {
		abort(c, err)
		return
	}
	stream, err := s.Stream()
	if err != nil {
		s.Detach()
		abort(c, err)
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already replied
		log.Printf("session %d: websocket upgrade failed: %s", s.ID, err)
		stream.Close()
		s.Detach()
		return
	}
	log.Printf("session %d attached from %s", s.ID, c.ClientIP())

	conn := newWsConn(ws, s)
	go func() {
		<-s.Done()
		// unblock the copy even if some grandchild holds the terminal open
		stream.SetReadDeadline(time.Now().Add(drainTimeout))
	}()

	bw := rio.CopyConnWithOnClose(conn, stream, true, func() {
		select {
		case <-s.Done():
		case <-time.After(exitWait):
		}
		if status, ok := s.Status(); ok {
			conn.writeControl(controlMessage{
				Type: "exit",
				Exit: newExitResponse(status),
			})
		}
		conn.writeClose()
		s.Detach()
	})

	var total int64
	for n := range bw {
		total += n
	}
	log.Printf("session %d detached, %s transferred", s.ID, utils.ByteCountSI(total))
}

// wsConn adapts a websocket to an io.ReadWriteCloser over the binary
// frames. Text frames are handled as control messages for the session
type wsConn struct {
	ws   *websocket.Conn
	sess *session.Session

	pending []byte

	// gorilla websocket supports one concurrent writer
	writeMu sync.Mutex
}

func newWsConn(ws *websocket.Conn, sess *session.Session) *wsConn {
	return &wsConn{
		ws:   ws,
		sess: sess,
	}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		switch mt {
		case websocket.BinaryMessage:
			c.pending = data
		case websocket.TextMessage:
			c.control(data)
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) writeControl(msg controlMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(msg); err != nil {
		log.Printf("session %d: %s", c.sess.ID, err)
	}
}

func (c *wsConn) writeClose() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (c *wsConn) control(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.controlError(err)
		return
	}
	switch msg.Type {
	case "resize":
		size, err := rpty.NewWindowSize(msg.Rows, msg.Cols)
		if err == nil {
			err = c.sess.Resize(size)
		}
		if err != nil {
			c.controlError(err)
		}
	case "signal":
		sig, err := rpty.ParseSignal(msg.Signal)
		if err == nil {
			err = c.sess.Signal(sig)
		}
		if err != nil {
			c.controlError(err)
		}
	default:
		c.controlError(fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (c *wsConn) controlError(err error) {
	c.writeControl(controlMessage{
		Type:  "error",
		Error: err.Error(),
	})
}
