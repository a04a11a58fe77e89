package sshd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/ferama/ptyctl/pkg/rio"
	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/ferama/ptyctl/pkg/session"
	"github.com/ferama/ptyctl/pkg/utils"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sys/unix"
)

const (
	// how long output is still drained after the process exited
	drainTimeout = 250 * time.Millisecond
	// how long a hung up process has before SIGKILL
	hangupGrace = 5 * time.Second
)

type channelHandler struct {
	ctx     context.Context
	server  *SshServer
	sshConn *ssh.ServerConn

	chans <-chan ssh.NewChannel
}

func newChannelHandler(
	ctx context.Context,
	server *SshServer,
	sshConn *ssh.ServerConn,
	chans <-chan ssh.NewChannel,
) *channelHandler {

	return &channelHandler{
		ctx:     ctx,
		server:  server,
		sshConn: sshConn,
		chans:   chans,
	}
}

func (h *channelHandler) handleChannels() {
	// Service the incoming Channel channel.
	for newChannel := range h.chans {
		t := newChannel.ChannelType()
		switch t {
		case "session":
			// shell, exec and sftp subsystem
			go h.serveChannelSession(newChannel)
		default:
			newChannel.Reject(ssh.UnknownChannelType, fmt.Sprintf("unknown channel type: %s", t))
		}
	}
}

// sessionChannel is the state of one ssh session channel. Requests are
// served sequentially, so only the request loop touches it.
type sessionChannel struct {
	*channelHandler
	channel ssh.Channel

	env  map[string]string
	term string
	size *rpty.WindowSize
	sess *session.Session
	// subsystem or process started
	busy bool
}

func (h *channelHandler) serveChannelSession(c ssh.NewChannel) {
	channel, requests, err := c.Accept()
	if err != nil {
		log.Printf("could not accept channel (%s)", err)
		return
	}

	sc := &sessionChannel{
		channelHandler: h,
		channel:        channel,
		env:            map[string]string{},
	}

	for req := range requests {
		ok := false
		switch req.Type {
		case "pty-req":
			ok = sc.handlePtyRequest(req)
		case "window-change":
			ok = sc.handleWindowChange(req)
		case "env":
			ok = sc.handleEnv(req)
		case "shell", "exec":
			ok = sc.handleShellExec(req)
		case "signal":
			ok = sc.handleSignal(req)
		case "subsystem":
			ok = sc.handleSubsystem(req)
		}

		if !ok {
			log.Printf("declining %s request... ", req.Type)
		}
		if req.WantReply {
			req.Reply(ok, nil)
		}
	}
}

func (sc *sessionChannel) handlePtyRequest(req *ssh.Request) bool {
	if sc.server.disableShell || sc.busy {
		return false
	}
	var payload = struct {
		Term          string
		Columns, Rows uint32
		Width, Height uint32
		Modes         string
	}{}
	if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
		log.Printf("invalid pty-req payload: %s", err)
		return false
	}
	size, err := rpty.NewWindowSize(int(payload.Rows), int(payload.Columns))
	if err != nil {
		log.Printf("pty-req: %s", err)
		return false
	}
	sc.term = payload.Term
	sc.size = &size
	log.Printf("pty-req '%s' %s", payload.Term, size)
	return true
}

func (sc *sessionChannel) handleWindowChange(req *ssh.Request) bool {
	var payload = struct {
		Columns, Rows uint32
		Width, Height uint32
	}{}
	if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
		return false
	}
	size, err := rpty.NewWindowSize(int(payload.Rows), int(payload.Columns))
	if err != nil {
		log.Printf("window-change: %s", err)
		return false
	}
	if sc.sess == nil {
		// not started yet, applied at launch
		sc.size = &size
		return true
	}
	if err := sc.sess.Resize(size); err != nil {
		log.Printf("window-change: %s", err)
		return false
	}
	return true
}

func (sc *sessionChannel) handleEnv(req *ssh.Request) bool {
	var payload = struct{ Name, Value string }{}
	if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
		log.Printf("invalid env payload: %s", req.Payload)
		return false
	}
	log.Printf("setenv: %s=%s", payload.Name, payload.Value)
	sc.env[payload.Name] = payload.Value
	return true
}

func (sc *sessionChannel) handleSignal(req *ssh.Request) bool {
	var payload = struct{ Signal string }{}
	if err := ssh.Unmarshal(req.Payload, &payload); err != nil || sc.sess == nil {
		return false
	}
	sig, err := rpty.ParseSignal(payload.Signal)
	if err != nil {
		log.Printf("signal: %s", err)
		return false
	}
	if err := sc.sess.Signal(sig); err != nil {
		log.Printf("signal: %s", err)
		return false
	}
	return true
}

func (sc *sessionChannel) handleSubsystem(req *ssh.Request) bool {
	var payload = struct{ Name string }{}
	if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
		log.Printf("invalid payload: %s", req.Payload)
		return false
	}
	if payload.Name != "sftp" || sc.server.disableSftpSubsystem || sc.busy {
		return false
	}
	sc.busy = true
	go serveSftp(sc.channel)
	return true
}

func serveSftp(channel ssh.Channel) {
	defer channel.Close()

	server, err := sftp.NewServer(channel)
	if err != nil {
		log.Printf("sftp: %s", err)
		return
	}
	if err := server.Serve(); err != nil && err != io.EOF {
		log.Printf("sftp server completed with error: %s", err)
	}
	server.Close()
	log.Print("sftp client exited session.")
}

func (sc *sessionChannel) launchRequest(req *ssh.Request) (*rpty.LaunchRequest, error) {
	var argv []string
	if req.Type == "exec" {
		var payload = struct{ Value string }{}
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			return nil, err
		}
		shell := sc.server.launch.Shell
		if shell == "" {
			shell = "/bin/sh"
		}
		argv = []string{shell, "-c", payload.Value}
	}

	usr := utils.CurrentUser()
	env := map[string]string{
		"HOME":    usr.HomeDir,
		"USER":    usr.Username,
		"LOGNAME": usr.Username,
	}
	if sc.term != "" {
		env["TERM"] = sc.term
	}
	for k, v := range sc.env {
		env[k] = v
	}

	lr, err := sc.server.launch.Request(argv, env)
	if err != nil {
		return nil, err
	}
	if sc.size != nil {
		lr.Size = *sc.size
	}
	if sc.term == "" {
		// no pty requested: input comes from a pipe, output is not
		// translated or echoed
		t := rpty.DefaultTermios()
		t.Oflag &^= unix.ONLCR
		t.Lflag &^= unix.ECHO | unix.ECHOE | unix.ECHOK
		lr.Termios = t
	}
	return lr, nil
}

func (sc *sessionChannel) handleShellExec(req *ssh.Request) bool {
	if sc.server.disableShell || sc.busy {
		return false
	}
	lr, err := sc.launchRequest(req)
	if err != nil {
		log.Printf("%s: %s", req.Type, err)
		return false
	}

	var stdin *os.File
	if sc.term == "" {
		r, w, err := os.Pipe()
		if err != nil {
			log.Printf("%s: %s", req.Type, err)
			return false
		}
		lr.Stdin = r
		stdin = w
	}

	meta := session.Meta{
		Args:   lr.Argv[1:],
		Origin: fmt.Sprintf("ssh %s@%s", sc.sshConn.User(), sc.sshConn.RemoteAddr()),
	}
	sess, err := sc.server.manager.Start(lr, meta)
	if lr.Stdin != nil {
		// the child holds its own copy
		lr.Stdin.Close()
	}
	if err != nil {
		if stdin != nil {
			stdin.Close()
		}
		if !errors.Is(err, rpty.ErrExecFailed) {
			log.Printf("%s: %s", req.Type, err)
			return false
		}
		// the request is fine, the command is not: report it like a shell
		sc.busy = true
		fmt.Fprintf(sc.channel.Stderr(), "%s\r\n", err)
		go func() {
			sendExit(sc.channel, rpty.ExecFailedStatus)
			sc.channel.Close()
		}()
		return true
	}
	stream, err := sess.Stream()
	if err != nil {
		log.Printf("%s: %s", req.Type, err)
		if stdin != nil {
			stdin.Close()
		}
		sess.Signal(syscall.SIGKILL)
		sc.server.manager.Remove(sess.ID)
		return false
	}
	sc.busy = true
	sc.sess = sess
	sc.serve(sess, stream, stdin)
	return true
}

// serve pipes the channel and the process until the process side ends.
// Client input goes to stdin when set, to the terminal otherwise
func (sc *sessionChannel) serve(sess *session.Session, stream *os.File, stdin *os.File) {
	var terminal io.ReadWriteCloser = stream
	onEOF := func() {
		// the client has no more input: deliver an end of file
		stream.Write([]byte{rpty.DefaultTermios().Cc[unix.VEOF]})
	}
	if stdin != nil {
		terminal = &pipeInput{File: stream, stdin: stdin}
		onEOF = func() {
			stdin.Close()
		}
	}
	cs := newChannelStream(sc.channel, onEOF)

	go func() {
		select {
		case <-sess.Done():
			// unblock the output copy even if some grandchild holds the
			// terminal open
			stream.SetReadDeadline(time.Now().Add(drainTimeout))
		case <-sc.ctx.Done():
			sess.Signal(syscall.SIGHUP)
		}
	}()

	rio.CopyConnWithOnClose(cs, terminal, false, func() {
		status := sc.waitExit(sess)
		sendExit(sc.channel, status)
		if err := sc.server.manager.Remove(sess.ID); err != nil {
			log.Printf("session %d: %s", sess.ID, err)
		}
		log.Printf("session %d closed: %s", sess.ID, status)
	})
}

func (sc *sessionChannel) waitExit(sess *session.Session) rpty.ExitStatus {
	if !sess.Exited() {
		sess.Signal(syscall.SIGHUP)
	}
	ctx, cancel := context.WithTimeout(context.Background(), hangupGrace)
	defer cancel()
	status, err := sess.Wait(ctx)
	if err == nil {
		return status
	}
	sess.Signal(syscall.SIGKILL)
	status, _ = sess.Wait(context.Background())
	return status
}

func sendExit(channel ssh.Channel, status rpty.ExitStatus) {
	switch {
	case status.Signaled():
		sig := struct {
			Signal     string
			CoreDumped bool
			Errmsg     string
			Lang       string
		}{
			Signal: rpty.SignalName(status.Signal()),
		}
		if _, err := channel.SendRequest("exit-signal", false, ssh.Marshal(&sig)); err != nil {
			log.Printf("unable to send signal: %v", err)
		}
	case status.Exited():
		msg := struct {
			Status uint32
		}{
			Status: uint32(status.Code()),
		}
		if _, err := channel.SendRequest("exit-status", false, ssh.Marshal(&msg)); err != nil {
			log.Printf("failed to send exit-status: %s", err)
		}
	}
}

// channelStream keeps reading from the channel blocked after the client
// sent EOF, so only the terminal side can end the copy.
type channelStream struct {
	ssh.Channel

	onEOF     func()
	eofOnce   sync.Once
	closed    chan struct{}
	closeOnce sync.Once
}

func newChannelStream(channel ssh.Channel, onEOF func()) *channelStream {
	return &channelStream{
		Channel: channel,
		onEOF:   onEOF,
		closed:  make(chan struct{}),
	}
}

func (c *channelStream) Read(p []byte) (int, error) {
	n, err := c.Channel.Read(p)
	if err == io.EOF {
		if n > 0 {
			return n, nil
		}
		c.eofOnce.Do(c.onEOF)
		<-c.closed
	}
	return n, err
}

func (c *channelStream) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.Channel.Close()
}

// pipeInput reads the process output from the terminal and writes the
// client input to the stdin pipe of the process
type pipeInput struct {
	*os.File
	stdin *os.File
}

func (p *pipeInput) Write(b []byte) (int, error) {
	n, err := p.stdin.Write(b)
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
		// the process stopped reading its input, drop it
		return len(b), nil
	}
	return n, err
}

func (p *pipeInput) Close() error {
	p.stdin.Close()
	return p.File.Close()
}
