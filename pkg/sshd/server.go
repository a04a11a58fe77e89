package sshd

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/ferama/ptyctl/pkg/logger"
	"github.com/ferama/ptyctl/pkg/session"
	"github.com/ferama/ptyctl/pkg/utils"

	"golang.org/x/crypto/ssh"
)

var log = logger.NewLogger("[SSHD] ", logger.Blue)

// SshServer serves ssh session channels on top of the session manager
type SshServer struct {
	hostPrivateKey     ssh.Signer
	authorizedKeysFile string
	password           string
	listenAddress      string

	disableShell         bool
	disableSftpSubsystem bool

	manager *session.Manager
	launch  *session.LaunchConf

	listener   net.Listener
	listenerMU sync.RWMutex

	conns   map[*ssh.ServerConn]struct{}
	connsMu sync.Mutex
}

// NewSshServer builds an SshServer object. The host key is generated on
// first run. At least one of password and authorized keys auth must be
// usable.
func NewSshServer(conf *SshDConf, manager *session.Manager, launch *session.LaunchConf) (*SshServer, error) {
	if conf.ListenAddress == "" {
		return nil, errors.New("listen address can't be empty")
	}
	if launch == nil {
		launch = session.DefaultLaunchConf()
	}

	ss := &SshServer{
		authorizedKeysFile:   conf.AuthorizedKeysFile,
		password:             conf.AuthorizedPassword,
		listenAddress:        conf.ListenAddress,
		disableShell:         conf.DisableShell,
		disableSftpSubsystem: conf.DisableSftpSubsystem,
		manager:              manager,
		launch:               launch,
		conns:                make(map[*ssh.ServerConn]struct{}),
	}

	// run here, to make sure I have a valid authorized keys
	// file on start
	if _, err := ss.loadAuthorizedKeys(); err != nil && ss.password == "" {
		return nil, fmt.Errorf(`failed to load authorized_keys: %w

	Please create the authorized_keys file and fill in with
	your authorized users public keys or set a password`, err)
	}

	hostPrivateKey, generated, err := utils.LoadHostKey(conf.Key, utils.DefaultKeyBits)
	if err != nil {
		return nil, fmt.Errorf("cannot load server identity: %w", err)
	}
	if generated {
		log.Printf("server identity generated at %s", conf.Key)
	}
	ss.hostPrivateKey = hostPrivateKey

	return ss, nil
}

func (s *SshServer) loadAuthorizedKeys() (map[string]bool, error) {
	if s.authorizedKeysFile == "" {
		return nil, errors.New("no authorized keys file configured")
	}
	return utils.LoadAuthorizedKeys(s.authorizedKeysFile)
}

func (s *SshServer) passwordAuth(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	if subtle.ConstantTimeCompare([]byte(s.password), password) == 1 {
		return &ssh.Permissions{}, nil
	}
	return nil, fmt.Errorf("wrong password for %q", conn.User())
}

func (s *SshServer) keyAuth(conn ssh.ConnMetadata, pubKey ssh.PublicKey) (*ssh.Permissions, error) {
	log.Println(conn.RemoteAddr(), "authenticate with", pubKey.Type())

	// reloaded on every attempt so key changes apply without a restart
	authorizedKeysMap, err := s.loadAuthorizedKeys()
	if err != nil {
		return nil, err
	}

	if authorizedKeysMap[string(pubKey.Marshal())] {
		return &ssh.Permissions{
			// Record the public key used for authentication.
			Extensions: map[string]string{
				"pubkey-fp": ssh.FingerprintSHA256(pubKey),
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown public key for %q", conn.User())
}

func (s *SshServer) serverConfig() *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		AuthLogCallback: func(conn ssh.ConnMetadata, method string, err error) {
			if err != nil && method != "none" {
				log.Printf("auth error: %s", err)
			}
		},
	}
	config.AddHostKey(s.hostPrivateKey)

	if s.password != "" {
		config.PasswordCallback = s.passwordAuth
		config.MaxAuthTries = 3
	}
	if s.authorizedKeysFile != "" {
		config.PublicKeyCallback = s.keyAuth
	}
	return config
}

// Start the SshServer actually listening for incoming connections
// and handling requests and ssh channels. It returns when Stop is called
func (s *SshServer) Start() error {
	config := s.serverConfig()

	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return err
	}
	s.listenerMU.Lock()
	s.listener = listener
	s.listenerMU.Unlock()

	log.Printf("listening on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		log.Printf("connection from %s", conn.RemoteAddr())
		go s.serveConn(conn, config)
	}
}

// Stop closes the listener and every client connection. Sessions started
// by clients get a hangup through their connection.
func (s *SshServer) Stop() {
	s.listenerMU.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.listenerMU.Unlock()

	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// GetListenerAddr returns the server listener network address
func (s *SshServer) GetListenerAddr() net.Addr {
	s.listenerMU.RLock()
	defer s.listenerMU.RUnlock()

	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

func (s *SshServer) serveConn(conn net.Conn, config *ssh.ServerConfig) {
	// From a standard TCP connection to an encrypted SSH connection
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		log.Printf("client connection error %s", err)
		return
	}
	if fp, ok := sshConn.Permissions.Extensions["pubkey-fp"]; ok {
		log.Printf("%s logged in with key %s", sshConn.User(), fp)
	} else {
		log.Printf("%s logged in", sshConn.User())
	}

	s.connsMu.Lock()
	s.conns[sshConn] = struct{}{}
	s.connsMu.Unlock()

	// cancelled when the client goes away
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sshConn.Wait()
		cancel()
		s.connsMu.Lock()
		delete(s.conns, sshConn)
		s.connsMu.Unlock()
		log.Printf("%s disconnected", sshConn.RemoteAddr())
	}()

	go handleRequests(reqs)
	newChannelHandler(ctx, s, sshConn, chans).handleChannels()
}

func handleRequests(reqs <-chan *ssh.Request) {
	for req := range reqs {
		if strings.Contains(req.Type, "keepalive") {
			req.Reply(true, nil)
			continue
		}
		log.Printf("declining out-of-band request %s", req.Type)
		if req.WantReply {
			req.Reply(false, nil)
		}
	}
}
