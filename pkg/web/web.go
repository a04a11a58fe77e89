package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ferama/ptyctl/pkg/logger"
	"github.com/ferama/ptyctl/pkg/session"
	rootapi "github.com/ferama/ptyctl/pkg/web/api/root"
	sessionsapi "github.com/ferama/ptyctl/pkg/web/api/sessions"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var log = logger.NewLogger("[WEB ] ", logger.Green)

// Server is the http control plane over a session manager
type Server struct {
	httpServer *http.Server
	conf       *WebConf

	listener   net.Listener
	listenerMU sync.RWMutex
}

// NewServer builds the router. isDev keeps gin in debug mode
func NewServer(
	isDev bool,
	conf *WebConf,
	manager *session.Manager,
	launch *session.LaunchConf,
	info *rootapi.Info) *Server {

	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"*"},
		AllowHeaders:     []string{"Content-Type, Origin"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	rootapi.Routes(info, manager, r.Group("/api"))
	sessionsapi.Routes(manager, launch, r.Group("/api/sessions"))

	return &Server{
		httpServer: &http.Server{Handler: r},
		conf:       conf,
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.conf.ListenAddress)
	if err != nil {
		return err
	}
	s.listenerMU.Lock()
	s.listener = listener
	s.listenerMU.Unlock()

	log.Printf("listening on %s", listener.Addr())
	err = s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down. Attached websockets are hijacked
// connections and end when their sessions are shut down
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetListenerAddr returns the server listener network address
func (s *Server) GetListenerAddr() net.Addr {
	s.listenerMU.RLock()
	defer s.listenerMU.RUnlock()

	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}
