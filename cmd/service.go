package cmd

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"time"

	"github.com/ferama/ptyctl/pkg/conf"
	"github.com/ferama/ptyctl/pkg/logger"
	"github.com/ferama/ptyctl/pkg/session"
	"github.com/ferama/ptyctl/pkg/sshd"
	"github.com/ferama/ptyctl/pkg/web"
	rootapi "github.com/ferama/ptyctl/pkg/web/api/root"
	"github.com/judwhite/go-svc"
)

var log = logger.NewLogger("[MAIN] ", logger.Magenta)

const (
	shutdownTimeout = 10 * time.Second
	shutdownWorkers = 4
)

// service implements svc.Service around the configured servers. Every
// server shares one session manager
type service struct {
	conf *conf.Config

	manager   *session.Manager
	webServer *web.Server
	sshServer *sshd.SshServer

	wg sync.WaitGroup
}

func newService(c *conf.Config) *service {
	return &service{conf: c}
}

// Init builds the servers. Errors here stop the process before anything
// listens
func (s *service) Init(env svc.Environment) error {
	if s.conf.Web == nil && s.conf.SshD == nil {
		return errors.New("nothing to run")
	}
	s.manager = session.NewManager(shutdownWorkers)

	if s.conf.Web != nil {
		info := &rootapi.Info{
			Version:   Version,
			StartedAt: time.Now(),
			Shell:     s.conf.Launch.Shell,
		}
		s.webServer = web.NewServer(Version == "development", s.conf.Web, s.manager, s.conf.Launch, info)
	}
	if s.conf.SshD != nil {
		sshServer, err := sshd.NewSshServer(s.conf.SshD, s.manager, s.conf.Launch)
		if err != nil {
			return err
		}
		s.sshServer = sshServer
	}
	return nil
}

// Start must not block
func (s *service) Start() error {
	if s.webServer != nil {
		s.run("web", s.webServer.Start)
	}
	if s.sshServer != nil {
		s.run("sshd", s.sshServer.Start)
	}
	return nil
}

func (s *service) run(name string, start func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := start(); err != nil {
			log.Printf("%s server failed: %s", name, err)
			// a server that can't listen takes the whole process down
			syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}
	}()
}

// Stop stops accepting clients, then hangs up every session still alive.
// Pending http requests such as wait complete as their sessions exit
func (s *service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	webStopped := make(chan struct{})
	go func() {
		defer close(webStopped)
		if s.webServer == nil {
			return
		}
		if err := s.webServer.Stop(ctx); err != nil {
			log.Printf("web server stop: %s", err)
		}
	}()
	if s.sshServer != nil {
		s.sshServer.Stop()
	}

	log.Printf("stopping %d sessions", s.manager.Len())
	s.manager.Shutdown(ctx, syscall.SIGHUP)

	<-webStopped
	s.wg.Wait()
	return nil
}

func runService(c *conf.Config) error {
	return svc.Run(newService(c), syscall.SIGINT, syscall.SIGTERM)
}
