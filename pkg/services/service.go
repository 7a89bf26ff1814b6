package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type (
	// Service is a long-running component with an explicit lifecycle.
	Service interface {
		Init() error
		Run(ctx context.Context)
		Stop()
	}
	Services interface {
		AddService(service ...Service)
		Run(ctx context.Context) error
	}
	Manager struct {
		log      Logger
		services []Service
	}
)

func NewManager(log Logger) Services {
	return &Manager{log: log}
}

func (s *Manager) AddService(service ...Service) {
	s.services = append(s.services, service...)
}

// Run initializes every service in order, starts them, and blocks until a
// signal arrives or the context ends. A failed Init stops the services that
// already started.
func (s *Manager) Run(ctx context.Context) error {
	s.log.Info("starting %d services", len(s.services))
	for count, service := range s.services {
		if err := service.Init(); err != nil {
			for i := count - 1; i >= 0; i-- {
				s.services[i].Stop()
			}
			return err
		}
		go service.Run(ctx)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		s.stop()
	case <-ctx.Done():
		s.stop()
	}

	return nil
}

func (s *Manager) stop() {
	s.log.Info("stopping services")
	for i := len(s.services) - 1; i >= 0; i-- {
		s.services[i].Stop()
	}
}
