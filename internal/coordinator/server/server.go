// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package server assembles the coordinator service: log store, event
// publisher, metrics, the coordinator core and the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/innovationmech/lracoord/internal/coordinator/config"
	"github.com/innovationmech/lracoord/internal/coordinator/handler"
	"github.com/innovationmech/lracoord/pkg/logger"
	"github.com/innovationmech/lracoord/pkg/lra"
	"github.com/innovationmech/lracoord/pkg/lra/messaging"
	"github.com/innovationmech/lracoord/pkg/lra/monitoring"
	"github.com/innovationmech/lracoord/pkg/lra/storage"
)

// Server is the assembled coordinator service.
type Server struct {
	cfg         *config.CoordinatorConfig
	coordinator *lra.Coordinator
	scanner     *lra.RecoveryScanner
	httpServer  *http.Server
}

// NewServer builds the service from the loaded configuration: the selected
// log store backend, the NATS publisher when events are enabled, Prometheus
// metrics and the coordinator core.
func NewServer() (*Server, error) {
	cfg := config.GetConfig()

	store, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build log store: %w", err)
	}

	var publisher lra.EventPublisher
	if cfg.Events.Enabled {
		publisher, err = messaging.NewNATSEventPublisher(&messaging.NATSConfig{
			URL:           cfg.Events.URL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build event publisher: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector()
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	exporter := monitoring.NewMetricsExporter(registry)

	coordinator, err := lra.NewCoordinator(&lra.Config{
		Store:            store,
		BaseURI:          cfg.Server.ExternalURL,
		EventPublisher:   publisher,
		MetricsCollector: collector,
		CallTimeout:      cfg.Callbacks.Timeout,
	})
	if err != nil {
		return nil, err
	}

	scanner := lra.NewRecoveryScanner(coordinator, cfg.Recovery.Interval)
	h := handler.NewCoordinatorHandler(coordinator, scanner)
	router := RegisterRoutes(h, exporter)

	return &Server{
		cfg:         cfg,
		coordinator: coordinator,
		scanner:     scanner,
		httpServer: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
	}, nil
}

func buildStore(cfg *config.CoordinatorConfig) (lra.LogStore, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return storage.NewMemoryLogStore(), nil
	case "redis":
		return storage.NewRedisLogStore(&storage.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		})
	case "mysql":
		return storage.NewMySQLLogStore(cfg.Store.MySQL.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// Start runs one recovery pass to pick up any records left by a previous
// incarnation, starts the periodic scanner and serves the HTTP API. It
// blocks until the listener fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	if err := s.scanner.Scan(ctx); err != nil {
		logger.Logger.Error("Initial recovery scan failed", zap.Error(err))
	}
	s.scanner.Start()

	logger.Logger.Info("LRA coordinator listening",
		zap.String("addr", s.httpServer.Addr),
		zap.String("base_uri", s.coordinator.BaseURI()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains the HTTP server, stops the scanner and shuts the coordinator
// down. The log is left intact for the next incarnation to recover.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	s.scanner.Stop()
	return s.coordinator.Shutdown(ctx)
}
