// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/corelife/pkg/logging"
)

// MetricsServer serves /metrics and /healthz while a run executes.
//
// Thread Safety: Start and Shutdown must not race each other. Addr is
// safe once Start has returned.
type MetricsServer struct {
	port   int
	logger *logging.Logger
	srv    *http.Server
	ln     net.Listener
}

// NewMetricsServer creates a server for the given port. Port 0 picks a free
// port on Start.
func NewMetricsServer(port int, logger *logging.Logger) *MetricsServer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &MetricsServer{port: port, logger: logger}
}

// Router builds the gin engine behind the metrics server.
func Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("corelife-metrics"))

	router.GET("/metrics", gin.WrapH(MetricsHandler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// Start binds the port and serves in the background.
//
// Outputs:
//
//	error - Non-nil if the port cannot be bound.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on metrics port %d: %w", s.port, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	s.logger.Info("metrics server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *MetricsServer) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
