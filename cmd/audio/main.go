package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/app"
	"github.com/snappy-loop/gallery/internal/config"
	"github.com/snappy-loop/gallery/internal/grpcserver"
	"github.com/snappy-loop/gallery/internal/handlers"
	"github.com/snappy-loop/gallery/internal/mcpserver"
	"github.com/snappy-loop/gallery/internal/metrics"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg := config.Load()
	app.SetupLogging(cfg.LogLevel)

	log.Info().Msg("Starting Gallery Audio (gRPC + MCP)")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize gallery")
	}
	a.Run(ctx)

	// gRPC server with auth
	grpcSrv, healthSrv := grpcserver.NewServer(a.Auth, a.Gallery)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("Failed to listen for gRPC")
	}
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcSrv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			log.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// MCP HTTP server with auth. Narration references created here are served
	// from this process under /media.
	deps := handlers.Deps{Gallery: a.Gallery, Sessions: a.Sessions, References: a.References}
	if a.Media != nil {
		deps.Media = a.Media
	}
	if a.DB != nil {
		deps.DB = a.DB
	}
	h := handlers.NewHandler(deps)

	r := mux.NewRouter()
	r.Use(handlers.MetricsMiddleware)
	r.Handle("/mcp", a.Auth.Middleware(mcpserver.NewServer(a.Gallery).Handler()))
	r.HandleFunc("/media/{id}", h.Media).Methods("GET", "HEAD")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	mcpHTTP := &http.Server{
		Addr:         cfg.MCPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.MCPAddr).Msg("MCP server listening")
		if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("MCP HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down audio...")
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	cancel()

	// gRPC: bounded graceful stop so it cannot block forever and starve MCP shutdown
	grpcDone := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(grpcDone)
	}()
	select {
	case <-grpcDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("gRPC graceful stop timed out; stopping")
		grpcSrv.Stop()
		<-grpcDone
	}

	// MCP: use a fresh context so it always gets a full timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("MCP HTTP shutdown error")
	}
	a.Close(shutdownCtx)

	log.Info().Msg("Audio exited")
}
