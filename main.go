package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/config"
	"github.com/athapong/ndex-mcp/pkg/graph/metrics"
	"github.com/athapong/ndex-mcp/prompts"
	"github.com/athapong/ndex-mcp/services"
	"github.com/athapong/ndex-mcp/tools"
)

func main() {
	envFile := flag.String("env", ".env", "Path to environment file")
	enableSSE := flag.Bool("sse", false, "Enable SSE server")
	sseAddr := flag.String("sse-addr", ":8080", "Address for SSE server to listen on")
	sseBasePath := flag.String("sse-base-path", "/mcp", "Base path for SSE endpoints")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Error loading env file %s: %v\n", *envFile, err)
	}

	rt, err := services.DefaultRuntime()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer rt.Close()
	logger := rt.Logger

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if rt.Config.MetricsAddr != "" {
		metricsServer := metrics.Serve(ctx, rt.Config.MetricsAddr, 15*time.Second, logger)
		defer metricsServer.Close()
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"ndex-mcp",
		"1.0.0",
		server.WithLogging(),
		server.WithPromptCapabilities(true),
	)

	tools.RegisterToolManagerTool(mcpServer)

	networkTools := tools.NewNetworkTools(rt.Service, rt.Config.Actor)
	if tools.IsEnabled("network") {
		tools.RegisterNetworkTools(mcpServer, networkTools)
	}
	if tools.IsEnabled("query") {
		tools.RegisterQueryTools(mcpServer, networkTools)
		prompts.RegisterNetworkPrompts(mcpServer)
	}

	// Check if SSE server should be enabled
	if *enableSSE || os.Getenv("ENABLE_SSE") == "true" {
		sseServer := server.NewSSEServer(
			mcpServer,
			server.WithBasePath(*sseBasePath),
			server.WithKeepAlive(true),
		)

		go func() {
			logger.WithFields(logrus.Fields{"addr": *sseAddr, "base_path": *sseBasePath}).Info("starting SSE server")
			if err := sseServer.Start(*sseAddr); err != nil {
				logger.WithError(err).Fatal("failed to start SSE server")
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("SSE server shutdown")
		}
		logger.Info("SSE server shutdown complete")
	} else {
		if err := server.ServeStdio(mcpServer); err != nil {
			panic(fmt.Sprintf("Server error: %v", err))
		}
	}
}
