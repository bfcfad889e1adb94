package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/athapong/ndex-mcp/pkg/config"
	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/network"
)

// Runtime holds the process-wide store and network service
type Runtime struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Store   graph.Store
	Service *network.Service
}

// NewRuntime opens the configured store and builds the service on top of it
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	logger := cfg.Logger()
	store, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"store":       cfg.Store,
		"equivalence": cfg.Equivalence,
		"strict":      cfg.StrictImport,
	}).Info("network store opened")

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Service: network.NewService(store, cfg.ServiceOptions(logger)),
	}, nil
}

func (r *Runtime) Close() error {
	return r.Store.Close()
}

// DefaultRuntime is built once from the environment
var DefaultRuntime = sync.OnceValues(func() (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewRuntime(context.Background(), cfg)
})
