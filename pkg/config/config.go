// Package config loads runtime settings from an env file, an optional YAML
// file and the process environment, in that order of increasing precedence.
package config

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/builder"
	"github.com/athapong/ndex-mcp/pkg/graph/storage"
	"github.com/athapong/ndex-mcp/pkg/network"
)

const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreNeo4j  = "neo4j"
)

type Config struct {
	Store string `yaml:"store" validate:"oneof=memory badger neo4j"`

	BadgerPath     string `yaml:"badger_path" validate:"required_if=Store badger BadgerInMemory false"`
	BadgerInMemory bool   `yaml:"badger_in_memory"`

	Neo4jURI      string `yaml:"neo4j_uri" validate:"required_if=Store neo4j"`
	Neo4jUsername string `yaml:"neo4j_username"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	LogLevel       string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	StrictImport   bool   `yaml:"strict_import"`
	Equivalence    string `yaml:"equivalence"`
	TraversalDepth int    `yaml:"traversal_depth" validate:"gte=0,lte=32"`
	MetricsAddr    string `yaml:"metrics_addr"`

	// Actor is the account tool calls act as
	Actor string `yaml:"actor"`

	// AllowAll skips the owner check for single-user deployments
	AllowAll bool `yaml:"allow_all"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Store:       StoreMemory,
		BadgerPath:  "data/ndex",
		LogLevel:    "info",
		Equivalence: builder.PolicyJDexID,
		Actor:       "local",
	}
}

// LoadEnvFile loads variables from an env file into the process environment.
// Variables already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	return godotenv.Load(path)
}

// Load builds the configuration: defaults, then the YAML file named by
// NDEX_CONFIG, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("NDEX_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return graph.Invalidf("parse config file %s: %v", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return graph.Invalidf("%s: %v", key, err)
		}
		*dst = b
		return nil
	}

	str("NDEX_STORE", &c.Store)
	str("NDEX_BADGER_PATH", &c.BadgerPath)
	str("NEO4J_URI", &c.Neo4jURI)
	str("NEO4J_USERNAME", &c.Neo4jUsername)
	str("NEO4J_PASSWORD", &c.Neo4jPassword)
	str("NEO4J_DATABASE", &c.Neo4jDatabase)
	str("LOG_LEVEL", &c.LogLevel)
	str("NDEX_EQUIVALENCE", &c.Equivalence)
	str("NDEX_METRICS_ADDR", &c.MetricsAddr)
	str("NDEX_ACTOR", &c.Actor)

	for key, dst := range map[string]*bool{
		"NDEX_BADGER_IN_MEMORY": &c.BadgerInMemory,
		"NDEX_STRICT_IMPORT":    &c.StrictImport,
		"NDEX_ALLOW_ALL":        &c.AllowAll,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("NDEX_TRAVERSAL_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return graph.Invalidf("NDEX_TRAVERSAL_DEPTH: %v", err)
		}
		c.TraversalDepth = n
	}
	c.Store = strings.ToLower(c.Store)
	c.LogLevel = strings.ToLower(c.LogLevel)
	return nil
}

var validate = validator.New()

// Validate checks field constraints and the equivalence method name
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return graph.Invalidf("config: %v", err)
	}
	if _, err := builder.PolicyFor(c.Equivalence); err != nil {
		return err
	}
	return nil
}

// Logger returns a JSON logger at the configured level
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// OpenStore opens the configured backend. The caller closes it.
func (c *Config) OpenStore(ctx context.Context, logger *logrus.Logger) (graph.Store, error) {
	switch c.Store {
	case StoreMemory:
		store := storage.NewMemoryStore()
		store.SetLogger(logger)
		return store, nil
	case StoreBadger:
		bc := storage.DefaultBadgerConfig()
		if c.BadgerInMemory {
			bc = storage.InMemoryBadgerConfig()
		} else {
			bc.Path = c.BadgerPath
		}
		bc.Logger = logger
		return storage.OpenBadgerStore(bc)
	case StoreNeo4j:
		store, err := storage.NewNeo4jStorage(c.Neo4jURI, c.Neo4jUsername, c.Neo4jPassword)
		if err != nil {
			return nil, err
		}
		store.SetLogger(logger)
		if c.Neo4jDatabase != "" {
			store.SetDatabase(c.Neo4jDatabase)
		}
		if err := store.Connect(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	}
	return nil, graph.Invalidf("unknown store %q", c.Store)
}

// ServiceOptions maps the settings onto network service options
func (c *Config) ServiceOptions(logger *logrus.Logger) network.Options {
	opts := network.Options{
		Logger:         logger,
		Strict:         c.StrictImport,
		TraversalDepth: c.TraversalDepth,
		DefaultPolicy:  c.Equivalence,
	}
	if c.AllowAll {
		opts.Authorizer = network.AllowAll{}
	}
	return opts
}
