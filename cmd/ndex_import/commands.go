package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/athapong/ndex-mcp/pkg/config"
	"github.com/athapong/ndex-mcp/pkg/graph"
	"github.com/athapong/ndex-mcp/pkg/graph/storage"
	"github.com/athapong/ndex-mcp/pkg/graph/visualizer"
	"github.com/athapong/ndex-mcp/pkg/network"
)

type options struct {
	envFile   string
	logLevel  string
	store     string
	actor     string
	output     string
	visualize  string
	asDocument bool
}

// session is what every subcommand works against
type session struct {
	logger *logrus.Logger
	store  graph.Store
	svc    *network.Service
	actor  string
}

func (o *options) open(ctx context.Context) (*session, error) {
	if err := config.LoadEnvFile(o.envFile); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	// Without explicit settings the CLI persists to disk.
	if o.store == "" && os.Getenv("NDEX_STORE") == "" && os.Getenv("NDEX_CONFIG") == "" {
		o.store = config.StoreBadger
	}
	if o.store != "" {
		os.Setenv("NDEX_STORE", o.store)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return nil, graph.Invalidf("invalid log level: %v", err)
	}
	logger.SetLevel(level)

	store, err := cfg.OpenStore(ctx, logger)
	if err != nil {
		return nil, err
	}
	actor := cfg.Actor
	if o.actor != "" {
		actor = o.actor
	}
	return &session{
		logger: logger,
		store:  store,
		svc:    network.NewService(store, cfg.ServiceOptions(logger)),
		actor:  actor,
	}, nil
}

// write stores the network as JSON at --output, or prints it, and renders it
// when --visualize names a file. With --as-document the JSON is an import
// document that can be imported again.
func (o *options) write(ctx context.Context, cmd *cobra.Command, sess *session, n *graph.Network) error {
	var payload interface{} = n
	if o.asDocument {
		doc, err := graph.DocumentFromNetwork(n)
		if err != nil {
			return err
		}
		payload = doc
	}
	if o.output != "" {
		fs := storage.NewJSONFileStore(o.output)
		var err error
		if doc, ok := payload.(*graph.ImportDocument); ok {
			err = fs.StoreDocument(ctx, doc)
		} else {
			err = fs.StoreNetwork(ctx, n)
		}
		if err != nil {
			return err
		}
		sess.logger.WithField("path", o.output).Info("network saved")
	} else {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	}
	if o.visualize != "" {
		if err := visualizer.NewD3Visualizer(o.visualize).Visualize(n); err != nil {
			return err
		}
		sess.logger.WithField("path", o.visualize).Info("visualization saved")
	}
	return nil
}

// withSession opens the store around fn and closes it afterwards
func (o *options) withSession(fn func(ctx context.Context, sess *session, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		sess, err := o.open(ctx)
		if err != nil {
			return err
		}
		defer sess.store.Close()
		return fn(ctx, sess, args)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	rootCmd := &cobra.Command{
		Use:   "ndex_import",
		Short: "Import, merge and query biological networks",
		Long: `ndex_import loads network documents into the network store and
extracts self-contained subnetworks around edges or citations.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&o.envFile, "env", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&o.store, "store", "", "Store backend: memory, badger or neo4j")
	rootCmd.PersistentFlags().StringVar(&o.actor, "actor", "", "Account to act as")

	rootCmd.AddCommand(
		newImportCmd(o),
		newMergeCmd(o),
		newListCmd(o),
		newExportCmd(o),
		newCloseCmd(o),
		newCitationsCmd(o),
	)
	return rootCmd
}

func addOutputFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().StringVar(&o.output, "output", "", "Write the network JSON to this file instead of stdout")
	cmd.Flags().StringVar(&o.visualize, "visualize", "", "Also render an HTML visualization to this file")
}

func newImportCmd(o *options) *cobra.Command {
	var public bool
	var batchSize int
	cmd := &cobra.Command{
		Use:   "import [files or directories...]",
		Short: "Create one network per import document",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().BoolVar(&public, "public", false, "Make the imported networks public")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Documents loaded concurrently")
	cmd.RunE = o.withSession(func(ctx context.Context, sess *session, args []string) error {
		files, err := readInputFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return graph.Invalidf("no input files found")
		}
		sess.logger.Infof("Loading %d import documents...", len(files))

		pipeline := storage.NewDocumentPipeline(sess.logger)
		pipeline.SetBatchSize(batchSize)
		if public {
			pipeline.AddStep(func(ctx context.Context, doc *graph.ImportDocument) error {
				doc.IsPublic = true
				return nil
			})
		}
		loaded, err := pipeline.BatchLoad(ctx, files)
		if err != nil {
			return err
		}

		for _, l := range loaded {
			n, err := sess.svc.CreateNetwork(ctx, sess.actor, l.Document)
			if err != nil {
				return fmt.Errorf("%s: %w", l.Path, err)
			}
			sess.logger.WithFields(logrus.Fields{
				"path":  l.Path,
				"id":    n.ID,
				"nodes": n.NodeCount,
				"edges": n.EdgeCount,
			}).Info("network imported")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", n.ID, n.Name)
		}
		return nil
	})
	return cmd
}

func newMergeCmd(o *options) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "merge [network-id] [file]",
		Short: "Merge an import document into an existing network",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVar(&method, "method", "", "Equivalence method (JDEX_ID, IMPORT_ID)")
	cmd.RunE = o.withSession(func(ctx context.Context, sess *session, args []string) error {
		doc, err := storage.NewDocumentPipeline(sess.logger).Load(ctx, args[1])
		if err != nil {
			return err
		}
		n, err := sess.svc.MergeNetwork(ctx, sess.actor, args[0], method, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tnodes=%d edges=%d\n", n.ID, n.Name, n.NodeCount, n.EdgeCount)
		return nil
	})
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List readable networks",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = o.withSession(func(ctx context.Context, sess *session, args []string) error {
		networks, err := sess.svc.ListNetworks(ctx, sess.actor)
		if err != nil {
			return err
		}
		for _, n := range networks {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tnodes=%d edges=%d\n", n.ID, n.Name, n.NodeCount, n.EdgeCount)
		}
		return nil
	})
	return cmd
}

func newExportCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [network-id]",
		Short: "Write a whole network as JSON",
		Args:  cobra.ExactArgs(1),
	}
	addOutputFlags(cmd, o)
	cmd.Flags().BoolVar(&o.asDocument, "as-document", false, "Write an import document instead of the network")
	cmd.RunE = o.withSession(func(ctx context.Context, sess *session, args []string) error {
		n, err := sess.svc.ExportNetwork(ctx, sess.actor, args[0])
		if err != nil {
			return err
		}
		return o.write(ctx, cmd, sess, n)
	})
	return cmd
}

func newCloseCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close [network-id] [edge-id...]",
		Short: "Extract the self-contained subnetwork around edges",
		Args:  cobra.MinimumNArgs(2),
	}
	addOutputFlags(cmd, o)
	cmd.RunE = o.withSession(func(ctx context.Context, sess *session, args []string) error {
		n, err := sess.svc.CloseEdges(ctx, sess.actor, args[0], args[1:])
		if err != nil {
			return err
		}
		return o.write(ctx, cmd, sess, n)
	})
	return cmd
}

func newCitationsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citations [network-id] [citation-id...]",
		Short: "Extract everything the given citations back",
		Args:  cobra.MinimumNArgs(2),
	}
	addOutputFlags(cmd, o)
	cmd.RunE = o.withSession(func(ctx context.Context, sess *session, args []string) error {
		n, err := sess.svc.GetEdgesByCitations(ctx, sess.actor, args[0], args[1:])
		if err != nil {
			return err
		}
		return o.write(ctx, cmd, sess, n)
	})
	return cmd
}

// readInputFiles expands directories into the JSON files below them
func readInputFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if path == root || strings.EqualFold(filepath.Ext(path), ".json") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
