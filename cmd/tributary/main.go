// Tributary is a multi-source data collection pipeline: it scrapes two
// HTML catalogs, queries a geocoding API, and loads a partner
// spreadsheet, then normalizes, pseudonymizes, deduplicates, and writes
// the results to an S3-compatible object store and a PostgreSQL
// warehouse.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/internal/pipeline"
	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/logger"
	"github.com/tributary-data/tributary/pkg/sink"
)

var (
	version = "0.3.0"

	// run flags
	flagSource          string
	flagPages           int
	flagQuery           string
	flagLimit           int
	flagPartnersFile    string
	flagGeocodePartners bool
	flagExport          bool
	flagNoObjectStore   bool
	flagNoWarehouse     bool

	// erase flags
	flagPartnerID string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tributary",
		Short:         "Multi-source data collection pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), eraseCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline for one source or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext()
			defer cancel()

			artifacts, warehouse, closeSinks, err := openSinks(ctx, cfg, log)
			if err != nil {
				log.Error("sink initialization failed", zap.Error(err))
				return err
			}
			defer closeSinks()

			p := pipeline.New(cfg, artifacts, warehouse, log)
			opts := pipeline.Options{
				Pages:           flagPages,
				Query:           flagQuery,
				Limit:           flagLimit,
				PartnersFile:    flagPartnersFile,
				GeocodePartners: flagGeocodePartners,
				Export:          flagExport,
			}
			if opts.Pages <= 0 {
				opts.Pages = cfg.Scrape.MaxPages
			}

			var summaries []*pipeline.Summary
			if flagSource == "all" {
				summaries, err = p.RunAll(ctx, opts)
			} else {
				var s *pipeline.Summary
				s, err = p.Run(ctx, flagSource, opts)
				if s != nil {
					summaries = append(summaries, s)
				}
			}

			printSummaries(cmd, summaries)
			if err != nil {
				log.Error("pipeline run failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagSource, "source", "all", "source to process: books, quotes, api, partners, or all")
	cmd.Flags().IntVar(&flagPages, "pages", 0, "maximum catalog pages to scrape (0 uses the configured default)")
	cmd.Flags().StringVar(&flagQuery, "query", "", "free-text query for the api source")
	cmd.Flags().IntVar(&flagLimit, "limit", 10, "maximum results for the api source")
	cmd.Flags().StringVar(&flagPartnersFile, "partners-file", "data/partners.xlsx", "path to the partner spreadsheet")
	cmd.Flags().BoolVar(&flagGeocodePartners, "geocode-partners", false, "resolve partner addresses to coordinates via the address API")
	cmd.Flags().BoolVar(&flagExport, "export", false, "upload CSV and JSON snapshots of the processed rows")
	cmd.Flags().BoolVar(&flagNoObjectStore, "no-object-store", false, "skip object-store writes for this run")
	cmd.Flags().BoolVar(&flagNoWarehouse, "no-warehouse", false, "skip warehouse writes for this run")
	return cmd
}

func eraseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase one partner's row and artifacts from both sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext()
			defer cancel()

			warehouse, err := sink.NewWarehouse(ctx, cfg.Warehouse, log)
			if err != nil {
				return err
			}
			defer warehouse.Close()

			erased, err := warehouse.ErasePartner(ctx, flagPartnerID)
			if err != nil {
				return err
			}

			deleted := 0
			if cfg.ObjectStore.Enabled {
				store, err := sink.NewObjectStore(ctx, cfg.ObjectStore, log)
				if err != nil {
					return err
				}
				deleted, err = store.DeleteArtifacts(ctx, "partners/"+flagPartnerID)
				if err != nil {
					return err
				}
			}

			log.Info("partner erased",
				zap.String("partner_id", flagPartnerID),
				zap.Bool("row_deleted", erased),
				zap.Int("artifacts_deleted", deleted))
			if !erased && deleted == 0 {
				cmd.Printf("partner %s: nothing to erase\n", flagPartnerID)
				return nil
			}
			cmd.Printf("partner %s erased (row: %t, artifacts: %d)\n", flagPartnerID, erased, deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagPartnerID, "partner-id", "", "stable key of the partner to erase")
	_ = cmd.MarkFlagRequired("partner-id")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("tributary %s\n", version)
		},
	}
}

// setup loads the environment, configuration, and logger shared by every
// command.
func setup() (*config.Config, *zap.Logger, error) {
	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	}); err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger.Get(), nil
}

// openSinks initializes the enabled sinks. A sink disabled by
// configuration or flag stays nil, which the pipeline treats as
// write-skipping.
func openSinks(ctx context.Context, cfg *config.Config, log *zap.Logger) (pipeline.ArtifactStore, pipeline.RowStore, func(), error) {
	var artifacts pipeline.ArtifactStore
	var rows pipeline.RowStore
	closeFn := func() {}

	if cfg.ObjectStore.Enabled && !flagNoObjectStore {
		store, err := sink.NewObjectStore(ctx, cfg.ObjectStore, log)
		if err != nil {
			return nil, nil, closeFn, err
		}
		artifacts = store
	}

	if cfg.Warehouse.Enabled && !flagNoWarehouse {
		warehouse, err := sink.NewWarehouse(ctx, cfg.Warehouse, log)
		if err != nil {
			return nil, nil, closeFn, err
		}
		if err := warehouse.EnsureSchema(ctx); err != nil {
			warehouse.Close()
			return nil, nil, closeFn, err
		}
		rows = warehouse
		closeFn = warehouse.Close
	}

	return artifacts, rows, closeFn, nil
}

func printSummaries(cmd *cobra.Command, summaries []*pipeline.Summary) {
	if len(summaries) == 0 {
		return
	}
	out, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return
	}
	cmd.Println(string(out))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
