// Package cli provides the command-line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/migratio-labs/ragserve/internal/adapters/driven/config/file"
	"github.com/migratio-labs/ragserve/internal/adapters/driven/factory"
	"github.com/migratio-labs/ragserve/internal/cache"
	"github.com/migratio-labs/ragserve/internal/chunker"
	"github.com/migratio-labs/ragserve/internal/core/domain"
	"github.com/migratio-labs/ragserve/internal/core/ports/driven"
	"github.com/migratio-labs/ragserve/internal/core/ports/driving"
	"github.com/migratio-labs/ragserve/internal/core/services"
	"github.com/migratio-labs/ragserve/internal/logger"
)

// version is set from main at startup.
var version = "dev"

// Persistent flags.
var (
	cfgPath string
	verbose bool
)

// Wired services, shared by the commands. Populated by initServices;
// commands nil-check what they need.
var (
	cfg file.Config

	embeddingService driven.EmbeddingService
	documentStore    driven.DocumentStore

	ingestService    driving.Ingestor
	retrieverService driving.Retriever
	chatService      driving.ChatService
)

var rootCmd = &cobra.Command{
	Use:   "ragserve",
	Short: "Retrieval-augmented chat over a local document corpus",
	Long: `ragserve ingests documents into a vector store and answers questions
about them through a cascade of generation backends.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.ragserve/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetVersion records the build version for the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the CLI.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// initServices wires adapters and services from configuration. The
// version command runs without any wiring.
func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	switch cmd.Name() {
	case "version", "help", "completion":
		return nil
	}

	var err error
	cfg, err = file.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Validating at startup turns a dead embedding endpoint into one
	// clear error instead of a failure per chunk or per query.
	embeddingService, err = factory.CreateAndValidateEmbeddingService(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedding service: %w", err)
	}

	documentStore, err = factory.CreateDocumentStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("creating document store: %w", err)
	}

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.Ingest.ChunkSize),
		chunker.WithOverlap(cfg.Ingest.Overlap),
	)
	if err != nil {
		return fmt.Errorf("creating chunker: %w", err)
	}

	ingestService = services.NewIngestService(
		documentStore, embeddingService, splitter,
		services.WithWorkers(cfg.Ingest.Workers),
	)
	retrieverService = services.NewRetrieverService(embeddingService, documentStore)

	// The generation cascade is only needed by chat and serve; skipping
	// it elsewhere keeps ingest and search usable without any backend.
	switch cmd.Name() {
	case "chat", "serve":
		cascade, err := buildCascade()
		if err != nil {
			return err
		}
		chatService = services.NewChatService(
			retrieverService, cascade,
			services.WithRetrievalOptions(domain.RetrievalOptions{
				Limit:     cfg.Retrieval.Limit,
				Threshold: domain.NewThreshold(cfg.Retrieval.Threshold),
			}),
			services.WithContextBudget(cfg.Chat.ContextBudget),
			services.WithSystemPrompt(cfg.Chat.SystemPrompt),
		)
	}

	return nil
}

// buildCascade creates the generation cascade from configuration.
func buildCascade() (*services.CascadeService, error) {
	backends, warnings, err := factory.CreateGenerationBackends(cfg.Backends)
	if err != nil {
		return nil, fmt.Errorf("creating generation backends: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("%s", w)
	}

	var opts []services.CascadeOption
	if cfg.Backends.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.Backends.CacheTTLSeconds) * time.Second
		opts = append(opts, services.WithResponseCache(cache.New(ttl)))
	}
	return services.NewCascadeService(backends, opts...)
}

// closeServices releases wired resources.
func closeServices() {
	if embeddingService != nil {
		embeddingService.Close()
	}
	if documentStore != nil {
		documentStore.Close()
	}
}
