package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/talent-matcher/internal/cache"
	"github.com/spigell/talent-matcher/internal/embedding"
	"github.com/spigell/talent-matcher/internal/logger"
	"github.com/spigell/talent-matcher/internal/matching"
	"github.com/spigell/talent-matcher/internal/secrets"
	"github.com/spigell/talent-matcher/internal/talent"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptDumpToFile    = "Dump results to file"
	PromptReportByLevel = "Report by level"
	PromptExit          = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptDumpToFile, PromptReportByLevel, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run the talent-matcher main command",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("candidate", "c", "", "rank jobs for a single candidate id")
	matchCmd.Flags().StringP("job", "w", "", "rank candidates for a single job id")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "dump results to file without asking")
}

// match is the main command for the cli.
func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the talent-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.CandidatesFile == "" || config.JobsFile == "" {
		logger.Fatal("candidates-file and jobs-file are required to score matches")
	}

	candidates, err := talent.LoadCandidates(config.CandidatesFile)
	if err != nil {
		logger.Fatal("loading candidates", zap.Error(err))
	}

	jobs, err := talent.LoadJobs(config.JobsFile)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}

	logger.Info("loaded records",
		zap.Int("candidates", candidates.Len()),
		zap.Int("jobs", jobs.Len()),
	)

	if candidates.Len() == 0 || jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "nothing to match"))
		return
	}

	engine, closeCaches := buildEngine(ctx, config, logger)
	defer closeCaches()

	if !engine.Available() {
		logger.Warn("semantic scoring degraded, using keyword fallback for all pairs")
	}

	results := runMatching(ctx, cmd, engine, config, candidates, jobs, logger)
	if results.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no matches above the configured minimum score"))
		return
	}

	for {
		action := PromptDumpToFile
		if cmd.Flag("auto-approve").Value.String() == "false" {
			var err error
			if _, action, err = prompt.Run(); err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := handleAction(action, logger, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if cmd.Flag("auto-approve").Value.String() == "true" {
			return
		}
	}
}

// runMatching dispatches to the requested orchestration: a single
// candidate ranking, a single job ranking, or the full batch matrix.
func runMatching(ctx context.Context, cmd *cobra.Command, engine *matching.Engine, config *Config, candidates *talent.Candidates, jobs *talent.Jobs, logger *zap.Logger) *talent.MatchResults {
	topK := 0
	minScore := 0.0
	if config.Matching != nil {
		topK = config.Matching.TopK
		minScore = config.Matching.MinScore
	}

	if id := strings.TrimSpace(cmd.Flag("candidate").Value.String()); id != "" {
		candidate := candidates.FindByID(id)
		if candidate == nil {
			logger.Fatal("candidate with given id not found",
				zap.Strings("existing candidate ids", candidates.IDs()),
				zap.String("candidate id", id),
			)
		}

		logger.Info("ranking jobs for candidate", zap.String("candidate_id", id))
		return engine.RankJobsForCandidate(ctx, candidate, jobs, topK, minScore)
	}

	if id := strings.TrimSpace(cmd.Flag("job").Value.String()); id != "" {
		job := jobs.FindByID(id)
		if job == nil {
			logger.Fatal("job with given id not found",
				zap.Strings("existing job ids", jobs.IDs()),
				zap.String("job id", id),
			)
		}

		logger.Info("ranking candidates for job", zap.String("job_id", id))
		return engine.RankCandidatesForJob(ctx, job, candidates, minScore)
	}

	logger.Info("computing full match matrix",
		zap.Int("pairs", candidates.Len()*jobs.Len()),
	)

	matrix := engine.BatchMatch(ctx, candidates, jobs)

	results := &talent.MatchResults{}
	for _, id := range candidates.IDs() {
		row, ok := matrix[id]
		if !ok {
			continue
		}
		for _, item := range row.Items {
			if item.Score >= minScore {
				results.Items = append(results.Items, item)
			}
		}
	}
	return results
}

func handleAction(action string, logger *zap.Logger, results *talent.MatchResults) error {
	switch action {
	case PromptDumpToFile:
		filename, err := results.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping results to file", zap.String("filename", filename))
		return nil
	case PromptReportByLevel:
		pretty, _ := json.MarshalIndent(results.ReportByLevel(), "", "  ")
		logger.Info(string(pretty), zap.Int("results count", results.Len()))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// buildEngine wires the embedding provider, caches and rule adjuster into
// a matching engine. Any provider initialization failure degrades to the
// permanently-unavailable stub instead of aborting the run.
func buildEngine(ctx context.Context, config *Config, logger *zap.Logger) (*matching.Engine, func()) {
	embeddingTTL := embedding.DefaultEmbeddingTTL
	scoreTTL := matching.DefaultScoreTTL
	if config.Cache != nil {
		if config.Cache.EmbeddingTTL > 0 {
			embeddingTTL = config.Cache.EmbeddingTTL
		}
		if config.Cache.ScoreTTL > 0 {
			scoreTTL = config.Cache.ScoreTTL
		}
	}

	embedder := newEmbedder(ctx, config.AI, logger)

	vectors := cache.NewTTL[[]float32](embeddingTTL, 0)
	scores := cache.NewTTL[float64](scoreTTL, 0)

	cached := embedding.NewCached(embedder, vectors, logger)
	engine := matching.NewEngine(cached, matching.NewAdjuster(nil), scores, logger)

	return engine, func() {
		vectors.Close()
		scores.Close()
	}
}

// newEmbedder selects the provider once at construction time: a
// model-backed provider when configured, the unavailable stub otherwise.
func newEmbedder(ctx context.Context, config *AIConfig, logger *zap.Logger) embedding.Embedder {
	if config == nil || !config.Enabled {
		logger.Info("semantic scoring disabled by configuration")
		return embedding.NewUnavailable()
	}

	provider := strings.TrimSpace(strings.ToLower(config.Provider))
	if provider != "" && provider != "gemini" {
		logger.Warn("unsupported embedding provider, using keyword fallback", zap.String("provider", config.Provider))
		return embedding.NewUnavailable()
	}

	if config.Gemini == nil {
		logger.Warn("gemini configuration is required when ai is enabled, using keyword fallback")
		return embedding.NewUnavailable()
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		Env:  "GEMINI_API_KEY",
		File: config.Gemini.APIKeyFile,
	})
	if err != nil {
		logger.Warn("loading gemini api key, using keyword fallback",
			zap.Error(err),
			zap.String("hint", "set the GEMINI_API_KEY or GEMINI_API_KEY_FILE environment variable, or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
		return embedding.NewUnavailable()
	}

	gemini, err := embedding.NewGemini(ctx, embedding.GeminiConfig{
		APIKey:            apiKey,
		Model:             config.Gemini.Model,
		Dimensions:        config.Gemini.Dimensions,
		RequestTimeout:    config.Gemini.RequestTimeout,
		MaxRetries:        config.Gemini.MaxRetries,
		RequestsPerSecond: config.Gemini.RequestsPerSecond,
	}, logger.With(zap.String("provider", "gemini"), zap.String("model", config.Gemini.Model)))
	if err != nil {
		logger.Warn("initializing gemini embedder, using keyword fallback", zap.Error(err))
		return embedding.NewUnavailable()
	}

	return gemini
}
