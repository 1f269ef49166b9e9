package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "talent-matcher"
)

type Config struct {
	CandidatesFile string          `mapstructure:"candidates-file"`
	JobsFile       string          `mapstructure:"jobs-file"`
	Matching       *MatchingConfig `mapstructure:"matching"`
	Cache          *CacheConfig    `mapstructure:"cache"`
	AI             *AIConfig       `mapstructure:"ai"`
}

type MatchingConfig struct {
	TopK     int     `mapstructure:"top-k"`
	MinScore float64 `mapstructure:"min-score"`
}

type CacheConfig struct {
	EmbeddingTTL time.Duration `mapstructure:"embedding-ttl"`
	ScoreTTL     time.Duration `mapstructure:"score-ttl"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile        string        `mapstructure:"api-key-file"`
	Model             string        `mapstructure:"model"`
	Dimensions        int           `mapstructure:"dimensions"`
	MaxRetries        int           `mapstructure:"max-retries"`
	RequestTimeout    time.Duration `mapstructure:"request-timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talent-matcher scores candidates against job openings and ranks the matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talent-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for match command now. If there is no config, we can skip initialization
	if matchCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
