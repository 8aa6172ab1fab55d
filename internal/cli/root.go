package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nathfavour/flora/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "flora",
	Short: "Flora is a voice-driven personal assistant",
	Long: `Flora listens for commands addressed to it, runs matching skills and
falls back to a language model for everything else.

Run without arguments to open the interactive control surface.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", config.Version, config.Commit, config.BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if dataDir != "" {
			config.SetDataDir(dataDir)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(cmd, args)
	},
}

// Execute runs the CLI. Any error, including a missing credential, exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flora.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default is $HOME/.flora)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("wake-word", "", "word that addresses Flora")
	rootCmd.PersistentFlags().String("backend", "", "fallback backend (groq, gemini, vibe, offline)")
	rootCmd.PersistentFlags().String("skills-dir", "", "plugin skills directory")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("wake_word", rootCmd.PersistentFlags().Lookup("wake-word"))
	_ = viper.BindPFlag("fallback.backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("skills_dir", rootCmd.PersistentFlags().Lookup("skills-dir"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".flora")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Error reading config:", err)
			os.Exit(1)
		}
	}
}

// settings resolves configuration after flags and the config file are in.
func settings() config.Settings {
	return config.Load(viper.GetViper())
}

// newLogger builds the production zap logger. When toFile is set, output
// goes to path so it does not draw over the terminal UI.
func newLogger(level, path string, toFile bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if toFile {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
