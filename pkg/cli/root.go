package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/withgalaxy/stash/internal/logging"
	"github.com/withgalaxy/stash/pkg/config"
	"github.com/withgalaxy/stash/pkg/scenario"
)

var (
	Version = "0.1.0"
	cfgFile string
	rootDir string
	verbose bool
	silent  bool
)

var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "Stash - run and inspect state container scenarios",
	Long: `Stash runs declarative scenarios against the stash state container.
Each scenario seeds a store, applies a list of writes and checks which
writes notified listeners and what the final state looks like.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "disable all logging")
}

type env struct {
	root       string
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func loadEnv() (*env, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cwd = rootDir
	}

	path := cfgFile
	if path == "" {
		path = filepath.Join(cwd, config.FileName)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.FromConfig(cfg, verbose, silent))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &env{root: cwd, configPath: path, cfg: cfg, log: log}, nil
}

func (e *env) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.root, path)
}

// scenarioPaths returns args resolved against the root, or every scenario
// in the configured directory when args is empty.
func (e *env) scenarioPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		dir := e.resolve(e.cfg.ScenarioDir)
		paths, err := scenario.Discover(dir)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no scenarios found in %s", dir)
		}
		return paths, nil
	}

	paths := make([]string, len(args))
	for i, a := range args {
		paths[i] = e.resolve(a)
	}
	return paths, nil
}
