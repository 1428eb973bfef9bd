package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/withgalaxy/stash/internal/logging"
	"github.com/withgalaxy/stash/pkg/report"
	"github.com/withgalaxy/stash/pkg/scenario"
	"github.com/withgalaxy/stash/pkg/watch"
)

var (
	runReport string
	runWatch  bool
)

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run scenarios",
	Long: `Run scenario files (YAML, TOML, JSON or Markdown with frontmatter).
Without arguments every scenario in the configured scenario directory runs.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runReport, "report", "", "write an HTML report to this file")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "re-run scenarios when their files change")
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	paths, err := e.scenarioPaths(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	results, failed, err := runScenarios(ctx, e, out, paths)
	if err != nil {
		return err
	}

	if runReport != "" {
		if err := writeReport(e, runReport, results); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report written to %s\n", runReport)
	}

	if runWatch {
		return watchScenarios(ctx, e, out, paths)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenario(s) failed", failed, len(results))
	}
	return nil
}

func runScenarios(ctx context.Context, e *env, out io.Writer, paths []string) ([]*scenario.Result, int, error) {
	results := make([]*scenario.Result, 0, len(paths))
	failed := 0

	for _, path := range paths {
		sc, err := scenario.Load(path)
		if err != nil {
			return results, failed, err
		}

		res, err := runScenario(ctx, e, out, sc)
		if err != nil {
			return results, failed, err
		}
		if !res.Passed() {
			failed++
		}
		results = append(results, res)
	}

	return results, failed, nil
}

func runScenario(ctx context.Context, e *env, out io.Writer, sc *scenario.Scenario) (*scenario.Result, error) {
	res, err := scenario.Run(ctx, sc, scenario.WithObserver(logging.NewObserver(e.log)))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", sc.Name, err)
	}
	printResult(out, res)
	return res, nil
}

func printResult(out io.Writer, res *scenario.Result) {
	if res.Passed() {
		fmt.Fprintf(out, "✓ %s (%d steps, %d notifications, %s)\n",
			res.Scenario.Name, len(res.Steps), len(res.Notifications), res.Duration)
		return
	}

	fmt.Fprintf(out, "✗ %s\n", res.Scenario.Name)
	for _, f := range res.Failures {
		fmt.Fprintf(out, "    %s\n", f.Error())
	}
}

func writeReport(e *env, path string, results []*scenario.Result) error {
	page, err := report.HTML(results, e.cfg.Report.Style)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	path = e.resolve(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, page, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func watchScenarios(ctx context.Context, e *env, out io.Writer, paths []string) error {
	w, err := watch.New(e.cfg.Watch.Debounce(), e.log)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(paths...); err != nil {
		return err
	}

	fmt.Fprintln(out, "Watching for changes, press Ctrl+C to stop")

	changes := make(chan watch.Change)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx, changes)
	}()

	for {
		select {
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case c := <-changes:
			if c.Err != nil {
				fmt.Fprintf(out, "✗ %s: %v\n", c.Path, c.Err)
				continue
			}
			if _, err := runScenario(ctx, e, out, c.Scenario); err != nil {
				e.log.Warn("scenario run failed", zap.String("path", c.Path), zap.Error(err))
			}
		}
	}
}
