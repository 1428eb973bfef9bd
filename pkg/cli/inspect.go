package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/outofforest/parallel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/withgalaxy/stash/internal/logging"
	"github.com/withgalaxy/stash/pkg/devtools"
	"github.com/withgalaxy/stash/pkg/metrics"
	"github.com/withgalaxy/stash/pkg/scenario"
	"github.com/withgalaxy/stash/pkg/stash"
	"github.com/withgalaxy/stash/pkg/watch"
)

var (
	inspectAddr  string
	inspectWatch bool
	inspectDelay time.Duration
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <scenario>",
	Short: "Run a scenario with the devtools server attached",
	Long: `Run a scenario step by step while streaming every commit to websocket
clients on /ws. The server keeps running after the scenario ends so the final
state stays available on /state until you press Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectAddr, "addr", "", "listen address (defaults to devtools host:port from config)")
	inspectCmd.Flags().BoolVar(&inspectWatch, "watch", false, "re-run the scenario when its file changes")
	inspectCmd.Flags().DurationVar(&inspectDelay, "step-delay", -1, "pause between steps (defaults to devtools stepDelay from config)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.log.Sync()

	path := e.resolve(args[0])
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	addr := inspectAddr
	if addr == "" {
		addr = e.cfg.DevtoolsAddr()
	}
	delay := inspectDelay
	if delay < 0 {
		delay = e.cfg.Devtools.StepDelay()
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector()
	if err := collector.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := devtools.Options{
		CheckOrigin:  e.cfg.Devtools.CheckOrigin,
		AllowOrigins: e.cfg.Devtools.AllowOrigins,
		Logger:       e.log,
	}
	if e.cfg.Devtools.Metrics {
		opts.Gatherer = reg
	}
	srv := devtools.NewServer(opts)
	srv.Start()
	defer srv.Stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	httpSrv := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Devtools listening on ws://%s/ws\n", ln.Addr())

	in := &inspection{
		srv:      srv,
		log:      e.log,
		observer: stash.Observers{collector, logging.NewObserver(e.log)},
		delay:    delay,
	}
	defer in.detach()

	err = parallel.Run(cmd.Context(), func(ctx context.Context, spawn parallel.SpawnFn) error {
		spawn("server", parallel.Fail, func(ctx context.Context) error {
			if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return ctx.Err()
		})
		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		})

		if !inspectWatch {
			spawn("runner", parallel.Continue, func(ctx context.Context) error {
				return in.run(ctx, out, sc)
			})
			return nil
		}

		w, err := watch.New(e.cfg.Watch.Debounce(), e.log)
		if err != nil {
			return err
		}
		if err := w.Add(path); err != nil {
			w.Close()
			return err
		}
		changes := make(chan watch.Change)

		spawn("watcher", parallel.Fail, func(ctx context.Context) error {
			defer w.Close()
			return w.Run(ctx, changes)
		})
		spawn("runner", parallel.Fail, func(ctx context.Context) error {
			if err := in.run(ctx, out, sc); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case c := <-changes:
					if c.Err != nil {
						fmt.Fprintf(out, "✗ %s: %v\n", c.Path, c.Err)
						continue
					}
					if err := in.run(ctx, out, c.Scenario); err != nil {
						return err
					}
				}
			}
		})
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// inspection keeps the last run attached to the devtools server until the
// next run replaces it.
type inspection struct {
	srv      *devtools.Server
	log      *zap.Logger
	observer stash.Observer
	delay    time.Duration
	detachFn func()
}

func (in *inspection) attach(s *stash.Stash[stash.State]) func() {
	in.detach()
	in.detachFn = devtools.Attach[stash.State](in.srv, s.Name(), s)
	return nil
}

func (in *inspection) detach() {
	if in.detachFn != nil {
		in.detachFn()
		in.detachFn = nil
	}
}

func (in *inspection) run(ctx context.Context, out io.Writer, sc *scenario.Scenario) error {
	in.log.Info("running scenario", zap.String("scenario", sc.Name), zap.Int("steps", len(sc.Steps)))

	res, err := scenario.Run(ctx, sc,
		scenario.WithObserver(in.observer),
		scenario.WithAttach(in.attach),
		scenario.WithStepDelay(in.delay),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Fprintf(out, "✗ %s: %v\n", sc.Name, err)
		return nil
	}
	printResult(out, res)
	return nil
}
