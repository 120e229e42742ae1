// Command dlt-router runs the DLT routing and filtering daemon: a DCP
// configuration socket, a shared-memory drain/forward loop, and the UDP
// channel outputs spec.md's DltLogServer routes records onto.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ehrlich-b/dlt-router"
	"github.com/ehrlich-b/dlt-router/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath      string
	socketPath      string
	persistencePath string
	shmName         string
	shmBufferSize   int
	metricsAddr     string
	verbose         bool
	noAdaptiveRuntime bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "dlt-router",
		Short:   "Route and filter DLT log traffic onto UDP channels",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}
	cmd.SetVersionTemplate("dlt-router {{.Version}}\n")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "/etc/dlt-router/config.json", "path to the static configuration JSON file")
	cmd.Flags().StringVar(&flags.socketPath, "socket", "/run/dlt-router/dcp.sock", "DCP AF_UNIX listen path")
	cmd.Flags().StringVar(&flags.persistencePath, "persistence", "/var/lib/dlt-router/state.db", "buntdb persistence file (\":memory:\" for ephemeral)")
	cmd.Flags().StringVar(&flags.shmName, "shm-name", "dlt-router", "/dev/shm object name backing the shared ACB")
	cmd.Flags().IntVar(&flags.shmBufferSize, "shm-buffer-size", 1<<20, "per-LCB shared memory buffer size in bytes")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on (empty disables)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug-level logging")
	// -n/--no_adaptive_runtime names the legacy runtime-tuning toggle this
	// implementation doesn't model (GOMAXPROCS, scheduler affinity, etc.
	// are left to the Go runtime); it is accepted for CLI compatibility
	// and only suppresses the one piece of runtime tuning this binary
	// does perform, the debug.SetGCPercent call in run.
	cmd.Flags().BoolVarP(&flags.noAdaptiveRuntime, "no_adaptive_runtime", "n", false, "skip the startup GC-percent tuning")

	cmd.AddCommand(newDemoCmd())
	return cmd
}

func run(ctx context.Context, flags *rootFlags) error {
	logCfg := logging.DefaultConfig()
	if flags.verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logCfg)
	logging.SetDefault(logger)

	if !flags.noAdaptiveRuntime {
		debug.SetGCPercent(100)
	}
	logger.Debugf("starting with GOMAXPROCS=%d", runtime.GOMAXPROCS(0))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	daemon, err := dltrouter.New(dltrouter.Config{
		ConfigPath:             flags.configPath,
		SocketPath:             flags.socketPath,
		PersistencePath:        flags.persistencePath,
		SharedMemoryName:       flags.shmName,
		SharedMemoryBufferSize: flags.shmBufferSize,
		Logf:                   logger.Infof,
	})
	if err != nil {
		return fmt.Errorf("dlt-router: %w", err)
	}

	if flags.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(daemon.Metrics().Registry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: flags.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	logger.Info("dlt-router started")
	err = daemon.Run(ctx)
	logger.Info("dlt-router stopped")
	return err
}
