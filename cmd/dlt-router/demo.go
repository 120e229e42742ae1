package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ehrlich-b/dlt-router"
	"github.com/ehrlich-b/dlt-router/internal/logging"
)

// newDemoCmd builds the "demo" subcommand: a self-contained run of the
// daemon with a synthetic in-process producer goroutine, for trying the
// routing/filtering behavior end to end without a real DLT client.
func newDemoCmd() *cobra.Command {
	var (
		configPath string
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the daemon with a built-in synthetic log producer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), configPath, interval)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "static configuration JSON; a minimal in-memory default is used if empty")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "delay between synthetic log records")
	return cmd
}

const demoConfigJSON = `{
  "channels": {
    "DFLT": {"ecu": "ECU0", "port": 3491, "channelThreshold": "Verbose"}
  },
  "defaultChannel": "DFLT"
}`

func runDemo(ctx context.Context, configPath string, interval time.Duration) error {
	logger := logging.NewLogger(logging.DefaultConfig())
	logging.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if configPath == "" {
		tmp, err := os.CreateTemp("", "dlt-router-demo-*.json")
		if err != nil {
			return fmt.Errorf("dlt-router demo: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.WriteString(demoConfigJSON); err != nil {
			tmp.Close()
			return fmt.Errorf("dlt-router demo: %w", err)
		}
		tmp.Close()
		configPath = tmp.Name()
	}

	sockDir, err := os.MkdirTemp("", "dlt-router-demo-sock-*")
	if err != nil {
		return fmt.Errorf("dlt-router demo: %w", err)
	}
	defer os.RemoveAll(sockDir)

	daemon, err := dltrouter.New(dltrouter.Config{
		ConfigPath:             configPath,
		SocketPath:             sockDir + "/dcp.sock",
		PersistencePath:        ":memory:",
		SharedMemoryBufferSize: 1 << 16,
		Logf:                   logger.Infof,
	})
	if err != nil {
		return fmt.Errorf("dlt-router demo: %w", err)
	}

	producer := dltrouter.NewTestProducer(daemon)
	appID := uuid.New().String()[:4]
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var seq uint32
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				seq++
				level := uint8(rand.Intn(6))
				msg := fmt.Sprintf("demo record #%d", seq)
				if !producer.WriteVerbose(appID, "CTX0", "ECU0", level, []byte(msg)) {
					logger.Warn("demo producer: write dropped, buffer full")
				}
			}
		}
	}()

	logger.Info("demo daemon started", "appId", appID)
	return daemon.Run(ctx)
}
