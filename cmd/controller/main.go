// Command controller runs the control-plane controller role: it collects
// register_requests until every configured switch has checked in, then
// computes and broadcasts routing tables and watches for switch failures.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/g-hurst/sdnctl/internal/config"
	"github.com/g-hurst/sdnctl/internal/controllerrole"
	"github.com/g-hurst/sdnctl/internal/metrics"
	"github.com/g-hurst/sdnctl/internal/protolog"
	"github.com/g-hurst/sdnctl/internal/transport"
)

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func main() {
	var (
		verbose     bool
		logDir      string
		metricsAddr string
		metricsOn   bool
	)

	rootCmd := &cobra.Command{
		Use:   "controller <port> <config_path>",
		Short: "Run the SDN control-plane controller.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
			cfg, err := config.Load(args[1])
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger := newLogger(verbose)
			slog.SetDefault(logger)

			logPath := "Controller.log"
			if logDir != "" {
				logPath = logDir + "/Controller.log"
			}
			plog, err := protolog.Open(logPath)
			if err != nil {
				return fmt.Errorf("opening protocol log: %w", err)
			}
			defer plog.Close()

			reg := metrics.New("controller")

			conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
			if err != nil {
				return fmt.Errorf("binding udp port %d: %w", port, err)
			}
			defer conn.Close()

			listener := transport.NewListener(conn, logger)
			sender := transport.NewSender(conn, logger)
			listener.Start()
			sender.Start()

			c := controllerrole.New(controllerrole.Config{
				NumSwitches: cfg.NumSwitches,
				Edges:       cfg.Edges,
				Sender:      sender,
				Log:         plog,
				Slog:        logger,
				Metrics:     reg,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsOn {
				go serveMetrics(ctx, logger, metricsAddr, reg)
			}

			logger.Info("controller starting", "port", port, "switches", cfg.NumSwitches)
			runControllerLoop(ctx, c, listener, sender)
			return nil
		},
	}

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "directory for the protocol log file (default: current directory)")
	rootCmd.Flags().BoolVar(&metricsOn, "metrics-enable", false, "expose prometheus metrics")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "localhost:0", "address to serve prometheus metrics on")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, reg *metrics.Registry) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("metrics listener failed", "error", err)
		return
	}
	srv := &http.Server{Handler: reg.Handler()}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.Info("metrics server started", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
		logger.Error("metrics server exited", "error", err)
	}
}

func runControllerLoop(ctx context.Context, c *controllerrole.Controller, listener *transport.Listener, sender *transport.Sender) {
	defer listener.Kill()
	defer sender.Kill()

	reg := c.MetricsRegistry()

	for {
		select {
		case <-ctx.Done():
			<-listener.Done()
			<-sender.Done()
			return
		default:
		}

		ev, ok := listener.QueuePop()
		if ok {
			c.HandleInbound(ev)
		}
		if c.IsBooted() {
			c.DetectSwitchDead()
		}
		if reg != nil {
			reg.InboundQueueLen.Set(float64(listener.QueueSize()))
			reg.OutboundQueueLen.Set(float64(sender.QueueSize()))
		}
		if !ok {
			select {
			case <-ctx.Done():
				continue
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
}
