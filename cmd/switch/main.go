// Command switch runs the control-plane switch role: it registers with a
// controller, exchanges keep_alive traffic with its live neighbors, and
// reports its topology so the controller can keep routing tables current.
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

	"github.com/g-hurst/sdnctl/internal/metrics"
	"github.com/g-hurst/sdnctl/internal/protolog"
	"github.com/g-hurst/sdnctl/internal/switchrole"
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
		failureID   int
	)

	rootCmd := &cobra.Command{
		Use:   "switch <id> <controller_host> <controller_port>",
		Short: "Run an SDN control-plane switch.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid switch id %q: %w", args[0], err)
			}
			controllerPort, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid controller port %q: %w", args[2], err)
			}
			controllerIPs, err := net.LookupIP(args[1])
			if err != nil || len(controllerIPs) == 0 {
				return fmt.Errorf("resolving controller host %q: %w", args[1], err)
			}
			controllerAddr := &net.UDPAddr{IP: controllerIPs[0], Port: controllerPort}

			logger := newLogger(verbose)
			slog.SetDefault(logger)

			logPath := fmt.Sprintf("switch%d.log", id)
			if logDir != "" {
				logPath = fmt.Sprintf("%s/switch%d.log", logDir, id)
			}
			plog, err := protolog.Open(logPath)
			if err != nil {
				return fmt.Errorf("opening protocol log: %w", err)
			}
			defer plog.Close()

			reg := metrics.New("switch")

			conn, err := net.ListenUDP("udp", &net.UDPAddr{})
			if err != nil {
				return fmt.Errorf("binding udp socket: %w", err)
			}
			defer conn.Close()

			listener := transport.NewListener(conn, logger)
			sender := transport.NewSender(conn, logger)
			listener.Start()
			sender.Start()

			sw := switchrole.New(switchrole.Config{
				ID:             id,
				ControllerAddr: controllerAddr,
				Sender:         sender,
				Log:            plog,
				Slog:           logger,
				Metrics:        reg,
				FailureID:      failureID,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsOn {
				go serveMetrics(ctx, logger, metricsAddr, reg)
			}

			logger.Info("switch starting", "id", id, "controller", controllerAddr, "failure-id", failureID)
			sw.Register()
			sw.Run(ctx, listener)

			listener.Kill()
			sender.Kill()
			<-listener.Done()
			<-sender.Done()
			return nil
		},
	}

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "directory for the protocol log file (default: current directory)")
	rootCmd.Flags().BoolVar(&metricsOn, "metrics-enable", false, "expose prometheus metrics")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "localhost:0", "address to serve prometheus metrics on")
	rootCmd.Flags().IntVarP(&failureID, "failure-id", "f", -1, "pretend the neighbor with this id is unreachable")

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
