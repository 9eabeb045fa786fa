package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ftp_control/config"
	"ftp_control/internal/dispatcher"
	"ftp_control/internal/handler"
	"ftp_control/internal/logger"
	"ftp_control/internal/metrics"
	"ftp_control/internal/tool"
	"ftp_control/internal/transfer"
)

const serviceName = "ftp_control"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Serve the " + tool.Name + " tool over HTTP",
		Long:          tool.Name + ": " + tool.Description,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath, addr)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (toml/yaml/json)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.addr")
	cmd.AddCommand(newCheckCmd(&configPath))
	return cmd
}

// newCheckCmd validates the configuration without starting the service.
func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.MustLoad(*configPath)
			if err != nil {
				return err
			}
			mode := transfer.ModeFromFlags(cfg.Security.FTPSImplicit, cfg.Security.FTPSExplicit)
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %s:%d root=%s tls=%s\n", cfg.Server.IP, cfg.Server.Port, cfg.RootDir, mode)
			return nil
		},
	}
}

func serve(ctx context.Context, configPath, addr string) error {
	log := logger.NewLogger(serviceName, "")

	store, err := config.Watch(configPath, func(err error) {
		log.Service().WithError(err).Error("config reload failed, keeping previous values")
	})
	if err != nil {
		return err
	}

	cfg := store.Current()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	store.Subscribe(func(next config.Config) {
		log.SetLevel(logger.ParseLevel(next.LogLevel))
	})
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	dialer := transfer.NewFTPDialer(transfer.NewSessionCache(), log)
	disp := dispatcher.New(store, dialer, log)

	ftpTool := tool.New(disp, tool.NewConfigChannel(store, log, nil), m, log)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.NewRouter(ftpTool, reg, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Service().WithFields(logrus.Fields{
			"addr": addr,
			"root": cfg.RootDir,
			"tls":  transfer.ModeFromFlags(cfg.Security.FTPSImplicit, cfg.Security.FTPSExplicit).String(),
		}).Info("starting " + tool.Name + " service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
		close(errCh)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Service().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Service().Info("stopped")
	return nil
}
