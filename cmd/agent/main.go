package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	vigilant "github.com/Chichichkin/vigilant-go"
	"github.com/Chichichkin/vigilant-go/internal/daemon"
	"github.com/Chichichkin/vigilant-go/internal/promstats"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	config, help, err := loadConfig(args)
	if err != nil {
		return err
	}
	if help {
		fmt.Println("usage: vigilant-agent [--config path] [--log-path dir] [--endpoint host] [--token tk] [--metrics-listen addr]")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	options := handlerOptions(config)

	logger := vigilant.NewLogger(vigilant.LoggerOptions{Options: options, DisablePassthrough: true})
	metrics := vigilant.NewMetricsHandler(options)
	errorHandler := vigilant.NewErrorHandler(options)

	var server *http.Server
	if config.MetricsListen != "" {
		collector, err := promstats.NewCollector(map[string]promstats.Source{
			"logs":    logger,
			"metrics": metrics,
			"errors":  errorHandler,
		})
		if err != nil {
			return fmt.Errorf("create metrics collector: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		server = &http.Server{
			Addr:              config.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Printf("Serving metrics on %s", config.MetricsListen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errorHandler.Capture(fmt.Errorf("metrics server: %w", err), nil)
				log.Printf("Metrics server failed: %v", err)
			}
		}()
	}

	service := daemon.NewLogDaemonService(ctx, daemon.Config{
		LogRootPath:     config.LogRootPath,
		ScanInterval:    config.ScanInterval,
		Workers:         config.Workers,
		FileQueueSize:   config.QueueSize,
		NodeName:        config.NodeName,
		ReportInterval:  config.ReportInterval,
		FileIdleTimeout: config.FileIdleTimeout,
	}, logger, metrics)
	service.Start()

	<-ctx.Done()
	log.Println("Received shutdown signal")

	service.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush logs: %w", err))
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush metrics: %w", err))
	}
	if err := errorHandler.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush errors: %w", err))
	}

	log.Println("Shutdown complete")
	return errors.Join(errs...)
}

func handlerOptions(config AppConfig) vigilant.Options {
	return vigilant.Options{
		Name:       config.Name,
		Token:      config.Token,
		Endpoint:   config.Endpoint,
		Insecure:   config.Insecure,
		Noop:       config.Noop,
		HTTPClient: &http.Client{Timeout: config.RequestTimeout},
		OnSendError: func(err error) {
			log.Printf("Failed to send batch: %v", err)
		},
	}
}
