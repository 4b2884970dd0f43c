// main.go - decoder process entrypoint.
// Copyright (C) 2026  Decoder Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command decoder runs the conditional-access decoder's main loop: open
// the host-link transport and the persistence-backed subscription table,
// bootstrap the verifying key, then serve requests one at a time forever.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duskrelay/decoder/command"
	"github.com/duskrelay/decoder/crypto"
	"github.com/duskrelay/decoder/internal/corelog"
	"github.com/duskrelay/decoder/internal/provisioned"
	"github.com/duskrelay/decoder/internal/worker"
	"github.com/duskrelay/decoder/link"
	"github.com/duskrelay/decoder/status"
	"github.com/duskrelay/decoder/storage"
	"github.com/duskrelay/decoder/subscription"
)

// metricsServer runs the Prometheus /metrics endpoint as a background
// goroutine, the one long-running second goroutine this otherwise
// single-threaded request loop needs.
type metricsServer struct {
	worker.Worker
	srv *http.Server
}

func newMetricsServer(addr string) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &metricsServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

func (m *metricsServer) Start(log func(format string, args ...interface{})) {
	m.Go(func() {
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log("metrics server exited: %v", err)
		}
	})
	m.Go(func() {
		<-m.HaltCh()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.srv.Shutdown(ctx)
	})
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "decoder.toml", "decoder configuration file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintln(os.Stderr, "decoder:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logBackend, err := corelog.NewStderr(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logBackend.GetLogger("decoder")

	led := status.NewTerminalIndicator(os.Stdout)
	led.Set(status.Red)

	flash, err := storage.NewFileFlash(cfg.FlashImage)
	if err != nil {
		return fmt.Errorf("open flash image: %w", err)
	}
	image := storage.NewPersistentImage(flash, provisioned.FlashKey, log)

	blob, err := image.Boot()
	if err != nil {
		return fmt.Errorf("boot persistence layer: %w", err)
	}
	table := subscription.NewTable()
	if err := table.UnmarshalBinary(blob); err != nil {
		return fmt.Errorf("restore subscription table: %w", err)
	}

	decoder := subscription.NewDecoder(table, provisioned.Channel0Key)

	// Preinitialize the verifying-key cache ahead of the first request so
	// that key parsing and the weak-key check never run on the hot path.
	if err := crypto.Bootstrap(provisioned.VerifyingKey); err != nil {
		return fmt.Errorf("bootstrap crypto: %w", err)
	}

	transport, err := link.OpenSerialTransport(cfg.SerialDevice)
	if err != nil {
		return fmt.Errorf("open serial transport: %w", err)
	}
	engine := link.NewEngine(transport, log)

	metrics := status.NewMetrics()

	dispatcher := command.New(engine, table, decoder, provisioned.DecoderKey, image, led, metrics, log)

	var ms *metricsServer
	if cfg.MetricsAddr != "" {
		ms = newMetricsServer(cfg.MetricsAddr)
		ms.Start(log.Errorf)
		defer ms.Halt()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Notice("received shutdown signal")
		if ms != nil {
			ms.Halt()
		}
		os.Exit(0)
	}()

	log.Notice("decoder ready")
	for {
		led.Set(status.Green)
		if err := dispatcher.RunOne(); err != nil {
			log.Errorf("transaction failed: %v", err)
		}
	}
}
