// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the entry point for the weir reverse proxy.
//
// This file is responsible for orchestrating the entire process:
// 1. Loading and validating the YAML configuration.
// 2. Assembling a proxy.Service (or file-server adapter) per configured service.
// 3. Attaching each service's listeners and serving them concurrently.
// 4. Managing graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"weir/internal/audit"
	"weir/internal/config"
	"weir/internal/engine"
	"weir/internal/metrics"
	"weir/internal/proxy"
)

func main() {
	configPath := flag.String("config", "weir.yaml", "Path to the YAML service configuration")
	metricsAddr := flag.String("metrics_addr", ":9090", "Address to expose Prometheus /metrics on")
	drainTimeout := flag.Duration("drain_timeout", 5*time.Second, "Grace period for in-flight requests during shutdown")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("weir: loading config: %v", err)
	}

	reg := metrics.New()

	var sink audit.Sink = audit.NoopSink{}
	if cfg.Audit.Enabled() {
		sink = audit.NewRedisSink(cfg.Audit.RedisAddr, cfg.Audit.QueueDepth, cfg.Audit.ListCap)
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var closers []func()

	for _, svcCfg := range cfg.Services {
		handler, closer, err := buildHandler(svcCfg, reg, sink)
		if err != nil {
			log.Fatalf("weir: service %s: %v", svcCfg.Name, err)
		}
		if closer != nil {
			closers = append(closers, closer)
		}

		for _, l := range svcCfg.Listeners {
			ln, uds, err := engine.Listen(l.Source)
			if err != nil {
				log.Fatalf("weir: service %s: listen: %v", svcCfg.Name, err)
			}
			listenerHandler := handler
			if uds {
				listenerHandler = engine.WithUDS(handler)
			}
			wg.Add(1)
			go func(svcName string, ln net.Listener, handler http.Handler) {
				defer wg.Done()
				fmt.Printf("weir: service %s listening on %s\n", svcName, ln.Addr())
				if err := engine.Serve(ctx, ln, handler, *drainTimeout); err != nil {
					log.Printf("weir: service %s: serve: %v", svcName, err)
				}
			}(svcCfg.Name, ln, listenerHandler)
		}
	}

	metricsServer := &http.Server{Addr: *metricsAddr, Handler: reg.Handler()}
	go func() {
		fmt.Printf("weir: metrics listening on %s\n", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("weir: metrics server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("weir: shutting down...")
	cancel()
	wg.Wait()

	for _, c := range closers {
		c()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *drainTimeout)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	fmt.Println("weir: stopped.")
}

// buildHandler assembles the http.Handler for one configured service: either
// a file-server adapter or a full phase-dispatcher Service.
func buildHandler(svcCfg config.ServiceConfig, reg *metrics.Registry, sink audit.Sink) (http.Handler, func(), error) {
	if svcCfg.IsFileServer {
		fs := proxy.NewFileServerService(svcCfg.Name, svcCfg.FileServerRoot)
		return engine.NewFileServerAdapter(fs), nil, nil
	}

	svc, err := proxy.NewService(svcCfg)
	if err != nil {
		return nil, nil, err
	}
	return engine.NewAdapterWithAudit(svc, reg, sink), svc.Close, nil
}
