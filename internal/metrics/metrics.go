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

// Package metrics exposes the proxy's Prometheus surface. Metrics are
// registered against a local registry rather than the global default, so
// embedding this package never collides with a host process's own metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every counter/gauge the dispatcher reports against,
// plus the local prometheus.Registry they are bound to.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal          *prometheus.CounterVec
	PhaseErrorsTotal       *prometheus.CounterVec
	RateLimitDeclinedTotal *prometheus.CounterVec
	BackendSelectedTotal   *prometheus.CounterVec
	BucketCacheSize        *prometheus.GaugeVec
}

// New constructs and registers every metric against a fresh local registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weir_requests_total",
			Help: "Total downstream requests accepted by a service.",
		}, []string{"service"}),
		PhaseErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weir_phase_errors_total",
			Help: "Total phase errors surfaced to the engine, by phase.",
		}, []string{"service", "phase"}),
		RateLimitDeclinedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weir_rate_limit_declined_total",
			Help: "Total requests rejected with 429 by a rate-limit rule.",
		}, []string{"service", "rule_kind"}),
		BackendSelectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weir_backend_selected_total",
			Help: "Total times a backend was selected by the load balancer.",
		}, []string{"service", "backend"}),
		BucketCacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weir_bucket_cache_size",
			Help: "Approximate live bucket count in a Multi rate limiter's cache.",
		}, []string{"service", "rule_kind"}),
	}

	reg.MustRegister(
		r.RequestsTotal,
		r.PhaseErrorsTotal,
		r.RateLimitDeclinedTotal,
		r.BackendSelectedTotal,
		r.BucketCacheSize,
	)
	return r
}

// Handler returns the /metrics HTTP handler bound to this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
