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

package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RegistersWithoutPanicking(t *testing.T) {
	require.NotPanics(t, func() {
		New()
	})
}

func TestRegistry_CountersIncrementAndAreServed(t *testing.T) {
	r := New()
	r.RequestsTotal.WithLabelValues("api").Inc()
	r.RequestsTotal.WithLabelValues("api").Inc()
	r.PhaseErrorsTotal.WithLabelValues("api", "request_filter").Inc()
	r.RateLimitDeclinedTotal.WithLabelValues("api", "multi").Inc()
	r.BackendSelectedTotal.WithLabelValues("api", "127.0.0.1:9000").Inc()
	r.BucketCacheSize.WithLabelValues("api", "multi").Set(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "weir_requests_total")
	require.Contains(t, body, `service="api"`)
	require.Contains(t, body, "weir_bucket_cache_size")
}

func TestNew_IndependentRegistriesDoNotCollide(t *testing.T) {
	a := New()
	b := New()
	a.RequestsTotal.WithLabelValues("svc").Inc()
	b.RequestsTotal.WithLabelValues("svc").Inc()
	b.RequestsTotal.WithLabelValues("svc").Inc()

	recA := httptest.NewRecorder()
	a.Handler().ServeHTTP(recA, httptest.NewRequest("GET", "/metrics", nil))
	recB := httptest.NewRecorder()
	b.Handler().ServeHTTP(recB, httptest.NewRequest("GET", "/metrics", nil))

	require.Contains(t, recA.Body.String(), "weir_requests_total{service=\"svc\"} 1")
	require.Contains(t, recB.Body.String(), "weir_requests_total{service=\"svc\"} 2")
}
