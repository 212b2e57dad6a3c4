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

package engine

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"weir/internal/config"
	"weir/internal/metrics"
	"weir/internal/proxy"
)

func upstreamPeer(t *testing.T, srv *httptest.Server) config.UpstreamPeer {
	t.Helper()
	addr := strings.TrimPrefix(srv.URL, "http://")
	return config.UpstreamPeer{Address: addr, Scheme: config.SchemePlain, ALPN: config.ALPNH1}
}

func TestAdapter_ForwardsToSelectedBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-from-backend", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer backend.Close()

	cfg := config.ServiceConfig{
		Name:      "api",
		Upstreams: []config.UpstreamPeer{upstreamPeer(t, backend)},
		UpstreamOptions: config.UpstreamOptions{
			Selection: config.SelectionRoundRobin,
			Selector:  config.SelectorNull,
		},
	}
	svc, err := proxy.NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	adapter := NewAdapter(svc, metrics.New())

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "yes", rec.Header().Get("x-from-backend"))
	require.Equal(t, "ok", rec.Body.String())
}

func TestAdapter_RequestFilterShortCircuitsBeforeForwarding(t *testing.T) {
	var backendHit bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendHit = true
	}))
	defer backend.Close()

	cfg := config.ServiceConfig{
		Name:      "api",
		Upstreams: []config.UpstreamPeer{upstreamPeer(t, backend)},
		UpstreamOptions: config.UpstreamOptions{
			Selection: config.SelectionRoundRobin,
			Selector:  config.SelectorNull,
		},
		PathControl: config.PathControl{
			RequestFilters: []config.FilterSetting{
				{"kind": "block-cidr-range", "addrs": "203.0.113.0/24"},
			},
		},
	}
	svc, err := proxy.NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	adapter := NewAdapter(svc, metrics.New())

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, backendHit)
}

func TestAdapter_NoBackendReturns502(t *testing.T) {
	cfg := config.ServiceConfig{
		Name: "api",
		UpstreamOptions: config.UpstreamOptions{
			Selection: config.SelectionRoundRobin,
			Selector:  config.SelectorNull,
		},
	}
	svc, err := proxy.NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	adapter := NewAdapter(svc, metrics.New())
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWithUDS_MarksContextAndCidrFilterLetsItThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	cfg := config.ServiceConfig{
		Name:      "api",
		Upstreams: []config.UpstreamPeer{upstreamPeer(t, backend)},
		UpstreamOptions: config.UpstreamOptions{
			Selection: config.SelectionRoundRobin,
			Selector:  config.SelectorNull,
		},
		PathControl: config.PathControl{
			RequestFilters: []config.FilterSetting{
				{"kind": "block-cidr-range", "addrs": "10.0.0.0/8"},
			},
		},
	}
	svc, err := proxy.NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	adapter := WithUDS(NewAdapter(svc, metrics.New()))

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.RemoteAddr = "@" // what a Unix socket peer address looks like
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdapter_MissingClientIPWithoutUDSIsBlocked(t *testing.T) {
	cfg := config.ServiceConfig{
		Name: "api",
		Upstreams: []config.UpstreamPeer{
			{Address: "127.0.0.1:1", Scheme: config.SchemePlain, ALPN: config.ALPNH1},
		},
		UpstreamOptions: config.UpstreamOptions{
			Selection: config.SelectionRoundRobin,
			Selector:  config.SelectorNull,
		},
		PathControl: config.PathControl{
			RequestFilters: []config.FilterSetting{
				{"kind": "block-cidr-range", "addrs": "10.0.0.0/8"},
			},
		},
	}
	svc, err := proxy.NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	adapter := NewAdapter(svc, metrics.New())
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.RemoteAddr = "@" // malformed address on a non-UDS listener: no IsUDS marker set
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFileServerAdapter_ServesFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o644))

	fs := proxy.NewFileServerService("static", dir)
	adapter := NewFileServerAdapter(fs)

	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	rec := httptest.NewRecorder()
	adapter.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hi", rec.Body.String())
}

func TestListen_TCPAndUDS(t *testing.T) {
	ln, uds, err := Listen(config.ListenerKind{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.False(t, uds)
	_ = ln.Close()

	sockPath := filepath.Join(t.TempDir(), "weir.sock")
	ln2, uds2, err := Listen(config.ListenerKind{Path: sockPath})
	require.NoError(t, err)
	require.True(t, uds2)
	_ = ln2.Close()
}
