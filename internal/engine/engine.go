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

// Package engine hosts a proxy.Service or proxy.FileServerService behind an
// actual net/http listener, driving the phase order described in
// internal/proxy around a real forwarded request.
package engine

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/netip"
	"net/url"
	"time"

	"weir/internal/audit"
	"weir/internal/config"
	"weir/internal/metrics"
	"weir/internal/proxy"
)

// Adapter hosts one Service behind net/http, wiring the phase order around
// httputil.ReverseProxy. Construct one Adapter per configured service.
type Adapter struct {
	service *proxy.Service
	metrics *metrics.Registry
	audit   audit.Sink
}

// NewAdapter builds an Adapter for a proxy service with no audit sink.
func NewAdapter(svc *proxy.Service, reg *metrics.Registry) *Adapter {
	return NewAdapterWithAudit(svc, reg, audit.NoopSink{})
}

// NewAdapterWithAudit builds an Adapter that mirrors request_filter
// decisions (CIDR blocks, rate-limit declines) to sink on a best-effort
// basis.
func NewAdapterWithAudit(svc *proxy.Service, reg *metrics.Registry, sink audit.Sink) *Adapter {
	return &Adapter{service: svc, metrics: reg, audit: sink}
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.metrics.RequestsTotal.WithLabelValues(a.service.Name).Inc()

	ctx := proxy.NewRequestContext()
	ctx.IsUDS = isUDS(r.Context())
	ctx.ClientIP = clientIP(r)
	ctx.ClientAddr = clientAddr(r)

	handled, err := a.service.RequestFilterPhase(ctx, w, r)
	if err != nil {
		a.metrics.PhaseErrorsTotal.WithLabelValues(a.service.Name, "request_filter").Inc()
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	a.recordDecision(r, ctx, handled)
	a.reportCacheSizes()
	if handled {
		return
	}

	backend, err := a.service.UpstreamPeerPhase(ctx, r)
	if err != nil {
		a.metrics.PhaseErrorsTotal.WithLabelValues(a.service.Name, "upstream_peer").Inc()
		http.Error(w, "no backend available", http.StatusBadGateway)
		return
	}
	a.metrics.BackendSelectedTotal.WithLabelValues(a.service.Name, backend.Address).Inc()

	if err := a.service.UpstreamRequestFilterPhase(ctx, r); err != nil {
		a.metrics.PhaseErrorsTotal.WithLabelValues(a.service.Name, "upstream_request_filter").Inc()
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	target := backendURL(backend.Peer)
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = r.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			if err := a.service.UpstreamResponseFilterPhase(ctx, resp); err != nil {
				a.metrics.PhaseErrorsTotal.WithLabelValues(a.service.Name, "upstream_response_filter").Inc()
				return err
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			a.metrics.PhaseErrorsTotal.WithLabelValues(a.service.Name, "forward").Inc()
			http.Error(w, "upstream error", http.StatusBadGateway)
		},
	}
	rp.ServeHTTP(w, r)
}

func (a *Adapter) recordDecision(r *http.Request, ctx *proxy.RequestContext, declined bool) {
	outcome := "approved"
	if declined {
		outcome = "declined"
	}
	if ctx.DeclinedRuleKind != "" {
		a.metrics.RateLimitDeclinedTotal.WithLabelValues(a.service.Name, string(ctx.DeclinedRuleKind)).Inc()
	}
	a.audit.Record(audit.Decision{
		Service: a.service.Name,
		Rule:    "request_filter",
		Outcome: outcome,
		Key:     r.URL.Path,
		At:      time.Now(),
	})
}

// reportCacheSizes samples every Multi rate-limit rule's live bucket count
// into the bucket-cache-size gauge. Called once per request rather than off
// a timer, matching the cache's own no-background-worker design.
func (a *Adapter) reportCacheSizes() {
	for kind, n := range a.service.BucketCacheSizes() {
		a.metrics.BucketCacheSize.WithLabelValues(a.service.Name, string(kind)).Set(float64(n))
	}
}

func backendURL(peer config.UpstreamPeer) *url.URL {
	scheme := "http"
	if peer.Scheme == config.SchemeTLS {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: peer.Address}
}

func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// clientAddr parses the same host clientIP does, but as a netip.Addr: unlike
// net.ParseIP, netip.ParseAddr keeps a dotted-decimal IPv4 address ("Is4")
// distinct from its IPv4-mapped IPv6 text form ("Is4In6"), which is exactly
// the distinction the rate limiter's source-ip rule must not erase. The
// zero Addr (IsValid() false) means no IP socket, same convention as a nil
// ClientIP.
func clientAddr(r *http.Request) netip.Addr {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr
}

type udsContextKey struct{}

// WithUDS marks every request arriving through handler as having come in
// over a Unix domain socket listener, so phases that key on ClientIP (such
// as the CIDR filter) can tell "no IP socket, by design" apart from "address
// lookup failed".
func WithUDS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), udsContextKey{}, true)))
	})
}

func isUDS(ctx context.Context) bool {
	v, _ := ctx.Value(udsContextKey{}).(bool)
	return v
}

// FileServerAdapter hosts a proxy.FileServerService behind net/http.
type FileServerAdapter struct {
	service *proxy.FileServerService
}

func NewFileServerAdapter(svc *proxy.FileServerService) *FileServerAdapter {
	return &FileServerAdapter{service: svc}
}

func (a *FileServerAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, err := a.service.RequestFilterPhase(w, r); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Listen attaches a net.Listener for the given Listener configuration: TCP,
// TCP+TLS, or UDS, matching the three variants a ServiceConfig may declare.
// The returned bool reports whether the listener is a Unix domain socket.
func Listen(l config.ListenerKind) (net.Listener, bool, error) {
	if l.Path != "" {
		ln, err := net.Listen("unix", l.Path)
		return ln, true, err
	}
	if l.TLS != nil {
		cert, err := loadCertificate(l.TLS)
		if err != nil {
			return nil, false, err
		}
		ln, err := tlsListen(l.Addr, cert, l.OfferH2)
		return ln, false, err
	}
	ln, err := net.Listen("tcp", l.Addr)
	return ln, false, err
}

// Serve runs an http.Server over ln until ctx is cancelled, then drains it
// with a bounded shutdown timeout.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, drain time.Duration) error {
	srv := &http.Server{Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("engine: shutdown: %w", err)
		}
		return nil
	}
}
