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

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseService() ServiceConfig {
	return ServiceConfig{
		Name: "api",
		Listeners: []Listener{
			{Source: ListenerKind{Addr: "127.0.0.1:8080"}},
		},
		Upstreams: []UpstreamPeer{
			{Address: "127.0.0.1:9000", Scheme: SchemePlain, ALPN: ALPNH1},
		},
		UpstreamOptions: UpstreamOptions{
			Selection: SelectionRoundRobin,
			Selector:  SelectorNull,
			Health:    HealthNone,
			Discovery: DiscoveryStatic,
		},
	}
}

func TestServiceConfig_ValidBaseline(t *testing.T) {
	svc := baseService()
	require.NoError(t, svc.Validate())
}

func TestServiceConfig_RequiresListener(t *testing.T) {
	svc := baseService()
	svc.Listeners = nil
	require.Error(t, svc.Validate())
}

func TestServiceConfig_OfferH2RequiresTLS(t *testing.T) {
	svc := baseService()
	svc.Listeners = []Listener{{Source: ListenerKind{Addr: "127.0.0.1:8080", OfferH2: true}}}
	err := svc.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "offer_h2 requires tls")
}

func TestServiceConfig_OfferH2WithTLSIsValid(t *testing.T) {
	svc := baseService()
	svc.Listeners = []Listener{{Source: ListenerKind{
		Addr:    "127.0.0.1:8080",
		OfferH2: true,
		TLS:     &TLSConfig{CertPath: "cert.pem", KeyPath: "key.pem"},
	}}}
	require.NoError(t, svc.Validate())
}

func TestUpstreamPeer_H2RequiresSNI(t *testing.T) {
	svc := baseService()
	svc.Upstreams = []UpstreamPeer{{Address: "127.0.0.1:9000", Scheme: SchemeTLS, ALPN: ALPNH2}}
	err := svc.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires sni")

	svc.Upstreams[0].SNI = "upstream.example.com"
	require.NoError(t, svc.Validate())
}

func TestUpstreamOptions_HashSelectionRequiresSelector(t *testing.T) {
	svc := baseService()
	svc.UpstreamOptions.Selection = SelectionFNV
	svc.UpstreamOptions.Selector = SelectorNull
	err := svc.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires a non-null selector")

	svc.UpstreamOptions.Selector = SelectorURIPath
	require.NoError(t, svc.Validate())
}

func TestBucketConfig_RefillQtyBoundedByMax(t *testing.T) {
	b := BucketConfig{MaxTokensPerBucket: 3, RefillIntervalMillis: 10, RefillQty: 4}
	require.Error(t, b.validate())
}

func TestRateRule_SingleRequiresURIGroupKind(t *testing.T) {
	r := RateRule{
		Shape:   "single",
		Kind:    RuleMultiSourceIP,
		Pattern: "/api/.*",
		Bucket:  BucketConfig{MaxTokensPerBucket: 1, RefillIntervalMillis: 1, RefillQty: 1},
	}
	require.Error(t, r.validate())
}

func TestRateRule_MultiURIRequiresPattern(t *testing.T) {
	r := RateRule{
		Shape:  "multi",
		Kind:   RuleMultiURI,
		Bucket: BucketConfig{MaxTokensPerBucket: 1, RefillIntervalMillis: 1, RefillQty: 1},
	}
	require.Error(t, r.validate())
}

func TestFileServerService_DoesNotRequireUpstreams(t *testing.T) {
	svc := ServiceConfig{
		Name:           "static",
		Listeners:      []Listener{{Source: ListenerKind{Addr: "127.0.0.1:8081"}}},
		IsFileServer:   true,
		FileServerRoot: "/var/www",
	}
	require.NoError(t, svc.Validate())
}

func TestConfig_RejectsDuplicateServiceNames(t *testing.T) {
	cfg := Config{Services: []ServiceConfig{baseService(), baseService()}}
	require.Error(t, cfg.Validate())
}

func TestAuditConfig_EnabledOnlyWithRedisAddr(t *testing.T) {
	require.False(t, AuditConfig{}.Enabled())
	require.True(t, AuditConfig{RedisAddr: "127.0.0.1:6379"}.Enabled())
}

func TestParse_ExampleDocument(t *testing.T) {
	raw := []byte(`
threads_per_service: 4
services:
  - name: api
    listeners:
      - source:
          addr: "127.0.0.1:8080"
    upstreams:
      - address: "127.0.0.1:9000"
        scheme: plain
        alpn: h1
    upstream_options:
      selection: round_robin
      selector: "null"
      health: none
      discovery: static
`)
	cfg, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, cfg.Services, 1)
	require.Equal(t, "api", cfg.Services[0].Name)
}
