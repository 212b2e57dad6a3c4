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

// This file documents the YAML document shape Load/Parse expect. It has no
// executable content; see testdata/example.yaml for a worked example.
//
//	threads_per_service: 8
//	services:
//	  - name: api
//	    listeners:
//	      - source:
//	          addr: "127.0.0.1:8080"
//	          tls:
//	            cert_path: "/etc/weir/cert.pem"
//	            key_path: "/etc/weir/key.pem"
//	          offer_h2: true
//	    upstreams:
//	      - address: "127.0.0.1:9000"
//	        scheme: plain
//	        alpn: h1
//	    upstream_options:
//	      selection: round_robin
//	      selector: "null"
//	      health: none
//	      discovery: static
//	    path_control:
//	      request_filters:
//	        - kind: block-cidr-range
//	          addrs: "10.0.0.0/8, 2001:db8::/32"
//	      upstream_request_filters:
//	        - kind: remove-header-key-regex
//	          pattern: ".*(secret|SECRET).*"
//	        - kind: upsert-header
//	          key: x-proxy-friend
//	          value: river
//	      upstream_response_filters: []
//	    rate_limiting:
//	      rules:
//	        - shape: multi
//	          kind: source-ip
//	          bucket:
//	            max_tokens_per_bucket: 3
//	            refill_interval_millis: 10
//	            refill_qty: 1
//	            max_buckets: 128
package config
