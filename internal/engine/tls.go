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
	"crypto/tls"
	"net"

	"weir/internal/config"
)

func loadCertificate(t *config.TLSConfig) (tls.Certificate, error) {
	return tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
}

func tlsListen(addr string, cert tls.Certificate, offerH2 bool) (net.Listener, error) {
	nextProtos := []string{"http/1.1"}
	if offerH2 {
		nextProtos = []string{"h2", "http/1.1"}
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   nextProtos,
	}
	return tls.Listen("tcp", addr, cfg)
}
