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

package proxy

import (
	"errors"
	"net/http"
)

// ErrFileServerNoPeer is returned by any attempt to reach the upstream_peer
// phase of a FileServerService: a file-server service terminates entirely
// in request_filter and never selects a backend.
var ErrFileServerNoPeer = errors.New("proxy: upstream_peer is unreachable for a file-server service")

// FileServerService shares the listener-attachment path with Service but
// terminates the request in request_filter by delegating to an external
// static-file handler. No balancer, selector or rate limiter applies.
type FileServerService struct {
	Name    string
	Handler http.Handler
}

// NewFileServerService builds a file-server service rooted at root.
func NewFileServerService(name, root string) *FileServerService {
	return &FileServerService{Name: name, Handler: http.FileServer(http.Dir(root))}
}

// RequestFilterPhase always completes the request by delegating to the
// static-file handler.
func (s *FileServerService) RequestFilterPhase(w http.ResponseWriter, r *http.Request) (handled bool, err error) {
	s.Handler.ServeHTTP(w, r)
	return true, nil
}

// UpstreamPeerPhase is unreachable: the engine must never call it for a
// file-server service, since request_filter always completes the request.
func (s *FileServerService) UpstreamPeerPhase() error {
	return ErrFileServerNoPeer
}
