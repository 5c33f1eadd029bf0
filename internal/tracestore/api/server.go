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

// Package api implements the public-facing HTTP server for the trace
// store demo. It accepts raw weighted updates, installs them into the
// right operator's trace store, and answers collection/difference/
// interesting-times queries.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tracestore/internal/tracestore/ingest"
	"tracestore/internal/tracestore/runtime"
	telemetry "tracestore/internal/tracestore/telemetry/trace"
	"tracestore/pkg/trace"
)

// Server handles the HTTP requests for the trace store service. It is
// configured with a Registry of operators.
type Server struct {
	registry *runtime.Registry
}

// NewServer creates and configures a new API server.
func NewServer(registry *runtime.Registry) *Server {
	return &Server{registry: registry}
}

// RegisterRoutes sets up the HTTP routes for the server on the given
// ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/install", s.handleInstall)
	mux.HandleFunc("/set-collection", s.handleSetCollection)
	mux.HandleFunc("/collection", s.handleCollection)
	mux.HandleFunc("/difference", s.handleDifference)
	mux.HandleFunc("/interesting-times", s.handleInterestingTimes)
}

type installRequest struct {
	Envelopes []ingest.Envelope `json:"envelopes"`
}

// handleInstall classifies a batch of raw envelopes and installs each
// resulting per-operator, per-time batch into that operator's trace
// store.
func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	batches, err := ingest.Classify(req.Envelopes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, b := range batches {
		store := s.registry.GetOrCreate(b.Operator)
		store.InstallDifferences(b.Time, b.Keys, b.Values)
		s.registry.MarkDirty(b.Operator)
		runtime.RecordInstall()
		telemetry.ObserveInstall(len(b.Values))
	}

	w.WriteHeader(http.StatusNoContent)
}

type setCollectionRequest struct {
	Operator   string               `json:"operator"`
	Key        string               `json:"key"`
	Time       int64                `json:"time"`
	Collection []trace.Pair[string] `json:"collection"`
}

func (s *Server) handleSetCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req setCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Operator == "" || req.Key == "" {
		http.Error(w, "operator and key are required", http.StatusBadRequest)
		return
	}

	store := s.registry.GetOrCreate(req.Operator)
	store.SetCollection(req.Key, trace.IntTime(req.Time), req.Collection)
	s.registry.MarkDirty(req.Operator)
	runtime.RecordSetCollection()
	telemetry.ObserveSetCollection()

	w.WriteHeader(http.StatusNoContent)
}

// handleCollection reconstructs the accumulated collection for a key at a
// time: GET /collection?operator=foo&key=bar&time=5
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	operator := r.URL.Query().Get("operator")
	key := r.URL.Query().Get("key")
	if operator == "" || key == "" {
		http.Error(w, "operator and key query params are required", http.StatusBadRequest)
		return
	}
	at, err := parseTime(r.URL.Query().Get("time"))
	if err != nil {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}

	store := s.registry.GetOrCreate(operator)
	var target []trace.Pair[string]
	store.GetCollection(key, at, &target)

	if telemetry.Enabled() {
		telemetry.ObserveChainLength(chainLength(store, key))
	}

	writeJSON(w, target)
}

// chainLength walks key's link chain and counts how many links GetCollection
// would have to traverse. Telemetry-only: callers should guard with
// telemetry.Enabled() since this repeats work GetCollection already did.
func chainLength(store *trace.Store[runtime.Key, trace.IntTime, runtime.Value], key string) int {
	n := 0
	it := store.Trace(key)
	for {
		if _, _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return n
}

// handleDifference returns the raw batch installed at exactly one time:
// GET /difference?operator=foo&key=bar&time=5
func (s *Server) handleDifference(w http.ResponseWriter, r *http.Request) {
	operator := r.URL.Query().Get("operator")
	key := r.URL.Query().Get("key")
	if operator == "" || key == "" {
		http.Error(w, "operator and key query params are required", http.StatusBadRequest)
		return
	}
	at, err := parseTime(r.URL.Query().Get("time"))
	if err != nil {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}

	store := s.registry.GetOrCreate(operator)
	writeJSON(w, store.GetDifference(key, at))
}

// handleInterestingTimes computes the times key's accumulation could
// change relative to index: GET /interesting-times?operator=foo&key=bar&index=5
func (s *Server) handleInterestingTimes(w http.ResponseWriter, r *http.Request) {
	operator := r.URL.Query().Get("operator")
	key := r.URL.Query().Get("key")
	if operator == "" || key == "" {
		http.Error(w, "operator and key query params are required", http.StatusBadRequest)
		return
	}
	index, err := parseTime(r.URL.Query().Get("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}

	store := s.registry.GetOrCreate(operator)
	result := store.InterestingTimes(key, index, nil)
	writeJSON(w, result)
}

// ListenAndServe starts the HTTP server on the specified address.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}

func parseTime(s string) (trace.IntTime, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return trace.IntTime(n), err
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
