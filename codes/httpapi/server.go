// Copyright 2025 Ticket721 SAS

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     https://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpapi serves a codes.Ledger over HTTP so off-core services
// (authorization backends issuing signed codes) can check freshness before
// handing a code to a buyer.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ticket721/t721controller/codes"
	"github.com/ticket721/t721controller/ident"
)

// Server serves a [codes.Ledger] as a small JSON API.
type Server struct {
	ledger  codes.Ledger
	handler http.Handler
}

func NewServer(ledger codes.Ledger) *Server {
	mux := http.NewServeMux()
	mux.Handle("POST /consume", newConsumeHandler(ledger))
	mux.Handle("POST /release", newReleaseHandler(ledger))
	mux.Handle("POST /used", newUsedHandler(ledger))
	return &Server{
		ledger:  ledger,
		handler: mux,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type codeRequest struct {
	Scope string `json:"scope"`
	Code  uint64 `json:"code"`
}

func (cr *codeRequest) scope() (ident.Hash, error) {
	return ident.ParseHash(cr.Scope)
}

type usedResponse struct {
	Used bool `json:"used"`
}

func newConsumeHandler(ledger codes.Ledger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeCodeRequest(w, r)
		if !ok {
			return
		}
		scope, err := req.scope()
		if err != nil {
			writeJSONError(w, r, "invalid scope", http.StatusBadRequest)
			return
		}

		err = ledger.Consume(r.Context(), scope, req.Code)
		if errors.Is(err, codes.ErrAlreadyUsed) {
			writeJSONError(w, r, "code is consumed", http.StatusConflict)
			return
		}
		if err != nil {
			slog.ErrorContext(r.Context(), "consume failed", "error", err)
			writeJSONError(w, r, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, struct{}{}, http.StatusOK)
	})
}

func newReleaseHandler(ledger codes.Ledger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeCodeRequest(w, r)
		if !ok {
			return
		}
		scope, err := req.scope()
		if err != nil {
			writeJSONError(w, r, "invalid scope", http.StatusBadRequest)
			return
		}

		if err := ledger.Release(r.Context(), scope, req.Code); err != nil {
			slog.ErrorContext(r.Context(), "release failed", "error", err)
			writeJSONError(w, r, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, struct{}{}, http.StatusOK)
	})
}

func newUsedHandler(ledger codes.Ledger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeCodeRequest(w, r)
		if !ok {
			return
		}
		scope, err := req.scope()
		if err != nil {
			writeJSONError(w, r, "invalid scope", http.StatusBadRequest)
			return
		}

		used, err := ledger.Used(r.Context(), scope, req.Code)
		if err != nil {
			slog.ErrorContext(r.Context(), "used probe failed", "error", err)
			writeJSONError(w, r, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, r, usedResponse{Used: used}, http.StatusOK)
	})
}

func decodeCodeRequest(w http.ResponseWriter, r *http.Request) (codeRequest, bool) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, r, "invalid body", http.StatusBadRequest)
		return codeRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, data any, code int) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "error marshalling json response", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(r.Context(), "error writing json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, r *http.Request, msg string, code int) {
	type body struct {
		Error string `json:"error"`
	}
	writeJSON(w, r, body{Error: msg}, code)
}
