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

// mem-codes serves the in-memory one-time code ledger over HTTP, for
// development setups where the controller runs against a shared ledger.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/ticket721/t721controller/codes/httpapi"
	"github.com/ticket721/t721controller/codes/inmem"
)

func main() {
	addr := flag.String("addr", ":3721", "listen address")
	flag.Parse()

	server := httpapi.NewServer(inmem.NewLedger())

	slog.Info("serving in-memory code ledger", slog.String("addr", *addr))
	// nosemgrep: go.lang.security.audit.net.use-tls.use-tls
	if err := http.ListenAndServe(*addr, server); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
