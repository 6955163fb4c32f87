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

// Package otelutil carries the process-wide tracer and small helpers to
// attach errors to spans.
package otelutil

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer is the global tracer used by the controller. It stays a noop until
// the host wires a tracer provider and calls Init.
var Tracer trace.Tracer = noop.Tracer{}

// Init points the global tracer at whatever provider the host registered
// with the otel SDK.
func Init() {
	Tracer = otel.Tracer("github.com/ticket721/t721controller")
}

// RecordError attaches an error to a span and returns it.
func RecordError(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	return err
}

// Error creates an error, attaches it to the span, and returns it.
func Error(span trace.Span, message string) error {
	return RecordError(span, errors.New(message))
}

// Errorf creates an error, attaches it to the span, and returns it.
func Errorf(span trace.Span, format string, a ...any) error {
	return RecordError(span, fmt.Errorf(format, a...))
}
