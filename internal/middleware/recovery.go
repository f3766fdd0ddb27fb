// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"masterannonce/internal/apierror"
)

// Recoverer turns a panic in a downstream handler into the JSON 500 body.
// The panic is logged with its stack and recorded on the request span, so
// it must run inside Trace and Logger to be visible to both.
// http.ErrAbortHandler is re-raised untouched.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			stack := string(debug.Stack())

			span := trace.SpanFromContext(r.Context())
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")

			slog.ErrorContext(r.Context(), "panic recovered",
				"error", err,
				"method", r.Method,
				"route", routePattern(r),
				"stack", stack,
			)
			apierror.Internal(w)
		}()

		next.ServeHTTP(w, r)
	})
}
