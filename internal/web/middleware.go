// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"regform-scan/internal/observability"
	"regform-scan/internal/resilience"
)

// requestLogger records one operation per request through the observer
func requestLogger(obs *observability.StandardObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			obs.LogOperation(observability.OperationRecord{
				Component:  "web",
				Operation:  r.Method + " " + r.URL.Path,
				PassID:     middleware.GetReqID(r.Context()),
				DurationMs: time.Since(start).Milliseconds(),
				Success:    sw.status < http.StatusInternalServerError,
				Metadata:   map[string]interface{}{"status": sw.status},
			})
		})
	}
}

// recoverer turns a handler panic into a structured internal error
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				writeError(w, http.StatusInternalServerError, "internal", fmt.Sprintf("request failed: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// statusFor maps a classified error onto an HTTP status
func statusFor(ce *resilience.ClassifiedError) int {
	switch ce.Type {
	case resilience.ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case resilience.ErrorTypeResourceNotFound:
		return http.StatusNotFound
	case resilience.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case resilience.ErrorTypeUnavailable, resilience.ErrorTypeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
