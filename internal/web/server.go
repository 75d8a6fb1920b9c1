// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"regform-scan/internal/config"
	"regform-scan/internal/core"
	"regform-scan/internal/detector"
	"regform-scan/internal/dom"
	"regform-scan/internal/formatters"
	"regform-scan/internal/observability"
	"regform-scan/internal/readiness"
	"regform-scan/internal/resilience"
	"regform-scan/internal/version"

	// Import formatters to register them
	_ "regform-scan/internal/formatters/json"
	_ "regform-scan/internal/formatters/text"
	_ "regform-scan/internal/formatters/yaml"
)

// portAttempts is how many consecutive ports Start tries
const portAttempts = 10

// Server exposes the scanner over HTTP
type Server struct {
	router    chi.Router
	scanner   *core.Scanner
	cfg       *config.Config
	obs       *observability.StandardObserver
	evaluator *readiness.Evaluator
	server    *http.Server
}

// ErrorBody is the structured error payload
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure kind and a human-readable message
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewServer creates a server around scanner. A nil scanner gets one built
// from cfg.
func NewServer(cfg *config.Config, scanner *core.Scanner, obs *observability.StandardObserver) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if scanner == nil {
		scanner = core.NewScanner(core.BuildStore(cfg), nil, core.BuildScannerOptions(cfg, obs, nil))
	}
	s := &Server{
		scanner:   scanner,
		cfg:       cfg,
		obs:       obs,
		evaluator: readiness.NewEvaluator(cfg.Readiness),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.obs))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "invalid_input", r.Method+" not allowed on "+r.URL.Path)
	})

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/scan", s.handleScan)
		r.Get("/summary", s.handleSummary)
		r.Get("/report", s.handleReport)
		r.Get("/stats", s.handleStats)
	})
	s.router = r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on the configured port, moving up to the next free one when
// it is taken, and serves until Stop
func (s *Server) Start() error {
	base := s.cfg.Web.Port
	if base == 0 {
		base = 8080
	}

	var lastError error
	for i := 0; i < portAttempts; i++ {
		port := strconv.Itoa(base + i)
		listener, err := net.Listen("tcp", ":"+port)
		if err != nil {
			lastError = err
			if i == 0 {
				fmt.Printf("Port %s is not available, trying alternative ports...\n", port)
			}
			continue
		}

		s.server = s.createSecureServer(port)
		fmt.Printf("regform-scan API listening on http://localhost:%s\n", port)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server on port %s failed: %w", port, err)
		}
		return nil
	}

	return fmt.Errorf("could not find an available port in range %d-%d: %w", base, base+portAttempts-1, lastError)
}

// Stop drains in-flight requests and closes the listener
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// createSecureServer creates an HTTP server with timeouts on every phase
func (s *Server) createSecureServer(port string) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    version.Program,
		"version":    info.Version,
		"build_info": info,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formatters.GetSupportedFormats())
}

// handleScan runs a pass over the posted document. JSON bodies are host
// snapshots; anything else is parsed as HTML.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Web.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid_input",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.sendError(w, resilience.NewInvalidInputError("could not read request body", err))
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.sendError(w, resilience.NewInvalidInputError("request body is empty", nil))
		return
	}

	q := r.URL.Query()
	doc, err := decodeDocument(r.Header.Get("Content-Type"), data, q.Get("address"))
	if err != nil {
		s.sendError(w, resilience.NewInvalidInputError(fmt.Sprintf("could not decode document: %v", err), err))
		return
	}

	report := s.scanner.ScanRegion(r.Context(), doc, q.Get("region"))
	s.writeReport(w, r, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.scanner.LastSummary()
	if !ok {
		s.sendError(w, resilience.NewNotFoundError("no detection pass has completed"))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.scanner.LastReport()
	if report == nil {
		s.sendError(w, resilience.NewNotFoundError("no detection pass has completed"))
		return
	}
	s.writeReport(w, r, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scanner.Stats())
}

// writeReport renders report in the requested format (json by default)
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, report *detector.Report) {
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = "json"
	}
	if _, ok := formatters.Get(format); !ok {
		s.sendError(w, resilience.NewInvalidInputError(
			fmt.Sprintf("unsupported format %q (available: %s)", format, strings.Join(formatters.List(), ", ")), nil))
		return
	}

	verbose, _ := strconv.ParseBool(q.Get("verbose"))
	content, mimeType, _, err := formatters.ExportForWeb(format, report, formatters.FormatterOptions{
		ConfidenceLevel: core.ParseConfidenceLevels(q.Get("confidence")),
		Verbose:         verbose,
		NoColor:         true,
		Gates:           s.evaluator.Gates(&report.Summary),
	})
	if err != nil {
		s.sendError(w, err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, content)
}

// sendError writes err as a structured error with the status its kind maps to
func (s *Server) sendError(w http.ResponseWriter, err error) {
	ce := resilience.ClassifyError(err)
	s.obs.LogDetail("web", ce.Error())
	writeError(w, statusFor(ce), ce.Type.Kind(), ce.Error())
}

func decodeDocument(contentType string, data []byte, address string) (*dom.Document, error) {
	var (
		doc *dom.Document
		err error
	)
	if strings.Contains(strings.ToLower(contentType), "json") {
		doc, err = dom.DecodeSnapshot(bytes.NewReader(data))
	} else {
		doc, err = dom.ParseHTML(bytes.NewReader(data), address)
	}
	if err != nil {
		return nil, err
	}
	if address != "" {
		doc.Address = address
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}
