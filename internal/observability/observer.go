// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// StandardObserver records timed pipeline operations as JSON lines
type StandardObserver struct {
	level         ObservabilityLevel
	writer        io.Writer
	mu            sync.Mutex
	seq           atomic.Int64
	DebugObserver *DebugObserver // Reference to debug observer when in debug mode
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	if writer == nil {
		writer = io.Discard
	}
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// New builds the observer for a run: a debug observer with step tracing when
// debug is set, otherwise a metrics observer (or a silent one when !metrics)
func New(writer io.Writer, metrics, debug bool) *StandardObserver {
	if debug {
		d := NewDebugObserver(writer)
		d.StandardObserver.DebugObserver = d
		return d.StandardObserver
	}
	if metrics {
		return NewStandardObserver(ObservabilityMetrics, writer)
	}
	return NewStandardObserver(ObservabilityOff, writer)
}

// Level returns the observer's level
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// NextPassID returns a process-unique identifier for a detection pass
func (o *StandardObserver) NextPassID() string {
	if o == nil {
		return ""
	}
	return fmt.Sprintf("pass-%s-%d", time.Now().Format("20060102-150405"), o.seq.Add(1))
}

// StartTiming returns a function to complete timing. A nil observer yields a no-op.
func (o *StandardObserver) StartTiming(component, operation, target string) func(success bool, metadata map[string]interface{}) {
	if o == nil || o.level == ObservabilityOff {
		return func(bool, map[string]interface{}) {}
	}
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(OperationRecord{
			Component:  component,
			Operation:  operation,
			Target:     target,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// StartStep opens a debug step when step tracing is enabled
func (o *StandardObserver) StartStep(component, step, target string) func(success bool, details string) {
	if o == nil || o.DebugObserver == nil {
		return func(bool, string) {}
	}
	return o.DebugObserver.StartStep(component, step, target)
}

// LogDetail forwards a detail line to the debug observer, if any
func (o *StandardObserver) LogDetail(component, detail string) {
	if o == nil || o.DebugObserver == nil {
		return
	}
	o.DebugObserver.LogDetail(component, detail)
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data OperationRecord) {
	if o == nil || o.level == ObservabilityOff {
		return
	}
	if data.PassID == "" {
		data.PassID = "op-" + time.Now().Format("20060102-150405")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = json.NewEncoder(o.writer).Encode(data)
}

// OperationRecord is one timed operation of a detection pass
type OperationRecord struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	PassID     string                 `json:"pass_id"`
	Target     string                 `json:"target,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	FieldCount int                    `json:"field_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
