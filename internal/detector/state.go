// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// PassState is a stage of the detection pass state machine
type PassState string

const (
	StateIdle             PassState = "idle"
	StateBuildingControls PassState = "building_controls"
	StateSegmenting       PassState = "segmenting"
	StateClassifying      PassState = "classifying"
	StateSummarizing      PassState = "summarizing"
	StateReady            PassState = "ready"
	StateNeedsImprovement PassState = "needs_improvement"
)

// next lists the only transitions a pass may take
var next = map[PassState]PassState{
	StateIdle:             StateBuildingControls,
	StateBuildingControls: StateSegmenting,
	StateSegmenting:       StateClassifying,
	StateClassifying:      StateSummarizing,
}

// Terminal reports whether the state ends a pass
func (s PassState) Terminal() bool {
	return s == StateReady || s == StateNeedsImprovement
}

// Advance returns the state following s. Summarizing resolves to Ready or
// NeedsImprovement depending on the readiness flag; terminal states stay put.
func (s PassState) Advance(ready bool) PassState {
	if s == StateSummarizing {
		if ready {
			return StateReady
		}
		return StateNeedsImprovement
	}
	if n, ok := next[s]; ok {
		return n
	}
	return s
}
