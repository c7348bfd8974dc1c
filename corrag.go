// Package corrag provides a top-level convenience entry point for the
// corrective retrieval control loop.
//
// Usage:
//
//	import "github.com/BaSui01/corrag"
//
//	ev := corrag.EvaluateGate(results, nil)
//	if ev.GatePassed {
//	    return results
//	}
//	orch, err := corrag.New(corrag.DefaultGateConfig(), logger)
//
// This is a thin wrapper around [corrective]; both produce identical results.
// Use this package when you prefer the shorter import path.
package corrag

import (
	"go.uber.org/zap"

	"github.com/BaSui01/corrag/corrective"
	"github.com/BaSui01/corrag/gate"
	"github.com/BaSui01/corrag/types"
)

// SearchResult is a single retrieved document with its score fields.
type SearchResult = types.SearchResult

// Evaluation is the outcome of an evidence gate check.
type Evaluation = gate.Evaluation

// EvidenceLevel classifies how well retrieved evidence supports a query.
type EvidenceLevel = gate.EvidenceLevel

// Evidence levels, strongest first.
const (
	EvidenceStrong       = gate.EvidenceStrong
	EvidenceModerate     = gate.EvidenceModerate
	EvidenceLow          = gate.EvidenceLow
	EvidenceInsufficient = gate.EvidenceInsufficient
)

// Capabilities holds the external callbacks the correction loop can invoke.
type Capabilities = corrective.Capabilities

// Orchestrator runs the corrective retrieval loop.
type Orchestrator = corrective.Orchestrator

// AuditTrail records every decision a correction run made.
type AuditTrail = corrective.AuditTrail

// New creates an [Orchestrator] with default resilience settings.
// Use [corrective.NewOrchestrator] directly for a custom executor.
func New(cfg gate.GateConfig, logger *zap.Logger) (*Orchestrator, error) {
	return corrective.NewOrchestrator(cfg, nil, logger)
}

// Re-export the one-shot helpers so callers never need to import corrective/.

// EvaluateGate runs a single evidence gate check with default thresholds.
var EvaluateGate = corrective.EvaluateGate

// GetRetryStrategy returns the first suggested corrective strategy, if any.
var GetRetryStrategy = corrective.GetRetryStrategy

// DefaultGateConfig returns the default gate thresholds and strategy switches.
var DefaultGateConfig = gate.DefaultGateConfig
