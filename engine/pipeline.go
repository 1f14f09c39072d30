package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/repair"
	"github.com/c360studio/metacast/report"
	"github.com/c360studio/metacast/validate"
)

// ItemResult is the complete outcome of processing one item: resolution,
// validation, recovery, and the final report.
type ItemResult struct {
	ItemID     string           `json:"item_id"`
	Resolution *Resolution      `json:"resolution,omitempty"`
	Validation *validate.Result `json:"validation,omitempty"`
	Recovery   *repair.Outcome  `json:"recovery,omitempty"`
	Report     *report.Report   `json:"report,omitempty"`

	// Err is set when the item aborted (corrupt item configuration,
	// cancellation). Per-item failures never abort the batch.
	Err error `json:"-"`
}

// Pipeline runs the full per-item flow: resolve, validate, recover, validate
// again, report.
type Pipeline struct {
	engine    *Engine
	validator *validate.Validator
	recovery  *repair.Manager
	logger    *slog.Logger
}

// NewPipeline composes the per-item stages.
func NewPipeline(e *Engine, v *validate.Validator, r *repair.Manager, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{engine: e, validator: v, recovery: r, logger: logger}
}

// Engine returns the pipeline's resolution engine.
func (p *Pipeline) Engine() *Engine {
	return p.engine
}

// Run processes one item. attrs is the item's sparse source record; cfgCtx
// selects the configuration tiers that apply. The record is resolved once,
// repaired once, then frozen by report generation.
func (p *Pipeline) Run(ctx context.Context, itemID string, attrs map[string]string, cfgCtx config.Context) *ItemResult {
	result := &ItemResult{ItemID: itemID}

	rec := record.New(attrs)

	resolution, err := p.engine.Resolve(ctx, rec, cfgCtx)
	if err != nil {
		result.Err = fmt.Errorf("resolve item %s: %w", itemID, err)
		return result
	}
	result.Resolution = resolution

	validation := p.validator.Validate(rec, p.engine.Schema())
	result.Validation = validation

	if !validation.Valid {
		recovery, rerr := p.recovery.Recover(rec, validation, &repair.Env{
			Resolver: p.engine.resolver,
			Context:  cfgCtx,
		})
		if rerr != nil {
			result.Err = fmt.Errorf("recover item %s: %w", itemID, rerr)
			return result
		}
		result.Recovery = recovery

		// Repairs feed back into the resolved record, so the final
		// validation reflects them.
		result.Validation = p.validator.Validate(rec, p.engine.Schema())
	}

	result.Report = report.Generate(itemID, rec, p.engine.Schema(), p.engine.Registry())
	return result
}
