package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/metacast/config"
)

// BatchResult is the outcome of one batch run.
type BatchResult struct {
	RunID string        `json:"run_id"`
	Items []*ItemResult `json:"items"`

	// Failed counts items that aborted. Individual failures never abort the
	// run.
	Failed int `json:"failed"`
}

// Batch resolves many items concurrently. Construct the pipeline over a
// configuration snapshot before starting: items must not observe a reload
// mid-run.
type Batch struct {
	pipeline  *Pipeline
	workers   int
	overrides map[string]any
	logger    *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithWorkers sets the number of items resolved concurrently.
func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithOverrides sets caller-supplied field overrides applied to every item.
func WithOverrides(overrides map[string]any) BatchOption {
	return func(b *Batch) {
		b.overrides = overrides
	}
}

// WithBatchLogger sets the batch logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// NewBatch creates a batch runner over a pipeline.
func NewBatch(p *Pipeline, opts ...BatchOption) *Batch {
	b := &Batch{
		pipeline: p,
		workers:  4,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run resolves every item record file under dir (*.yaml, recursively). Items
// are independent: failures are recorded per item and the run continues.
// Cancellation is at item granularity: an in-progress item either completes
// or is abandoned wholesale.
func (b *Batch) Run(ctx context.Context, dir string) (*BatchResult, error) {
	pattern := filepath.Join(dir, "**", "*.yaml")
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no item records under %s", dir)
	}

	result := &BatchResult{
		RunID: uuid.New().String(),
		Items: make([]*ItemResult, len(paths)),
	}
	b.logger.Info("Batch started", "run_id", result.RunID, "items", len(paths), "workers", b.workers)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result.Items[i] = b.runItem(ctx, paths[i])
			}
		}()
	}

dispatch:
	for i := range paths {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i, item := range result.Items {
		if item == nil {
			result.Items[i] = &ItemResult{
				ItemID: itemIDFromPath(paths[i]),
				Err:    ctx.Err(),
			}
		}
		if result.Items[i].Err != nil {
			result.Failed++
		}
	}

	b.logger.Info("Batch complete", "run_id", result.RunID, "items", len(paths), "failed", result.Failed)
	return result, nil
}

func (b *Batch) runItem(ctx context.Context, path string) *ItemResult {
	itemID := itemIDFromPath(path)

	attrs, err := loadItemRecord(path)
	if err != nil {
		b.logger.Warn("Item aborted", "item", itemID, "error", err)
		return &ItemResult{ItemID: itemID, Err: err}
	}

	cfgCtx := config.Context{
		ItemID:         itemID,
		GroupName:      attrs["imprint"],
		PublisherName:  attrs["publisher"],
		FieldOverrides: b.overrides,
	}

	result := b.pipeline.Run(ctx, itemID, attrs, cfgCtx)
	if result.Err != nil {
		b.logger.Warn("Item aborted", "item", itemID, "error", result.Err)
	}
	return result
}

func itemIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".yaml")
}

// loadItemRecord reads one item record file: a flat YAML map. Values are
// stringified so sparse numeric attributes behave like feed columns.
func loadItemRecord(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item record: %w", err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse item record %s: %w", path, err)
	}

	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		attrs[k] = config.Stringify(v)
	}
	return attrs, nil
}
