package models

import (
	"context"
	"strings"

	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	iutil "github.com/go-sif/segments/internal/util"
)

// Names of the columns added by ToFrame
const (
	ModelIDColumn  = "Model ID"
	ErrorsColumn   = "Errors"
	WarningsColumn = "Warnings"
)

// makeResultKeys generates one fresh hidden Key per row
type makeResultKeys struct{}

func (t *makeResultKeys) ProcessPartition(ctx context.Context, p *segments.Partition) error {
	for i := 0; i < p.Len; i++ {
		k, err := segments.MakeHiddenKey()
		if err != nil {
			return err
		}
		p.Out[0].AddStr(string(k))
	}
	return nil
}

// toFrame looks up the Record behind every result Key, producing model, error and warning columns
type toFrame struct {
	store segments.Store
}

func (t *toFrame) ProcessPartition(ctx context.Context, p *segments.Partition) error {
	c := p.Chunks[0]
	for i := 0; i < c.Len(); i++ {
		result, err := lookupRecord(ctx, t.store, segments.Key(c.AtStr(i)))
		if err != nil {
			return err
		}
		if result == nil {
			for _, nc := range p.Out {
				nc.AddNA()
			}
			continue
		}
		if result.model != "" {
			p.Out[0].AddStr(string(result.model))
		} else {
			p.Out[0].AddNA()
		}
		addJoined(p.Out[1], result.errors)
		addJoined(p.Out[2], result.warnings)
	}
	return nil
}

func addJoined(nc segments.ChunkBuilder, lines []string) {
	if lines == nil {
		nc.AddNA()
		return
	}
	nc.AddStr(strings.Join(lines, "\n"))
}

// lookupRecord fetches a Record, returning nil if the Key is absent or holds something else
func lookupRecord(ctx context.Context, store segments.Store, key segments.Key) (*Record, error) {
	v, err := store.Get(ctx, key)
	if err != nil {
		if errors.IsMissingKey(err) {
			return nil, nil
		}
		return nil, err
	}
	result, ok := v.(*Record)
	if !ok {
		return nil, nil
	}
	return result, nil
}

// cleanUpResults removes the Record behind every result Key, then the result Keys themselves
type cleanUpResults struct {
	store       segments.Store
	concurrency int64
}

func (t *cleanUpResults) ProcessPartition(ctx context.Context, p *segments.Partition) error {
	c := p.Chunks[0]
	fs := iutil.NewFutures(t.concurrency)
	for i := 0; i < c.Len(); i++ {
		key := segments.Key(c.AtStr(i))
		fs.Add(ctx, func(ctx context.Context) error {
			return t.store.Remove(ctx, key)
		})
	}
	return fs.BlockForPending()
}

func (t *cleanUpResults) AfterAll(ctx context.Context, inputs []segments.Column) error {
	return t.store.Remove(ctx, inputs[0].Key())
}
