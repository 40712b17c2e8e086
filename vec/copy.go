package vec

import (
	"context"
	"fmt"

	"github.com/go-sif/segments"
)

// CopyTask copies every input Chunk into the output ChunkBuilder at the same position
type CopyTask struct{}

// ProcessPartition copies the rows of each input Chunk
func (t *CopyTask) ProcessPartition(ctx context.Context, p *segments.Partition) error {
	if len(p.Chunks) != len(p.Out) {
		return fmt.Errorf("CopyTask requires one output per input, got %d inputs and %d outputs", len(p.Chunks), len(p.Out))
	}
	for i, c := range p.Chunks {
		for row := 0; row < c.Len(); row++ {
			if c.IsNA(row) {
				p.Out[i].AddNA()
			} else {
				p.Out[i].AddStr(c.AtStr(row))
			}
		}
	}
	return nil
}

// Copy produces an independent copy of a Column under a new Key, copying chunks in parallel
func Copy(ctx context.Context, exec segments.Executor, col segments.Column, key segments.Key) (segments.Column, error) {
	out, err := exec.Do(ctx, &CopyTask{}, &segments.Job{
		Inputs:     []segments.Column{col},
		NumOutputs: 1,
		OutputKeys: []segments.Key{key},
	})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}
