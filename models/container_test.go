package models

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/exec"
	"github.com/go-sif/segments/frame"
	"github.com/go-sif/segments/store/memory"
	"github.com/go-sif/segments/vec"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func createTestSegments(t *testing.T, n int, chunkSize int) *frame.Frame {
	regions := make([]string, n)
	products := make([]string, n)
	for i := 0; i < n; i++ {
		regions[i] = fmt.Sprintf("region-%d", i%7)
		products[i] = fmt.Sprintf("product-%d", i)
	}
	f, err := frame.New("input", []string{"region", "product"}, []segments.Column{
		vec.FromStrings("input-region", regions, chunkSize),
		vec.FromStrings("input-product", products, chunkSize),
	})
	require.Nil(t, err)
	return f
}

func createTestContainer(t *testing.T, n int, chunkSize int) (*Container, *memory.Store) {
	store := memory.New(nil)
	c, err := Make(context.Background(), store, exec.New(&exec.Options{Parallelism: 4}), "results", createTestSegments(t, n, chunkSize), nil)
	require.Nil(t, err)
	return c, store
}

// columnValues reads a Column into a slice, with nil for missing values
func columnValues(t *testing.T, f segments.Frame, name string) []interface{} {
	col, err := f.Column(name)
	require.Nil(t, err)
	res := make([]interface{}, col.Len())
	for i := int64(0); i < col.Len(); i++ {
		if col.IsNA(i) {
			continue
		}
		v, err := col.AtStr(i)
		require.Nil(t, err)
		res[i] = v
	}
	return res
}

func TestMakeAllocatesDistinctHiddenKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	// pre-existing entries, hidden and not
	existing := map[segments.Key]bool{}
	for i := 0; i < 20; i++ {
		k, err := segments.MakeHiddenKey()
		require.Nil(t, err)
		require.Nil(t, store.Put(ctx, k, i))
		existing[k] = true
	}
	require.Nil(t, store.Put(ctx, "other", "value"))
	existing["other"] = true

	c, err := Make(ctx, store, exec.New(nil), "results", createTestSegments(t, 100, 9), nil)
	require.Nil(t, err)
	require.Equal(t, int64(100), c.NumSegments())
	require.Equal(t, c.Segments().NumRows(), c.ResultKeys().Len())
	require.True(t, c.ResultKeys().Key().IsHidden())
	require.True(t, c.ResultKeys().Layout().Equals(c.Segments().Layout()))

	seen := map[string]bool{}
	for i := int64(0); i < c.NumSegments(); i++ {
		require.False(t, c.ResultKeys().IsNA(i))
		k, err := c.ResultKeys().AtStr(i)
		require.Nil(t, err)
		require.True(t, segments.Key(k).IsHidden())
		require.False(t, seen[k])
		require.False(t, existing[segments.Key(k)])
		seen[k] = true
		// slots start out empty
		_, err = store.Get(ctx, segments.Key(k))
		require.True(t, errors.IsMissingKey(err))
	}

	// only the container is visible
	keys, err := store.Keys(ctx, false)
	require.Nil(t, err)
	require.Equal(t, []segments.Key{"other", "results"}, keys)
	v, err := store.Get(ctx, "results")
	require.Nil(t, err)
	require.Equal(t, c, v)
}

func TestMakeCopiesSegments(t *testing.T) {
	input := createTestSegments(t, 10, 3)
	c, _ := createTestContainer(t, 10, 3)
	require.Equal(t, input.Names(), c.Segments().Names())
	require.True(t, c.Segments().Key().IsHidden())
	for i, col := range c.Segments().Columns() {
		require.NotEqual(t, input.Columns()[i].Key(), col.Key())
		require.True(t, col.Key().IsHidden())
		expected, _ := input.Columns()[i].(*vec.Column).Values()
		actual, _ := col.(*vec.Column).Values()
		require.Equal(t, expected, actual)
	}
}

func TestThreeSegmentScenario(t *testing.T) {
	ctx := context.Background()
	c, _ := createTestContainer(t, 3, 2)

	r, err := c.AddResult(ctx, 0, "model-a", []string{}, nil, []string{})
	require.Nil(t, err)
	require.Equal(t, segments.Key("model-a"), r.Model())
	require.Nil(t, r.Errors())
	require.Nil(t, r.Warnings())

	r, err = c.AddResult(ctx, 2, "", []string{"bad col"}, fmt.Errorf("boom"), []string{"w1", "w2"})
	require.Nil(t, err)
	require.Equal(t, []string{"bad col", "boom"}, r.Errors())

	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	require.Equal(t, []string{"region", "product", ModelIDColumn, ErrorsColumn, WarningsColumn}, f.Names())
	require.Equal(t, int64(3), f.NumRows())
	require.Equal(t, []interface{}{"product-0", "product-1", "product-2"}, columnValues(t, f, "product"))
	require.Equal(t, []interface{}{"model-a", nil, nil}, columnValues(t, f, ModelIDColumn))
	require.Equal(t, []interface{}{nil, nil, "bad col\nboom"}, columnValues(t, f, ErrorsColumn))
	require.Equal(t, []interface{}{nil, nil, "w1\nw2"}, columnValues(t, f, WarningsColumn))
}

func TestAddResultIsolatesRows(t *testing.T) {
	ctx := context.Background()
	c, _ := createTestContainer(t, 5, 2)
	_, err := c.AddResult(ctx, 3, "m3", nil, nil, []string{"careful"})
	require.Nil(t, err)
	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	require.Equal(t, []interface{}{nil, nil, nil, "m3", nil}, columnValues(t, f, ModelIDColumn))
	require.Equal(t, []interface{}{nil, nil, nil, nil, nil}, columnValues(t, f, ErrorsColumn))
	require.Equal(t, []interface{}{nil, nil, nil, "careful", nil}, columnValues(t, f, WarningsColumn))
}

func TestAddResultOverwrites(t *testing.T) {
	ctx := context.Background()
	c, _ := createTestContainer(t, 2, 2)
	first, err := c.AddResult(ctx, 1, "", nil, fmt.Errorf("failed"), nil)
	require.Nil(t, err)
	second, err := c.AddResult(ctx, 1, "m1", nil, nil, nil)
	require.Nil(t, err)
	require.Equal(t, first.Key(), second.Key())
	r, err := c.Result(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, second, r)
	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	require.Equal(t, []interface{}{nil, "m1"}, columnValues(t, f, ModelIDColumn))
	require.Equal(t, []interface{}{nil, nil}, columnValues(t, f, ErrorsColumn))
}

func TestAddResultOutOfRange(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 3, 2)
	before := store.Len()
	for _, idx := range []int64{-1, 3, 100} {
		_, err := c.AddResult(ctx, idx, "m", nil, nil, nil)
		require.NotNil(t, err)
		_, ok := err.(errors.RowOutOfRangeError)
		require.True(t, ok)
	}
	require.Equal(t, before, store.Len())
}

func TestResultMissing(t *testing.T) {
	ctx := context.Background()
	c, _ := createTestContainer(t, 3, 2)
	_, err := c.Result(ctx, 0)
	require.True(t, errors.IsMissingKey(err))
}

func TestToFrameTreatsMalformedRecordsAsMissing(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 3, 3)
	k, err := c.ResultKeys().AtStr(1)
	require.Nil(t, err)
	require.Nil(t, store.Put(ctx, segments.Key(k), "not a record"))
	_, err = c.AddResult(ctx, 2, "m2", nil, nil, nil)
	require.Nil(t, err)

	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	require.Equal(t, []interface{}{nil, nil, "m2"}, columnValues(t, f, ModelIDColumn))

	_, err = c.Result(ctx, 1)
	_, ok := err.(errors.UnexpectedValueError)
	require.True(t, ok)
}

func TestToFrameWithoutResults(t *testing.T) {
	c, _ := createTestContainer(t, 4, 3)
	f, err := c.ToFrame(context.Background())
	require.Nil(t, err)
	for _, name := range []string{ModelIDColumn, ErrorsColumn, WarningsColumn} {
		require.Equal(t, []interface{}{nil, nil, nil, nil}, columnValues(t, f, name))
	}
}

func TestConcurrentAddResultCommutes(t *testing.T) {
	ctx := context.Background()
	const n = 200
	sequential, _ := createTestContainer(t, n, 16)
	concurrent, _ := createTestContainer(t, n, 16)
	outcome := func(c *Container, i int64) error {
		if i%3 == 0 {
			_, err := c.AddResult(ctx, i, "", []string{fmt.Sprintf("invalid %d", i)}, nil, nil)
			return err
		}
		_, err := c.AddResult(ctx, i, segments.Key(fmt.Sprintf("model-%d", i)), nil, nil, []string{"w"})
		return err
	}
	for i := int64(0); i < n; i++ {
		require.Nil(t, outcome(sequential, i))
	}
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, i := range rand.Perm(n) {
		wg.Add(1)
		go func(i int64) {
			defer wg.Done()
			errs <- outcome(concurrent, i)
		}(int64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.Nil(t, err)
	}

	expected, err := sequential.ToFrame(ctx)
	require.Nil(t, err)
	actual, err := concurrent.ToFrame(ctx)
	require.Nil(t, err)
	for _, name := range []string{ModelIDColumn, ErrorsColumn, WarningsColumn} {
		require.Equal(t, columnValues(t, expected, name), columnValues(t, actual, name))
	}
}

func TestRemoveCascade(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 50, 7)
	require.Nil(t, store.Put(ctx, "other", "value"))
	for i := int64(0); i < c.NumSegments(); i += 2 {
		_, err := c.AddResult(ctx, i, "m", nil, nil, nil)
		require.Nil(t, err)
	}
	require.Nil(t, c.Remove(ctx, true))

	for i := int64(0); i < c.NumSegments(); i++ {
		k, err := c.ResultKeys().AtStr(i)
		require.Nil(t, err)
		_, err = store.Get(ctx, segments.Key(k))
		require.True(t, errors.IsMissingKey(err))
	}
	// only the unrelated entry survives
	keys, err := store.Keys(ctx, true)
	require.Nil(t, err)
	require.Equal(t, []segments.Key{"other"}, keys)

	_, err = c.AddResult(ctx, 0, "m", nil, nil, nil)
	require.NotNil(t, err)
	// removing again is harmless
	require.Nil(t, c.Remove(ctx, true))
}

func TestRemoveWithoutCascade(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 3, 2)
	r, err := c.AddResult(ctx, 1, "m1", nil, nil, nil)
	require.Nil(t, err)
	require.Nil(t, c.Remove(ctx, false))
	_, err = store.Get(ctx, "results")
	require.True(t, errors.IsMissingKey(err))
	// results remain reachable
	v, err := store.Get(ctx, r.Key())
	require.Nil(t, err)
	require.Equal(t, r, v)
	_, err = store.Get(ctx, c.ResultKeys().Key())
	require.Nil(t, err)
}

func TestEmptySegments(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 0, 4)
	require.Equal(t, int64(0), c.NumSegments())
	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	require.Equal(t, int64(0), f.NumRows())
	require.Nil(t, c.Remove(ctx, true))
	require.Equal(t, 0, store.Len())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 4, 2)
	loaded, err := Load(ctx, store, exec.New(nil), "results", nil)
	require.Nil(t, err)
	require.Equal(t, c.Key(), loaded.Key())
	require.Equal(t, c.ResultKeys().Key(), loaded.ResultKeys().Key())

	// results added through either handle are visible through the other
	_, err = loaded.AddResult(ctx, 3, "m3", nil, nil, nil)
	require.Nil(t, err)
	r, err := c.Result(ctx, 3)
	require.Nil(t, err)
	require.Equal(t, segments.Key("m3"), r.Model())

	require.Nil(t, store.Put(ctx, "junk", 42))
	_, err = Load(ctx, store, exec.New(nil), "junk", nil)
	_, ok := err.(errors.UnexpectedValueError)
	require.True(t, ok)
	_, err = Load(ctx, store, exec.New(nil), "absent", nil)
	require.True(t, errors.IsMissingKey(err))
}

func TestGobRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 5, 2)
	r, err := c.AddResult(ctx, 4, "", []string{"v"}, fmt.Errorf("boom"), []string{"w"})
	require.Nil(t, err)

	var buf bytes.Buffer
	var in interface{} = c
	require.Nil(t, gob.NewEncoder(&buf).Encode(&in))
	var out interface{}
	require.Nil(t, gob.NewDecoder(&buf).Decode(&out))
	decoded, ok := out.(*Container)
	require.True(t, ok)
	require.Equal(t, c.Key(), decoded.Key())
	require.Equal(t, c.Segments().Names(), decoded.Segments().Names())
	expected, _ := c.ResultKeys().(*vec.Column).Values()
	actual, _ := decoded.ResultKeys().(*vec.Column).Values()
	require.Equal(t, expected, actual)

	// a decoded Container is attached through Load
	require.Nil(t, store.Put(ctx, "decoded", decoded))
	attached, err := Load(ctx, store, exec.New(nil), "decoded", nil)
	require.Nil(t, err)
	got, err := attached.Result(ctx, 4)
	require.Nil(t, err)
	require.Equal(t, r, got)

	buf.Reset()
	in = r
	require.Nil(t, gob.NewEncoder(&buf).Encode(&in))
	var decodedRecord interface{}
	require.Nil(t, gob.NewDecoder(&buf).Decode(&decodedRecord))
	require.Equal(t, r, decodedRecord)
}

// failingStore rejects Puts to Keys matching reject
type failingStore struct {
	*memory.Store
	reject func(key segments.Key) bool
}

func (s *failingStore) Put(ctx context.Context, key segments.Key, value interface{}) error {
	if s.reject(key) {
		return fmt.Errorf("Put to %s rejected", key)
	}
	return s.Store.Put(ctx, key, value)
}

func TestMakeRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(nil), reject: func(key segments.Key) bool { return key == "results" }}
	_, err := Make(ctx, store, exec.New(nil), "results", createTestSegments(t, 10, 3), nil)
	require.NotNil(t, err)
	require.Equal(t, 0, store.Len())
}

func TestMakeRollbackKeepsExistingValue(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(nil), reject: func(key segments.Key) bool { return key.IsHidden() }}
	require.Nil(t, store.Store.Put(ctx, "results", "pre-existing"))
	_, err := Make(ctx, store, exec.New(nil), "results", createTestSegments(t, 10, 3), nil)
	require.NotNil(t, err)
	v, err := store.Get(ctx, "results")
	require.Nil(t, err)
	require.Equal(t, "pre-existing", v)
	require.Equal(t, 1, store.Len())
}

func TestMakeRollbackAfterPartialFrameWrite(t *testing.T) {
	ctx := context.Background()
	segs := createTestSegments(t, 10, 3)
	var puts int32
	// accept the slot-key column and one segments column, then fail
	store := &failingStore{Store: memory.New(nil), reject: func(key segments.Key) bool {
		return key.IsHidden() && atomic.AddInt32(&puts, 1) > 2
	}}
	require.Nil(t, store.Store.Put(ctx, "other", 1))
	_, err := Make(ctx, store, exec.New(nil), "results", segs, nil)
	require.NotNil(t, err)
	keys, err := store.Keys(ctx, true)
	require.Nil(t, err)
	require.Equal(t, []segments.Key{"other"}, keys)
}

func TestToFrameAfterRecordRemoved(t *testing.T) {
	ctx := context.Background()
	c, store := createTestContainer(t, 3, 2)
	for i := int64(0); i < 3; i++ {
		_, err := c.AddResult(ctx, i, segments.Key(fmt.Sprintf("m%d", i)), []string{"e"}, nil, []string{"w"})
		require.Nil(t, err)
	}
	k, err := c.ResultKeys().AtStr(1)
	require.Nil(t, err)
	require.Nil(t, store.Remove(ctx, segments.Key(k)))

	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	require.Equal(t, []interface{}{"m0", nil, "m2"}, columnValues(t, f, ModelIDColumn))
	require.Equal(t, []interface{}{"e", nil, "e"}, columnValues(t, f, ErrorsColumn))
	require.Equal(t, []interface{}{"w", nil, "w"}, columnValues(t, f, WarningsColumn))
}

func TestToFrameConcurrentWithAddResult(t *testing.T) {
	ctx := context.Background()
	const n = 100
	c, _ := createTestContainer(t, n, 8)
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := int64(0); i < n; i++ {
		wg.Add(2)
		go func(i int64) {
			defer wg.Done()
			_, err := c.AddResult(ctx, i, segments.Key(fmt.Sprintf("model-%d", i)), nil, nil, nil)
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			f, err := c.ToFrame(ctx)
			if err == nil && f.NumRows() != n {
				err = fmt.Errorf("ToFrame produced %d rows", f.NumRows())
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.Nil(t, err)
	}
	// once every AddResult has returned, every row is visible
	f, err := c.ToFrame(ctx)
	require.Nil(t, err)
	for i, v := range columnValues(t, f, ModelIDColumn) {
		require.Equal(t, fmt.Sprintf("model-%d", i), v)
	}
}

func TestMakeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := memory.New(nil)
	_, err := Make(ctx, store, exec.New(nil), "results", createTestSegments(t, 10, 3), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, store.Len())
}
