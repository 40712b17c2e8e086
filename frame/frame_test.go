package frame

import (
	"bytes"
	"context"
	"encoding/gob"
	"strings"
	"testing"

	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/exec"
	"github.com/go-sif/segments/store/memory"
	"github.com/go-sif/segments/vec"
	"github.com/stretchr/testify/require"
)

func createTestFrame(t *testing.T) *Frame {
	f, err := New("segments", []string{"region", "product"}, []segments.Column{
		vec.FromStrings("$region", []string{"north", "south", "east"}, 2),
		vec.FromStrings("$product", []string{"a", "b", "c"}, 2),
	})
	require.Nil(t, err)
	return f
}

func TestNew(t *testing.T) {
	f := createTestFrame(t)
	require.Equal(t, segments.Key("segments"), f.Key())
	require.Equal(t, []string{"region", "product"}, f.Names())
	require.Equal(t, int64(3), f.NumRows())
	col, err := f.Column("product")
	require.Nil(t, err)
	val, err := col.AtStr(2)
	require.Nil(t, err)
	require.Equal(t, "c", val)
	_, err = f.Column("price")
	require.NotNil(t, err)
	_, ok := err.(errors.MissingColumnError)
	require.True(t, ok)
}

func TestNewValidation(t *testing.T) {
	_, err := New("f", []string{"a"}, nil)
	require.NotNil(t, err)
	_, err = New("f", []string{"a", "a"}, []segments.Column{
		vec.FromStrings("1", []string{"x"}, 2),
		vec.FromStrings("2", []string{"x"}, 2),
	})
	require.NotNil(t, err)
	_, err = New("f", []string{"a", "b"}, []segments.Column{
		vec.FromStrings("1", []string{"x", "y", "z"}, 2),
		vec.FromStrings("2", []string{"x", "y", "z"}, 3),
	})
	require.NotNil(t, err)
	_, ok := err.(errors.IncompatibleLayoutError)
	require.True(t, ok)

	empty, err := New("f", nil, nil)
	require.Nil(t, err)
	require.Equal(t, int64(0), empty.NumRows())
}

func TestAdd(t *testing.T) {
	f := createTestFrame(t)
	added, err := Add("", f, []string{"score"}, []segments.Column{vec.FromStrings("$score", []string{"1", "2", "3"}, 2)})
	require.Nil(t, err)
	require.Equal(t, []string{"region", "product", "score"}, added.Names())
	// the original is untouched
	require.Equal(t, []string{"region", "product"}, f.Names())
	_, err = Add("", f, []string{"bad"}, []segments.Column{vec.FromStrings("$bad", []string{"1"}, 2)})
	require.NotNil(t, err)
}

func TestDeepCopy(t *testing.T) {
	f := createTestFrame(t)
	cp, err := DeepCopy(context.Background(), exec.New(nil), f, "$copy")
	require.Nil(t, err)
	require.Equal(t, segments.Key("$copy"), cp.Key())
	require.Equal(t, f.Names(), cp.Names())
	for i, col := range cp.Columns() {
		orig := f.Columns()[i]
		require.NotEqual(t, orig.Key(), col.Key())
		require.True(t, col.Key().IsHidden())
		origValues, _ := orig.(*vec.Column).Values()
		values, _ := col.(*vec.Column).Values()
		require.Equal(t, origValues, values)
	}

	emptyCopy, err := DeepCopy(context.Background(), exec.New(nil), &Frame{}, "$empty")
	require.Nil(t, err)
	require.Equal(t, int64(0), emptyCopy.NumRows())
}

func TestReadJSONL(t *testing.T) {
	data := strings.Join([]string{
		`{"region": "north", "meta": {"product": "a"}, "size": 10}`,
		``,
		`{"region": "south", "meta": {"product": null}, "size": 20}`,
		`{"region": "east", "size": 30}`,
	}, "\n")
	f, err := ReadJSONL("segments", strings.NewReader(data), []string{"region", "meta.product", "size"}, 2)
	require.Nil(t, err)
	require.Equal(t, int64(3), f.NumRows())
	require.Equal(t, 2, f.Layout().NumChunks())
	product, err := f.Column("meta.product")
	require.Nil(t, err)
	require.False(t, product.IsNA(0))
	require.True(t, product.IsNA(1))
	require.True(t, product.IsNA(2))
	size, err := f.Column("size")
	require.Nil(t, err)
	val, err := size.AtStr(2)
	require.Nil(t, err)
	require.Equal(t, "30", val)
}

func TestReadJSONLInvalidLine(t *testing.T) {
	_, err := ReadJSONL("segments", strings.NewReader("{\"a\": 1}\n{not json"), []string{"a"}, 2)
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Line 2")
}

func TestGobRoundTrip(t *testing.T) {
	f := createTestFrame(t)
	var buf bytes.Buffer
	var in segments.Frame = f
	require.Nil(t, gob.NewEncoder(&buf).Encode(&in))
	var out segments.Frame
	require.Nil(t, gob.NewDecoder(&buf).Decode(&out))
	require.Equal(t, f.Key(), out.Key())
	require.Equal(t, f.Names(), out.Names())
	col, err := out.Column("region")
	require.Nil(t, err)
	val, err := col.AtStr(1)
	require.Nil(t, err)
	require.Equal(t, "south", val)
}

func TestPutAndRemoveFrom(t *testing.T) {
	ctx := context.Background()
	f := createTestFrame(t)
	store := memory.New(nil)
	require.Nil(t, Put(ctx, store, f))
	keys, err := store.Keys(ctx, true)
	require.Nil(t, err)
	require.Equal(t, []segments.Key{"$product", "$region", "segments"}, keys)
	v, err := store.Get(ctx, "segments")
	require.Nil(t, err)
	require.Equal(t, f, v)

	require.Nil(t, RemoveFrom(ctx, store, f))
	require.Equal(t, 0, store.Len())
	// removing twice is harmless
	require.Nil(t, RemoveFrom(ctx, store, f))
}
