package patch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/models"
	"github.com/maruel/jsonstore/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *storage.FileStore) {
	t.Helper()
	s, err := storage.NewFileStore("/data", storage.NewFileSystem(afero.NewMemMapFs()), storage.WithCompressionThreshold(512))
	require.NoError(t, err)
	return NewEngine(s), s
}

func mustValue(t *testing.T, raw string) jsonval.Value {
	t.Helper()
	var v jsonval.Value
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func seed(t *testing.T, s *storage.FileStore, raw string) *models.Document {
	t.Helper()
	d := models.NewDocument(mustValue(t, raw).Object())
	require.NoError(t, s.Add(t.Context(), d))
	return d
}

func ops(t *testing.T, raw string) []models.PatchOperation {
	t.Helper()
	var out []models.PatchOperation
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func stored(t *testing.T, s *storage.FileStore, id uuid.UUID) string {
	t.Helper()
	d, err := s.Get(t.Context(), id)
	require.NoError(t, err)
	raw, err := json.Marshal(d.Root())
	require.NoError(t, err)
	return string(raw)
}

func TestApplyReplace(t *testing.T) {
	e, s := newTestEngine(t)
	d := seed(t, s, `{"key1":"v1","key2":2}`)
	got, err := e.Apply(t.Context(), d.ID, ops(t, `[{"op":"replace","path":"/key1","value":"X"}]`))
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, "X", got.Fields["key1"].Str())
	assert.JSONEq(t, `{"key1":"X","key2":2}`, stored(t, s, d.ID))
}

func TestApplyMissingDocument(t *testing.T) {
	e, s := newTestEngine(t)
	id := uuid.New()
	doc, err := e.Apply(t.Context(), id, ops(t, `[{"op":"add","path":"/a","value":1}]`))
	assert.Nil(t, doc)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ObjectNotFound, pe.Kind)
	assert.Equal(t, "Object not found.", pe.Error())
	ok, err := s.Exists(t.Context(), id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	e, s := newTestEngine(t)
	d := seed(t, s, `{"key1":"v1"}`)
	doc, err := e.Apply(t.Context(), d.ID, ops(t, `[
		{"op":"replace","path":"/key1","value":"X"},
		{"op":"replace","path":"/missing","value":"Y"}
	]`))
	assert.Nil(t, doc)
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PathNotFoundForReplace, pe.Kind)
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, "Path '/missing' not found for replace operation.", pe.Error())
	assert.JSONEq(t, `{"key1":"v1"}`, stored(t, s, d.ID))
}

func TestApplyOperations(t *testing.T) {
	const base = `{"a":{"b":{"c":1},"list":[1,2]},"s":"x","n":null}`
	tests := []struct {
		name    string
		ops     string
		want    string
		kind    Kind
		message string
	}{
		{
			name: "add new nested key",
			ops:  `[{"op":"add","path":"/a/b/d","value":{"deep":true}}]`,
			want: `{"a":{"b":{"c":1,"d":{"deep":true}},"list":[1,2]},"s":"x","n":null}`,
		},
		{
			name: "add overwrites",
			ops:  `[{"op":"add","path":"/s","value":[1]}]`,
			want: `{"a":{"b":{"c":1},"list":[1,2]},"s":[1],"n":null}`,
		},
		{
			name: "add without value sets null",
			ops:  `[{"op":"add","path":"/z"}]`,
			want: `{"a":{"b":{"c":1},"list":[1,2]},"s":"x","n":null,"z":null}`,
		},
		{
			name: "replace whole array value",
			ops:  `[{"op":"replace","path":"/a/list","value":[]}]`,
			want: `{"a":{"b":{"c":1},"list":[]},"s":"x","n":null}`,
		},
		{
			name: "replace key holding null",
			ops:  `[{"op":"replace","path":"/n","value":0}]`,
			want: `{"a":{"b":{"c":1},"list":[1,2]},"s":"x","n":0}`,
		},
		{
			name: "remove",
			ops:  `[{"op":"remove","path":"/a/b"}]`,
			want: `{"a":{"list":[1,2]},"s":"x","n":null}`,
		},
		{
			name: "op is case insensitive and slashes trimmed",
			ops:  `[{"op":"REPLACE","path":"a/b/c/","value":2}]`,
			want: `{"a":{"b":{"c":2},"list":[1,2]},"s":"x","n":null}`,
		},
		{
			name: "later op sees earlier ones",
			ops:  `[{"op":"add","path":"/t","value":{}},{"op":"add","path":"/t/u","value":1},{"op":"remove","path":"/s"}]`,
			want: `{"a":{"b":{"c":1},"list":[1,2]},"n":null,"t":{"u":1}}`,
		},
		{
			name:    "missing intermediate segment",
			ops:     `[{"op":"add","path":"/nope/x","value":1}]`,
			kind:    PathSegmentNotFound,
			message: "Path segment 'nope' not found.",
		},
		{
			name:    "scalar intermediate segment",
			ops:     `[{"op":"add","path":"/s/x","value":1}]`,
			kind:    PathSegmentNotFound,
			message: "Path segment 's' not found.",
		},
		{
			name: "numeric segment into array",
			ops:  `[{"op":"replace","path":"/a/list/0","value":9}]`,
			kind: ArrayPathUnsupported,
		},
		{
			name:    "remove missing",
			ops:     `[{"op":"remove","path":"/a/zz"}]`,
			kind:    PathNotFoundForRemove,
			message: "Path '/a/zz' not found for remove operation.",
		},
		{
			name:    "unsupported op",
			ops:     `[{"op":"move","path":"/s"}]`,
			kind:    UnsupportedOperation,
			message: "Unsupported operation 'move'.",
		},
		{
			name: "empty path",
			ops:  `[{"op":"add","path":"/","value":1}]`,
			kind: InvalidPath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newTestEngine(t)
			d := seed(t, s, base)
			doc, err := e.Apply(t.Context(), d.ID, ops(t, tt.ops))
			if tt.kind != 0 {
				assert.Nil(t, doc)
				assert.ErrorIs(t, err, &Error{Kind: tt.kind})
				if tt.message != "" {
					assert.EqualError(t, err, tt.message)
				}
				assert.JSONEq(t, base, stored(t, s, d.ID))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, stored(t, s, d.ID))
		})
	}
}

func TestApplyMigratesEncoding(t *testing.T) {
	e, s := newTestEngine(t)
	d := seed(t, s, `{"a":1}`)
	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'q'
	}
	_, err := e.Apply(t.Context(), d.ID, []models.PatchOperation{
		{Op: models.OpAdd, Path: "/big", Value: jsonval.StringValue(string(big))},
	})
	require.NoError(t, err)
	enc, err := s.Encoding(t.Context(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.Compressed, enc)
}

func TestApplyFieldsDoesNotMutateInput(t *testing.T) {
	in := mustValue(t, `{"a":{"b":1}}`).Object()
	out, err := ApplyFields(in, []models.PatchOperation{{Op: models.OpRemove, Path: "/a/b"}})
	require.NoError(t, err)
	assert.Empty(t, out["a"].Object())
	assert.Len(t, in["a"].Object(), 1)
}

type failingStore struct{ err error }

func (f failingStore) Modify(_ context.Context, _ uuid.UUID, _ func(*models.Document) error) (*models.Document, error) {
	return nil, f.err
}

func TestApplyStoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	e := NewEngine(failingStore{err: boom})
	_, err := e.Apply(t.Context(), uuid.New(), nil)
	assert.ErrorIs(t, err, boom)
	var pe *Error
	assert.False(t, errors.As(err, &pe))
}
