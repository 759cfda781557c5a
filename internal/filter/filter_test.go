package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maruel/jsonstore/internal/jsonval"
	"github.com/maruel/jsonstore/internal/models"
)

func doc(t *testing.T, raw string) *models.Document {
	t.Helper()
	var m map[string]jsonval.Value
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return models.NewDocument(m)
}

func TestMatch(t *testing.T) {
	d := doc(t, `{"status":"active","score":12,"ratio":0.5,"tags":["a","b"],"owner":{"name":"alice"}}`)
	tests := []struct {
		expr string
		want bool
	}{
		{`data.status == "active"`, true},
		{`data.score > 10 && data.ratio < 1`, true},
		{`data.score >= 13`, false},
		{`"b" in data.tags`, true},
		{`data.owner.name startsWith "al"`, true},
		{`"missing" in data`, false},
		{`data.missing == nil`, true},
		{`id == "` + d.ID.String() + `"`, true},
		{`len(data.tags) == 2`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := e.Match(d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "   ", `data.status ==`, `"not a bool"`, `1 + 2`} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			assert.Error(t, err)
		})
	}
	_, err := Compile(" ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestEvaluationError(t *testing.T) {
	e, err := Compile(`data.score > 3`)
	require.NoError(t, err)
	ok, err := e.Predicate()(doc(t, `{"score":"high"}`))
	assert.Error(t, err)
	assert.False(t, ok)
	ok, err = e.Predicate()(doc(t, `{"score":4}`))
	require.NoError(t, err)
	assert.True(t, ok)
}
