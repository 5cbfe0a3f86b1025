package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/app"
)

func TestPaperListEncoding(t *testing.T) {
	papers := []app.PaperSummary{{ID: "a1", Name: "one.pdf"}, {ID: "b2", Name: "two.pdf"}}

	raw, err := encodePapers(papers)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a1","name":"one.pdf"},{"id":"b2","name":"two.pdf"}]`, string(raw))

	got, err := decodePapers(raw)
	require.NoError(t, err)
	assert.Equal(t, papers, got)
}

func TestPaperListEncoding_Empty(t *testing.T) {
	raw, err := encodePapers(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))

	got, err := decodePapers([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPaperListDecoding_Garbage(t *testing.T) {
	_, err := decodePapers([]byte("{not json"))
	assert.Error(t, err)
}

func TestNewPaperListCache_DefaultTTL(t *testing.T) {
	c := NewPaperListCache(nil, 0)
	assert.Equal(t, 30*time.Second, c.ttl)
}

func TestParseGeneration(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int64
	}{
		{"missing", nil, 0},
		{"empty", "", 0},
		{"first bump", "1", 1},
		{"large", "9000000000", 9000000000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseGeneration(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := parseGeneration("abc")
	assert.Error(t, err)
	_, err = parseGeneration(42)
	assert.Error(t, err)
}
