package encoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"Network routing basics. Routers forward packets between subnets. network",
	"Disk cache tuning. Storage layers keep hot blocks in the page cache. storage",
	"Backup strategy for databases and object storage.",
}

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	enc, err := New(corpus, DefaultConfig())
	require.NoError(t, err)
	return enc
}

func norm2(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func TestEncodeHasFixedDimension(t *testing.T) {
	enc := newTestEncoder(t)

	questions := []string{
		"",
		"disk cache",
		"How do routers forward packets?",
		"completely unseen vocabulary zzz",
		"!!! ??? ...",
		"Ünïcödé DISK Cache ｄｉｓｋ",
	}
	for _, q := range questions {
		t.Run(q, func(t *testing.T) {
			vec, _ := enc.Encode(q)
			assert.Len(t, vec, enc.Dimension())
		})
	}
}

func TestEncodeIsDeterministicAndUnitNorm(t *testing.T) {
	enc := newTestEncoder(t)

	a, err := enc.Encode("disk cache for storage")
	require.NoError(t, err)
	b, err := enc.Encode("disk cache for storage")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm2(a), 1e-9)
}

func TestEncodeUnknownVocabularyFallsBackToZero(t *testing.T) {
	enc := newTestEncoder(t)

	tests := []struct {
		name     string
		question string
	}{
		{name: "empty", question: ""},
		{name: "punctuation only", question: "?!.,"},
		{name: "unseen terms", question: "quantum entanglement"},
		{name: "stop words only", question: "what is the"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := enc.Encode(tt.question)
			assert.ErrorIs(t, err, ErrEncoding)
			assert.Len(t, vec, enc.Dimension())
			assert.Zero(t, norm2(vec))
		})
	}
}

func TestEncodeMixedKnownAndUnknownTerms(t *testing.T) {
	enc := newTestEncoder(t)

	known, err := enc.Encode("disk")
	require.NoError(t, err)
	mixed, err := enc.Encode("disk zzzunknown")
	require.NoError(t, err)

	assert.Equal(t, known, mixed, "unknown tokens carry zero weight")
}

func TestEncodeNormalisesCaseAndWidth(t *testing.T) {
	enc := newTestEncoder(t)

	plain, err := enc.Encode("disk cache")
	require.NoError(t, err)
	shouted, err := enc.Encode("DISK Ｃａｃｈｅ")
	require.NoError(t, err)

	assert.Equal(t, plain, shouted)
}

func TestNewCapsVocabulary(t *testing.T) {
	enc, err := New(corpus, Config{MaxFeatures: 3, MinTokenLength: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, enc.Dimension())

	// "storage" is the only term shared by two documents, so it survives the cap.
	_, err = enc.Encode("storage")
	assert.NoError(t, err)
}

func TestNewRejectsEmptyCorpus(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = New([]string{"", "  ", "the a an"}, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestTokensDropsStopWordsAndShortTerms(t *testing.T) {
	tok := NewTokenizer(2)
	assert.Equal(t, []string{"tune", "disk", "cache"}, tok.Tokens("How do I tune the disk-cache?"))
}
