package ingestion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTokenizer counts whitespace-separated words. Tests use it instead
// of the real encoding so expectations stay readable and no tiktoken
// data is needed.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

// runeTokenizer counts runes, for exercising the character-level
// fallback of the splitter.
type runeTokenizer struct{}

func (runeTokenizer) Count(text string) int { return len([]rune(text)) }

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 2000, 200)

	chunks := c.Chunk([]string{"a handful of words, nothing more"})

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, "a handful of words, nothing more", chunks[0].Content)
	assert.Equal(t, 6, chunks[0].TokenCount)
}

func TestChunker_LongTextSplitsWithOverlap(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 2000, 200)

	text := strings.Repeat("word ", 5000)
	chunks := c.Chunk([]string{text})

	require.Len(t, chunks, 3)
	assert.Equal(t, 2000, chunks[0].TokenCount)
	assert.Equal(t, 2000, chunks[1].TokenCount)
	assert.Equal(t, 1400, chunks[2].TokenCount)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Position)
	}
}

func TestChunker_OverlapCarriesTailOfPreviousChunk(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 100, 10)

	words := make([]string, 500)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	chunks := c.Chunk([]string{strings.Join(words, " ")})

	require.Greater(t, len(chunks), 1)
	for i := 0; i < len(chunks)-1; i++ {
		assert.LessOrEqual(t, chunks[i].TokenCount, 100)
		prevTail := strings.Fields(chunks[i].Content)
		nextHead := strings.Fields(chunks[i+1].Content)
		require.GreaterOrEqual(t, len(prevTail), 10)
		require.GreaterOrEqual(t, len(nextHead), 10)
		assert.Equal(t, prevTail[len(prevTail)-10:], nextHead[:10],
			"chunk %d should begin with the tail of chunk %d", i+1, i)
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 50, 5)

	text := strings.Repeat("alpha beta gamma.\n\ndelta epsilon ", 40)
	first := c.Chunk([]string{text})
	second := c.Chunk([]string{text})

	assert.Equal(t, first, second)
}

func TestChunker_BlankSegmentsDropped(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 2000, 200)

	chunks := c.Chunk([]string{"", "   \n\t ", "real content", "\n\n"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "real content", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Position)
}

func TestChunker_SegmentsChunkedIndependently(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 2000, 200)

	chunks := c.Chunk([]string{"page one text", "page two text"})

	require.Len(t, chunks, 2)
	assert.Equal(t, "page one text", chunks[0].Content)
	assert.Equal(t, "page two text", chunks[1].Content)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[1].Position)
}

func TestChunker_PrefersParagraphBoundaries(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 4, 0)

	text := "one two three\n\nfour five six"
	chunks := c.Chunk([]string{text})

	// Each paragraph fits the budget on its own, so the split should
	// land on the paragraph boundary.
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two three\n\n", chunks[0].Content)
	assert.Equal(t, "four five six", chunks[1].Content)
}

func TestChunker_RuneFallbackForUnsplittableText(t *testing.T) {
	c := NewChunker(runeTokenizer{}, 4, 0)

	chunks := c.Chunk([]string{"abcdefghij"})

	require.Len(t, chunks, 3)
	assert.Equal(t, "abcd", chunks[0].Content)
	assert.Equal(t, "efgh", chunks[1].Content)
	assert.Equal(t, "ij", chunks[2].Content)
}

func TestChunker_ReassemblyWithoutOverlapLosesNothing(t *testing.T) {
	c := NewChunker(wordTokenizer{}, 10, 0)

	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	chunks := c.Chunk([]string{text})

	var rebuilt strings.Builder
	for _, ch := range chunks {
		rebuilt.WriteString(ch.Content)
	}
	assert.Equal(t, text, rebuilt.String())
}
