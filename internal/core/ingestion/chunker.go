package ingestion

import (
	"strings"
)

// Tokenizer counts tokens in a piece of text. Counting must be pure so
// chunking stays deterministic.
type Tokenizer interface {
	Count(text string) int
}

// separators are tried in order: paragraph, line, sentence, word, rune.
// Splitting keeps the separator attached to the preceding piece so that
// concatenating pieces reconstructs the original text exactly.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker turns extracted text segments into token-bounded chunks with
// token-tail overlap between consecutive chunks.
type Chunker struct {
	tok           Tokenizer
	maxTokens     int
	overlapTokens int
}

func NewChunker(tok Tokenizer, maxTokens, overlapTokens int) *Chunker {
	return &Chunker{tok: tok, maxTokens: maxTokens, overlapTokens: overlapTokens}
}

// Chunk splits each segment independently (segments never bleed into
// each other) and assigns positions continuously across segments.
// Blank chunks are dropped. The same input always yields the same
// output.
func (c *Chunker) Chunk(segments []string) []Chunk {
	var chunks []Chunk
	pos := 0
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		for _, text := range c.merge(c.split(seg, 0)) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Position:   pos,
				Content:    text,
				TokenCount: c.tok.Count(text),
			})
			pos++
		}
	}
	return chunks
}

// split recursively breaks text into pieces of at most maxTokens,
// descending the separator ladder only for pieces that are still too
// large. The final rung splits by rune; a piece that is still oversized
// there is returned whole and handled by merge.
func (c *Chunker) split(text string, sepIdx int) []string {
	if c.tok.Count(text) <= c.maxTokens {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return []string{text}
	}

	sep := separators[sepIdx]
	if sep == "" {
		runes := []rune(text)
		pieces := make([]string, 0, len(runes))
		for _, r := range runes {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return c.split(text, sepIdx+1)
	}

	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if c.tok.Count(p) <= c.maxTokens {
			out = append(out, p)
		} else {
			out = append(out, c.split(p, sepIdx+1)...)
		}
	}
	return out
}

// merge greedily joins pieces into chunks of at most maxTokens. On each
// flush it keeps a tail of pieces whose token sum covers overlapTokens
// as the seed of the next chunk; overlap is computed in whole pieces,
// never mid-piece. A chunk is emitted only
// when it contains at least one piece that was not part of the previous
// chunk's overlap seed, which prevents a trailing overlap-only
// duplicate.
func (c *Chunker) merge(pieces []string) []string {
	var (
		out     []string
		buf     []string
		bufToks []int
		tokSum  int
		fresh   int
	)

	reseed := func() {
		if c.overlapTokens <= 0 {
			buf, bufToks, tokSum = nil, nil, 0
			return
		}
		keepFrom := len(buf)
		remain := c.overlapTokens
		for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
			remain -= bufToks[j]
			keepFrom = j
		}
		buf = append([]string(nil), buf[keepFrom:]...)
		bufToks = append([]int(nil), bufToks[keepFrom:]...)
		tokSum = 0
		for _, t := range bufToks {
			tokSum += t
		}
	}

	flush := func() {
		if fresh == 0 {
			return
		}
		out = append(out, strings.Join(buf, ""))
		reseed()
		fresh = 0
	}

	for _, p := range pieces {
		t := c.tok.Count(p)

		// An indivisible oversized piece becomes a chunk of its own,
		// without an overlap seed on either side.
		if t > c.maxTokens {
			flush()
			out = append(out, p)
			buf, bufToks, tokSum, fresh = nil, nil, 0, 0
			continue
		}

		if tokSum+t > c.maxTokens {
			flush()
			// Trim the overlap seed if it alone would overflow the
			// budget together with the incoming piece.
			for tokSum+t > c.maxTokens && len(buf) > 0 {
				tokSum -= bufToks[0]
				buf = buf[1:]
				bufToks = bufToks[1:]
			}
		}

		buf = append(buf, p)
		bufToks = append(bufToks, t)
		tokSum += t
		fresh++
	}

	flush()
	return out
}
