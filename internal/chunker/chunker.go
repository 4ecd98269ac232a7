package chunker

import (
	"strings"
	"unicode"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

// Config contains configuration for the chunker
type Config struct {
	MaxTokens int // Token budget per chunk (default 400)
	MinTokens int // Pieces below this are packed with their neighbor (default 32)
}

// Chunker splits plain text into chunks ready for the chunk store
type Chunker struct {
	maxTokens int
	minTokens int
}

// New creates a Chunker; a nil config selects the defaults
func New(config *Config) *Chunker {
	c := &Chunker{maxTokens: 400, minTokens: 32}
	if config != nil {
		if config.MaxTokens > 0 {
			c.maxTokens = config.MaxTokens
		}
		if config.MinTokens > 0 {
			c.minTokens = config.MinTokens
		}
	}
	if c.minTokens > c.maxTokens {
		c.minTokens = c.maxTokens
	}
	return c
}

// Chunk splits text into ChunkInputs with contiguous zero-based indexes.
// Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(text string) []types.ChunkInput {
	var pieces []string
	for _, para := range splitParagraphs(text) {
		if types.EstimateTokenCount(para) <= c.maxTokens {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, c.splitLong(para)...)
	}

	packed := c.pack(pieces)

	out := make([]types.ChunkInput, 0, len(packed))
	for i, content := range packed {
		out = append(out, types.ChunkInput{
			Content:    content,
			ChunkIndex: i,
			TokenCount: types.EstimateTokenCount(content),
		})
	}
	return out
}

// splitLong breaks an oversized paragraph on sentence boundaries, falling
// back to hard cuts for sentence-free text
func (c *Chunker) splitLong(para string) []string {
	sentences := splitSentences(para)

	var out []string
	var cur strings.Builder
	curTokens := 0
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			curTokens = 0
		}
	}

	for _, sent := range sentences {
		tokens := types.EstimateTokenCount(sent)
		if tokens > c.maxTokens {
			flush()
			out = append(out, hardSplit(sent, c.maxTokens)...)
			continue
		}
		if curTokens+tokens > c.maxTokens {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(sent)
		curTokens += tokens
	}
	flush()
	return out
}

// pack joins undersized neighbors so chunks stay near the budget
func (c *Chunker) pack(pieces []string) []string {
	var out []string
	var cur strings.Builder
	curTokens := 0

	for _, piece := range pieces {
		tokens := types.EstimateTokenCount(piece)
		if curTokens > 0 && curTokens+tokens > c.maxTokens {
			out = append(out, cur.String())
			cur.Reset()
			curTokens = 0
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(piece)
		curTokens += tokens

		if curTokens >= c.minTokens && curTokens+c.minTokens > c.maxTokens {
			out = append(out, cur.String())
			cur.Reset()
			curTokens = 0
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// splitParagraphs divides text on blank lines, trimming each paragraph
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

// splitSentences divides a paragraph at terminal punctuation followed by
// whitespace and an upper-case or digit start
func splitSentences(para string) []string {
	var out []string
	runes := []rune(para)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if unicode.IsUpper(runes[j]) || unicode.IsDigit(runes[j]) {
			sent := strings.TrimSpace(string(runes[start : i+1]))
			if sent != "" {
				out = append(out, sent)
			}
			start = j
			i = j - 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// hardSplit cuts sentence-free text on whitespace at the token budget
func hardSplit(text string, maxTokens int) []string {
	words := strings.Fields(text)
	var out []string
	var cur strings.Builder
	curTokens := 0
	for _, w := range words {
		tokens := types.EstimateTokenCount(w) + 1
		if curTokens > 0 && curTokens+tokens > maxTokens {
			out = append(out, cur.String())
			cur.Reset()
			curTokens = 0
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(w)
		curTokens += tokens
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
