package chunker

import "strings"

// Options controls how text is chunked. Sizes are in words.
type Options struct {
	MaxTokens int
	Overlap   int
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

const (
	defaultMaxTokens = 200
	defaultOverlap   = 40
)

// ChunkText packs whole sentences into chunks of at most MaxTokens words.
// Consecutive chunks repeat trailing sentences worth up to Overlap words.
// A sentence longer than MaxTokens is cut into word windows.
func ChunkText(text string, opts Options) []Chunk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxTokens {
		opts.Overlap = 0
	}

	var chunks []Chunk
	var window [][]string
	size := 0
	fresh := false // window holds words not yet emitted

	flush := func() {
		if size == 0 {
			return
		}
		words := make([]string, 0, size)
		for _, s := range window {
			words = append(words, s...)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(words, " "), TokenCount: len(words)})

		// Keep trailing sentences for overlap.
		kept, keptSize := 0, 0
		for i := len(window) - 1; i >= 0 && keptSize+len(window[i]) <= opts.Overlap; i-- {
			keptSize += len(window[i])
			kept++
		}
		window = append([][]string(nil), window[len(window)-kept:]...)
		size = keptSize
		fresh = false
	}

	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLong(sentence, opts.MaxTokens) {
			if size+len(piece) > opts.MaxTokens {
				if fresh {
					flush()
				}
				// Overlap plus this piece may still not fit.
				if size+len(piece) > opts.MaxTokens {
					window, size = nil, 0
				}
			}
			window = append(window, piece)
			size += len(piece)
			fresh = true
		}
	}
	if fresh {
		flush()
	}
	return chunks
}

func splitSentences(text string) [][]string {
	var out [][]string
	var cur []string
	for _, w := range strings.Fields(text) {
		cur = append(cur, w)
		if endsSentence(w) {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func endsSentence(word string) bool {
	word = strings.TrimRightFunc(word, func(r rune) bool {
		return r == '"' || r == '\'' || r == ')' || r == ']'
	})
	if word == "" {
		return false
	}
	switch []rune(word)[len([]rune(word))-1] {
	case '.', '!', '?', '。':
		return true
	}
	return false
}

func splitLong(sentence []string, max int) [][]string {
	if len(sentence) <= max {
		return [][]string{sentence}
	}
	var out [][]string
	for start := 0; start < len(sentence); start += max {
		end := start + max
		if end > len(sentence) {
			end = len(sentence)
		}
		out = append(out, sentence[start:end])
	}
	return out
}
