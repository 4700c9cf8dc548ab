package rag

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunk splits whitespace-tokenized text into sliding windows of size
// tokens advancing by size-overlap per step. The final window may be
// shorter; windows fully cover the input. Empty input yields nil.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk: window size must be positive, got %d", size)
	}
	// overlap >= size would never advance
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk: overlap %d must be in [0,%d)", overlap, size)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
