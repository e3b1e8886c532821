package corpus

import (
	"bufio"
	"strconv"
	"strings"
)

const (
	defaultLinesPerChunk = 12
	defaultOverlapLines  = 2
)

// TranscriptChunker splits a game transcript into overlapping line-based
// chunks. Dialogue lines are short, so chunking by line count keeps speaker
// turns intact while the overlap preserves conversational context across
// chunk boundaries.
type TranscriptChunker struct {
	linesPerChunk int
	overlapLines  int
}

// NewTranscriptChunker creates a chunker. Non-positive linesPerChunk falls
// back to the default; the overlap is clamped below linesPerChunk so the
// chunk window always advances.
func NewTranscriptChunker(linesPerChunk, overlapLines int) *TranscriptChunker {
	if linesPerChunk <= 0 {
		linesPerChunk = defaultLinesPerChunk
	}
	if overlapLines < 0 {
		overlapLines = defaultOverlapLines
	}
	if overlapLines >= linesPerChunk {
		overlapLines = linesPerChunk - 1
	}
	return &TranscriptChunker{
		linesPerChunk: linesPerChunk,
		overlapLines:  overlapLines,
	}
}

// Chunk splits the transcript into transcript-sourced passages without
// embeddings. Blank lines are dropped before windowing. An empty transcript
// yields no chunks.
func (c *TranscriptChunker) Chunk(transcript string) []Passage {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(transcript))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}

	var chunks []Passage
	step := c.linesPerChunk - c.overlapLines
	idx := 0
	for start := 0; start < len(lines); start += step {
		end := start + c.linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, Passage{
			ID:     "transcript:" + strconv.Itoa(idx),
			Text:   strings.Join(lines[start:end], "\n"),
			Source: SourceTranscript,
		})
		idx++
		if end == len(lines) {
			break
		}
	}

	return chunks
}
