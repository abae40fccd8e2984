package chunker

import (
	"strconv"
	"strings"

	"pdfqa/internal/domain"
	"pdfqa/internal/textutil"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 256

// SentenceChunker packs whole sentences into chunks of at most chunkSize words.
// Sentences longer than chunkSize are split at word boundaries.
type SentenceChunker struct {
	chunkSize    int
	overlapWords int
}

type unit struct {
	start, end int
	words      int
}

func NewSentenceChunker(chunkSize, overlapWords int) *SentenceChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapWords < 0 {
		overlapWords = 0
	}
	if overlapWords >= chunkSize {
		overlapWords = chunkSize / 4
	}
	return &SentenceChunker{chunkSize: chunkSize, overlapWords: overlapWords}
}

// Chunk splits every segment of the document. Chunk indexes run across segments
// in document order.
func (c *SentenceChunker) Chunk(document domain.ParsedDocument) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for seg, text := range document.Segments {
		if strings.TrimSpace(text) == "" {
			continue
		}
		for _, sp := range c.segmentSpans(text) {
			idx := len(chunks)
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    document.ID + ":" + strconv.Itoa(idx),
				Text:       text[sp.Start:sp.End],
				Index:      idx,
				Segment:    seg,
				Start:      sp.Start,
				End:        sp.End,
			})
		}
	}
	return chunks, nil
}

func (c *SentenceChunker) segmentSpans(text string) []textutil.Span {
	units := c.units(text)
	var spans []textutil.Span
	i := 0
	for i < len(units) {
		words := 0
		end := i
		for end < len(units) && (end == i || words+units[end].words <= c.chunkSize) {
			words += units[end].words
			end++
		}
		spans = append(spans, textutil.Span{Start: units[i].start, End: units[end-1].end})
		if end == len(units) {
			break
		}
		i = c.overlapStart(units, i, end)
	}
	return spans
}

// overlapStart walks back from the end of the chunk [start, end) over whole
// units while they fit in the overlap budget and still leave room for the
// next unit, so every chunk makes progress.
func (c *SentenceChunker) overlapStart(units []unit, start, end int) int {
	next := end
	carried := 0
	for j := end - 1; j > start; j-- {
		w := units[j].words
		if carried+w > c.overlapWords || carried+w+units[end].words > c.chunkSize {
			break
		}
		carried += w
		next = j
	}
	return next
}

func (c *SentenceChunker) units(text string) []unit {
	var out []unit
	for _, sp := range textutil.SentenceSpans(text) {
		sentence := text[sp.Start:sp.End]
		words := textutil.CountWords(sentence)
		if words <= c.chunkSize {
			out = append(out, unit{start: sp.Start, end: sp.End, words: words})
			continue
		}
		// Hard split at the first byte of every chunkSize-th word.
		starts := textutil.WordStarts(sentence)
		pieceStart := sp.Start
		for k := c.chunkSize; k < len(starts); k += c.chunkSize {
			cut := sp.Start + starts[k]
			out = append(out, unit{start: pieceStart, end: cut, words: c.chunkSize})
			pieceStart = cut
		}
		out = append(out, unit{start: pieceStart, end: sp.End, words: textutil.CountWords(text[pieceStart:sp.End])})
	}
	return out
}
