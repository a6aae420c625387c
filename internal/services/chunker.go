package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"learnpath/interview-api/internal/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 150
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
	// ChunkCourse splits every lesson of a course into indexable chunks.
	ChunkCourse(course *models.Course) []CourseChunk
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkCourse implements TextChunker.
func (tc *textChunker) ChunkCourse(course *models.Course) []CourseChunk {
	var out []CourseChunk

	overview := strings.TrimSpace(course.Title + "\n\n" + course.Description + "\n\n" + strings.Join(course.Objectives, "\n"))
	for i, text := range tc.ChunkText(overview, defaultChunkSize, defaultChunkOverlap) {
		out = append(out, CourseChunk{CourseID: course.ID, Source: "overview", Index: i, Text: text})
	}

	for _, m := range course.Modules {
		for _, l := range m.Lessons {
			var b strings.Builder
			fmt.Fprintf(&b, "%s / %s\n\n%s", m.Title, l.Title, l.Description)
			for _, r := range l.Resources {
				fmt.Fprintf(&b, "\n\nResource: %s", r.Title)
			}

			source := "lesson:" + m.ID + "/" + l.ID
			for i, text := range tc.ChunkText(b.String(), defaultChunkSize, defaultChunkOverlap) {
				out = append(out, CourseChunk{CourseID: course.ID, Source: source, Index: i, Text: text})
			}
		}
	}

	return out
}

// ChunkText implements TextChunker. Paragraphs are packed into chunks up to
// maxChunkSize; a paragraph longer than that is packed sentence by sentence.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	p := &packer{maxSize: maxChunkSize, overlap: overlap}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) > maxChunkSize {
			for _, sentence := range splitIntoSentences(para) {
				p.add(sentence, " ")
			}
			continue
		}
		p.add(para, "\n\n")
	}

	return p.finish()
}

type packer struct {
	maxSize int
	overlap int
	current strings.Builder
	chunks  []string
}

func (p *packer) add(piece, sep string) {
	if p.current.Len() > 0 && p.current.Len()+len(piece)+len(sep) > p.maxSize {
		p.flush()
	}
	if p.current.Len() > 0 {
		p.current.WriteString(sep)
	}
	p.current.WriteString(piece)
}

// flush closes the current chunk and seeds the next one with its tail.
func (p *packer) flush() {
	prev := p.current.String()
	p.chunks = append(p.chunks, prev)
	p.current.Reset()
	p.current.WriteString(getLastNChars(prev, p.overlap))
}

func (p *packer) finish() []string {
	if p.current.Len() > 0 {
		p.chunks = append(p.chunks, p.current.String())
	}
	return p.chunks
}

func splitIntoSentences(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var result []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func getLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
