package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"learnpath/interview-api/internal/models"
)

// CourseIndexer embeds course material into the vector index used for
// course-aware scoring.
type CourseIndexer interface {
	IndexCourse(ctx context.Context, course *models.Course) (int, error)
	IndexPDF(ctx context.Context, courseID, source, filePath string) (int, error)
}

type courseIndexer struct {
	gemini  GeminiService
	qdrant  QdrantService
	parser  PDFParserService
	chunker TextChunker
	log     *zap.Logger
}

func NewCourseIndexer(gemini GeminiService, qdrant QdrantService, parser PDFParserService, chunker TextChunker, log *zap.Logger) CourseIndexer {
	return &courseIndexer{
		gemini:  gemini,
		qdrant:  qdrant,
		parser:  parser,
		chunker: chunker,
		log:     log.Named("indexer"),
	}
}

// IndexCourse implements CourseIndexer.
func (ix *courseIndexer) IndexCourse(ctx context.Context, course *models.Course) (int, error) {
	return ix.store(ctx, ix.chunker.ChunkCourse(course))
}

// IndexPDF implements CourseIndexer.
func (ix *courseIndexer) IndexPDF(ctx context.Context, courseID, source, filePath string) (int, error) {
	content, err := ix.parser.ExtractText(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", filePath, err)
	}
	if content.SkippedPages > 0 {
		ix.log.Warn("skipped unreadable pages",
			zap.String("file", filePath),
			zap.Int("skipped", content.SkippedPages),
			zap.Int("pages", content.PageCount),
		)
	}

	texts := ix.chunker.ChunkText(content.Text, defaultChunkSize, defaultChunkOverlap)
	chunks := make([]CourseChunk, len(texts))
	for i, text := range texts {
		chunks[i] = CourseChunk{CourseID: courseID, Source: "material:" + source, Index: i, Text: text}
	}
	return ix.store(ctx, chunks)
}

// store embeds and upserts each chunk. A failed chunk is logged and skipped;
// the call fails only when nothing could be stored.
func (ix *courseIndexer) store(ctx context.Context, chunks []CourseChunk) (int, error) {
	stored := 0
	var errs []error

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		embedding, err := ix.gemini.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk %s#%d: %w", chunk.Source, chunk.Index, err))
			continue
		}

		if err := ix.qdrant.UpsertChunk(ctx, chunk, embedding); err != nil {
			errs = append(errs, fmt.Errorf("chunk %s#%d: %w", chunk.Source, chunk.Index, err))
			continue
		}
		stored++
	}

	if len(errs) > 0 {
		ix.log.Warn("some chunks were not indexed",
			zap.Int("stored", stored),
			zap.Int("failed", len(errs)),
			zap.Error(errors.Join(errs...)),
		)
	}
	if stored == 0 && len(chunks) > 0 {
		return 0, fmt.Errorf("no chunks indexed: %w", errors.Join(errs...))
	}
	return stored, nil
}
