package services

import (
	"context"
	"fmt"
)

// CourseContextRetriever finds course material relevant to a query.
type CourseContextRetriever interface {
	Retrieve(ctx context.Context, courseID, query string) ([]SearchResult, error)
}

type vectorRetriever struct {
	gemini GeminiService
	qdrant QdrantService
	limit  int
}

func NewCourseContextRetriever(gemini GeminiService, qdrant QdrantService, limit int) CourseContextRetriever {
	if limit <= 0 {
		limit = 4
	}
	return &vectorRetriever{gemini: gemini, qdrant: qdrant, limit: limit}
}

// Retrieve implements CourseContextRetriever.
func (r *vectorRetriever) Retrieve(ctx context.Context, courseID, query string) ([]SearchResult, error) {
	embedding, err := r.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed retrieval query: %w", err)
	}

	results, err := r.qdrant.SearchCourse(ctx, courseID, embedding, r.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search course material: %w", err)
	}
	return results, nil
}
