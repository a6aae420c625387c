package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"learnpath/interview-api/internal/config"
	"learnpath/interview-api/internal/metrics"
)

// embeddingSize matches text-embedding-004.
const embeddingSize = 768

// pointNamespace derives stable point ids so re-indexing a course overwrites
// its previous chunks instead of duplicating them.
var pointNamespace = uuid.MustParse("6f1c8d2e-3b7a-5e49-9c0d-4a8e2f7b1c35")

type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertChunk(ctx context.Context, chunk CourseChunk, embedding []float32) error
	SearchCourse(ctx context.Context, courseID string, queryEmbedding []float32, limit int) ([]SearchResult, error)
	DeleteCourse(ctx context.Context, courseID string) error
	Close() error
}

// CourseChunk is one indexed piece of course material.
type CourseChunk struct {
	CourseID string
	Source   string
	Index    int
	Text     string
}

func (c CourseChunk) PointID() string {
	return uuid.NewSHA1(pointNamespace, []byte(c.CourseID+":"+c.Source+":"+strconv.Itoa(c.Index))).String()
}

type SearchResult struct {
	ID       string
	Score    float32
	Text     string
	CourseID string
	Source   string
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantService(cfg config.QdrantConfig, log *zap.Logger) (QdrantService, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: cfg.Collection,
		vectorSize:     embeddingSize,
		log:            log.Named("qdrant"),
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// course_id is filtered on every search
	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.collectionName,
		FieldName:      "course_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to index course_id: %w", err)
	}

	q.log.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertChunk implements QdrantService.
func (q *qdrantService) UpsertChunk(ctx context.Context, chunk CourseChunk, embedding []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(chunk.PointID()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"course_id": chunk.CourseID,
			"source":    chunk.Source,
			"chunk":     int64(chunk.Index),
			"text":      chunk.Text,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// SearchCourse implements QdrantService.
func (q *qdrantService) SearchCourse(ctx context.Context, courseID string, queryEmbedding []float32, limit int) (_ []SearchResult, err error) {
	started := time.Now()
	defer func() { metrics.ObserveUpstream("vector_search", started, err) }()

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("course_id", courseID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		results = append(results, SearchResult{
			ID:       point.GetId().GetUuid(),
			Score:    point.Score,
			Text:     payload["text"].GetStringValue(),
			CourseID: payload["course_id"].GetStringValue(),
			Source:   payload["source"].GetStringValue(),
		})
	}

	return results, nil
}

// DeleteCourse implements QdrantService.
func (q *qdrantService) DeleteCourse(ctx context.Context, courseID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("course_id", courseID),
		},
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: filter,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete course points: %w", err)
	}

	return nil
}

// Close implements QdrantService.
func (q *qdrantService) Close() error {
	return q.client.Close()
}
