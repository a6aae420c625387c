package repositories

import (
	"context"
	"errors"

	"learnpath/interview-api/internal/apperrors"
	"learnpath/interview-api/internal/models"
	"learnpath/interview-api/internal/store"
)

type CourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

type courseRepository struct {
	store store.DocumentStore
}

func NewCourseRepository(s store.DocumentStore) CourseRepository {
	return &courseRepository{store: s}
}

// FindByID implements CourseRepository.
func (r *courseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	var c models.Course
	if err := r.store.Get(ctx, models.CollectionCourses, id, &c); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("course %s not found", id)
		}
		return nil, translate("failed to find course", err)
	}
	return &c, nil
}

// List implements CourseRepository.
func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var rows []models.Course
	if err := r.store.Query(ctx, models.CollectionCourses, store.Query{OrderBy: "created_at"}, &rows); err != nil {
		return nil, translate("failed to list courses", err)
	}
	return rows, nil
}
