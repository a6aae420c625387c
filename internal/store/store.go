package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrConflict    = errors.New("write conflict")
	ErrUnavailable = errors.New("document store unavailable")
)

// Document is anything that can be inserted. The store assigns an id when
// the document does not carry one yet.
type Document interface {
	DocumentID() string
	SetDocumentID(id string)
}

// DocumentStore is a collection-scoped view over the database. Collections
// map to tables; field names are column names.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string, dest any) error
	Query(ctx context.Context, collection string, q Query, dest any) error
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error

	// Commit applies every operation or none of them.
	Commit(ctx context.Context, ops ...Operation) error
}

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) DocumentStore {
	return &gormStore{db: db}
}

// Get implements DocumentStore.
func (s *gormStore) Get(ctx context.Context, collection, id string, dest any) error {
	err := s.db.WithContext(ctx).
		Table(collection).
		Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).
		Take(dest).Error
	if err != nil {
		return classify(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	return nil
}

// Query implements DocumentStore.
func (s *gormStore) Query(ctx context.Context, collection string, q Query, dest any) error {
	tx := q.apply(s.db.WithContext(ctx).Table(collection))
	if err := tx.Find(dest).Error; err != nil {
		return classify(fmt.Sprintf("query %s", collection), err)
	}
	return nil
}

// Insert implements DocumentStore.
func (s *gormStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := (InsertOp{Collection: collection, Doc: doc}).apply(s.db.WithContext(ctx)); err != nil {
		return "", err
	}
	return doc.DocumentID(), nil
}

// Update implements DocumentStore.
func (s *gormStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return UpdateOp{Collection: collection, ID: id, Fields: fields}.apply(s.db.WithContext(ctx))
}

// Delete implements DocumentStore.
func (s *gormStore) Delete(ctx context.Context, collection, id string) error {
	return DeleteOp{Collection: collection, ID: id}.apply(s.db.WithContext(ctx))
}

// Commit implements DocumentStore.
func (s *gormStore) Commit(ctx context.Context, ops ...Operation) error {
	if len(ops) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := op.apply(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify("commit batch", err)
	}
	return nil
}

// Operation is one write inside a batch. Only the descriptors in this package
// implement it.
type Operation interface {
	apply(tx *gorm.DB) error
}

type InsertOp struct {
	Collection string
	Doc        Document
}

func (op InsertOp) apply(tx *gorm.DB) error {
	if op.Doc.DocumentID() == "" {
		op.Doc.SetDocumentID(uuid.NewString())
	}
	if err := tx.Table(op.Collection).Create(op.Doc).Error; err != nil {
		return classify(fmt.Sprintf("insert %s/%s", op.Collection, op.Doc.DocumentID()), err)
	}
	return nil
}

// UpdateOp patches one document. When Expect is set the row must also match
// every expectation, otherwise the op fails with ErrConflict.
type UpdateOp struct {
	Collection string
	ID         string
	Fields     map[string]any
	Expect     []Filter
}

func (op UpdateOp) apply(tx *gorm.DB) error {
	q := tx.Table(op.Collection).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: op.ID})
	for _, f := range op.Expect {
		q = q.Where(f.expression())
	}

	res := q.Updates(op.Fields)
	if res.Error != nil {
		return classify(fmt.Sprintf("update %s/%s", op.Collection, op.ID), res.Error)
	}
	if res.RowsAffected == 0 {
		if len(op.Expect) > 0 {
			return fmt.Errorf("update %s/%s: precondition failed: %w", op.Collection, op.ID, ErrConflict)
		}
		return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
	}
	return nil
}

// UpdateWhereOp patches every document matching Filters. Matching nothing is
// not an error.
type UpdateWhereOp struct {
	Collection string
	Filters    []Filter
	Fields     map[string]any
}

func (op UpdateWhereOp) apply(tx *gorm.DB) error {
	if len(op.Filters) == 0 {
		return fmt.Errorf("update-where %s: refusing unfiltered update", op.Collection)
	}
	q := tx.Table(op.Collection)
	for _, f := range op.Filters {
		q = q.Where(f.expression())
	}
	if err := q.Updates(op.Fields).Error; err != nil {
		return classify(fmt.Sprintf("update-where %s", op.Collection), err)
	}
	return nil
}

type DeleteOp struct {
	Collection string
	ID         string
}

func (op DeleteOp) apply(tx *gorm.DB) error {
	res := tx.Exec("DELETE FROM ? WHERE id = ?", clause.Table{Name: op.Collection}, op.ID)
	if res.Error != nil {
		return classify(fmt.Sprintf("delete %s/%s", op.Collection, op.ID), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, ErrNotFound)
	}
	return nil
}

// classify maps driver errors onto the package sentinels. Errors that are
// already classified pass through untouched.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
}

// isUniqueViolation matches SQLite's constraint message. Postgres errors
// reach classify as gorm.ErrDuplicatedKey through TranslateError; this only
// covers the sqlite driver used by tests when its error escapes translation,
// as it can from a raw Exec.
func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
