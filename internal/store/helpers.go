package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaultfs/vaultfs/internal/cerrors"
)

// getByField retrieves a single record of type T by field=value, converting
// gorm.ErrRecordNotFound into a cerrors.CodeNotFound error.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundMsg string, preloads ...string) (*T, error) {
	var result T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFound(err, notFoundMsg)
	}
	return &result, nil
}

// createWithID generates a UUID for entity when it has none, inserts it,
// and converts unique-constraint violations to cerrors.CodeConflict.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, string), currentID, conflictMsg string) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.New().String()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", cerrors.New(cerrors.CodeConflict, conflictMsg)
		}
		return "", err
	}
	return id, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func convertNotFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cerrors.New(cerrors.CodeNotFound, msg)
	}
	return err
}
