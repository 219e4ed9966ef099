package services

import (
	"context"
	"fmt"

	"github.com/diewo77/recoup/internal/models"
	"github.com/diewo77/recoup/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store runs single-entity writes. Each write and the hooks it triggers
// commit or roll back together in gorm's default transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save creates the entity when its id is zero and updates it otherwise.
// Associations are never written through Save.
func (s *Store) Save(ctx context.Context, entity any) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(entity).Error
}

// Delete loads the entity by id into dst and deletes it, so delete hooks
// see the stored foreign keys.
func (s *Store) Delete(ctx context.Context, dst any, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(dst, id).Error; err != nil {
			return err
		}
		return tx.Delete(dst).Error
	})
}

// Get loads one entity by id.
func (s *Store) Get(ctx context.Context, dst any, id uint) error {
	return s.db.WithContext(ctx).First(dst, id).Error
}

// List loads every row of a table in the given order.
func List[T any](ctx context.Context, db *gorm.DB, order ...string) ([]T, error) {
	var out []T
	q := db.WithContext(ctx)
	for _, o := range order {
		q = q.Order(o)
	}
	if err := q.Find(&out).Error; err != nil {
		var zero T
		return nil, fmt.Errorf("list %T: %w", zero, err)
	}
	return out, nil
}

func invalidIDs(entity, field string) error {
	return &models.ValidationError{Entity: entity, Violations: validation.Violations{field: "not_found"}}
}

func invalidValue(entity, field string) error {
	return &models.ValidationError{Entity: entity, Violations: validation.Violations{field: "unknown_value"}}
}
