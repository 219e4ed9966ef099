package models

import (
	"gorm.io/gorm"
)

// fresh returns a handle on the same connection (and transaction) as tx but
// with an empty statement, for queries issued from inside a hook.
func fresh(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true})
}

// protect fails with a *ProtectedError when rows of dependent still point at id.
func protect(tx *gorm.DB, entity string, id uint, dependent string, model any, column string) error {
	var count int64
	if err := fresh(tx).Model(model).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &ProtectedError{Entity: entity, ID: id, Dependent: dependent, Count: count}
	}
	return nil
}

// taken reports whether another row of model already holds value in column.
func taken(tx *gorm.DB, model any, column string, value any, id uint) (bool, error) {
	var count int64
	q := fresh(tx).Model(model).Where(column+" = ?", value)
	if id != 0 {
		q = q.Where("id <> ?", id)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// exists reports whether a row of model with the given id is stored.
func exists(tx *gorm.DB, model any, id uint) (bool, error) {
	var count int64
	if err := fresh(tx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
