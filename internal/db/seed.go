package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/recoup/internal/models"
	"gorm.io/gorm"
)

// Seed creates the named service pools that do not exist yet. Running it
// again changes nothing.
func Seed(db *gorm.DB, pools []string) (int, error) {
	created := 0
	for _, name := range pools {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var existing models.ServicePool
		err := db.Where("name = ?", name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("look up service pool %q: %w", name, err)
		}
		pool := models.ServicePool{Name: name}
		if err := db.Create(&pool).Error; err != nil {
			return created, fmt.Errorf("create service pool %q: %w", name, err)
		}
		created++
	}
	return created, nil
}
