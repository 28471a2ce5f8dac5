package repositories

import (
	"errors"

	"tienda/internal/models"
)

// ErrNotFound is returned when no product row matches the lookup.
var ErrNotFound = errors.New("product not found")

// DuplicateError is returned when a write violates the title or slug
// uniqueness constraint. Detail carries the store's constraint message.
type DuplicateError struct {
	Detail string
}

func (e *DuplicateError) Error() string {
	return e.Detail
}

// ProductRepository defines the interface for product data access.
// Implementations must persist a product together with its images as one
// unit and guarantee that SaveReplacingImages is atomic.
type ProductRepository interface {
	Create(product *models.Product) error
	FindVisible(limit, offset int) ([]models.Product, error)
	FindHidden() ([]models.Product, error)
	FindAll() ([]models.Product, error)
	FindByID(id string) (*models.Product, error)
	FindHiddenByID(id string) (*models.Product, error)
	FindByTerm(term string) (*models.Product, error)
	Save(product *models.Product) error
	SaveReplacingImages(product *models.Product, images []models.ProductImage) error
	DeleteAll() error
}
