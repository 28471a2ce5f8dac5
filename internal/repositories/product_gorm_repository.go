package repositories

import (
	"errors"
	"fmt"
	"strings"

	"tienda/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// isUniqueViolation reports whether err comes from a uniqueness
// constraint. Covers GORM's translated error plus the raw messages from
// the postgres (23505) and sqlite drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// wrapWriteError maps uniqueness violations to DuplicateError and leaves
// everything else wrapped as-is.
func wrapWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return &DuplicateError{Detail: err.Error()}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Create persists a new product and its image rows as one unit.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.Create(product).Error; err != nil {
		return wrapWriteError("failed to create product", err)
	}
	return nil
}

// FindVisible retrieves visible products in creation order, paginated.
func (r *GORMProductRepository) FindVisible(limit, offset int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.Preload("Images").
		Where("visible = ?", true).
		Order("created_at").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get visible products: %w", err)
	}
	return products, nil
}

// FindHidden retrieves every soft-deleted product, unpaginated.
func (r *GORMProductRepository) FindHidden() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Preload("Images").
		Where("visible = ?", false).
		Order("created_at").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get hidden products: %w", err)
	}
	return products, nil
}

// FindAll retrieves every product regardless of visibility.
func (r *GORMProductRepository) FindAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Preload("Images").Order("created_at").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by id, any visibility.
func (r *GORMProductRepository) FindByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Images").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// FindHiddenByID retrieves a product by id only if it is soft-deleted.
func (r *GORMProductRepository) FindHiddenByID(id string) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Images").
		Where("id = ? AND visible = ?", id, false).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hidden product by ID %s: %w", id, err)
	}
	return &product, nil
}

// FindByTerm retrieves a product by case-insensitive title or exact slug
// match, any visibility. First row in creation order wins.
func (r *GORMProductRepository) FindByTerm(term string) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Images").
		Where("LOWER(title) = LOWER(?) OR slug = ?", term, term).
		Order("created_at").
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by term %s: %w", term, err)
	}
	return &product, nil
}

// Save updates the product's own columns. Image rows are never touched
// here; SaveReplacingImages owns those.
func (r *GORMProductRepository) Save(product *models.Product) error {
	if err := r.db.Omit(clause.Associations).Save(product).Error; err != nil {
		return wrapWriteError("failed to save product", err)
	}
	return nil
}

// SaveReplacingImages atomically deletes the product's existing image
// rows, saves the updated product columns, and inserts the new image
// rows. Any failure rolls the whole sequence back; the transaction is
// committed or rolled back and released exactly once by gorm.
func (r *GORMProductRepository) SaveReplacingImages(product *models.Product, images []models.ProductImage) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].ProductID = product.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapWriteError("failed to replace product images", err)
	}
	product.Images = images
	return nil
}

// DeleteAll unconditionally removes every product and image row. This
// bypasses the soft-delete lifecycle; meant for reset scenarios.
func (r *GORMProductRepository) DeleteAll() error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.Product{}).Error
	})
	if err != nil {
		return wrapWriteError("failed to delete all products", err)
	}
	return nil
}
