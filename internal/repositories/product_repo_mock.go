package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tienda/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of
// ProductRepository. It mirrors the store-level behavior the GORM
// implementation relies on: title/slug uniqueness, creation order,
// atomic image replacement.
type MockProductRepository struct {
	products map[string]models.Product
	order    []string
	nextImg  uint
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

func (r *MockProductRepository) normalizeSlug(p *models.Product) {
	if p.Slug == "" {
		p.Slug = p.Title
	}
	p.Slug = strings.ToLower(p.Slug)
	p.Slug = strings.ReplaceAll(p.Slug, " ", "_")
	p.Slug = strings.ReplaceAll(p.Slug, "'", "")
}

func (r *MockProductRepository) uniqueViolation(p *models.Product) error {
	for _, other := range r.products {
		if other.ID == p.ID {
			continue
		}
		if strings.EqualFold(other.Title, p.Title) {
			return &DuplicateError{Detail: fmt.Sprintf("Key (title)=(%s) already exists", p.Title)}
		}
		if other.Slug == p.Slug {
			return &DuplicateError{Detail: fmt.Sprintf("Key (slug)=(%s) already exists", p.Slug)}
		}
	}
	return nil
}

// Create adds a new product with its images.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.normalizeSlug(product)
	if err := r.uniqueViolation(product); err != nil {
		return err
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	for i := range product.Images {
		r.nextImg++
		product.Images[i].ID = r.nextImg
		product.Images[i].ProductID = product.ID
	}
	r.products[product.ID] = *product
	r.order = append(r.order, product.ID)
	return nil
}

func (r *MockProductRepository) inCreationOrder() []models.Product {
	out := make([]models.Product, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FindVisible returns visible products in creation order, paginated.
func (r *MockProductRepository) FindVisible(limit, offset int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visible := make([]models.Product, 0)
	for _, p := range r.inCreationOrder() {
		if p.Visible {
			visible = append(visible, p)
		}
	}
	if offset >= len(visible) {
		return []models.Product{}, nil
	}
	end := offset + limit
	if end > len(visible) {
		end = len(visible)
	}
	return visible[offset:end], nil
}

// FindHidden returns every soft-deleted product in creation order.
func (r *MockProductRepository) FindHidden() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hidden := make([]models.Product, 0)
	for _, p := range r.inCreationOrder() {
		if !p.Visible {
			hidden = append(hidden, p)
		}
	}
	return hidden, nil
}

// FindAll returns every product regardless of visibility.
func (r *MockProductRepository) FindAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inCreationOrder(), nil
}

// FindByID returns a product by its ID, any visibility.
func (r *MockProductRepository) FindByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &product, nil
}

// FindHiddenByID returns a product by ID only if it is soft-deleted.
func (r *MockProductRepository) FindHiddenByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok || product.Visible {
		return nil, ErrNotFound
	}
	return &product, nil
}

// FindByTerm returns the first product, in creation order, whose title
// matches case-insensitively or whose slug matches exactly.
func (r *MockProductRepository) FindByTerm(term string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.inCreationOrder() {
		if strings.EqualFold(p.Title, term) || p.Slug == term {
			product := p
			return &product, nil
		}
	}
	return nil, ErrNotFound
}

// Save updates a product's own fields, leaving its images untouched.
func (r *MockProductRepository) Save(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	r.normalizeSlug(product)
	if err := r.uniqueViolation(product); err != nil {
		return err
	}
	product.CreatedAt = stored.CreatedAt
	product.UpdatedAt = time.Now()
	product.Images = stored.Images
	r.products[product.ID] = *product
	return nil
}

// SaveReplacingImages swaps the product's image set and saves its fields
// in one step. The in-memory map makes this trivially atomic.
func (r *MockProductRepository) SaveReplacingImages(product *models.Product, images []models.ProductImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	r.normalizeSlug(product)
	if err := r.uniqueViolation(product); err != nil {
		return err
	}
	for i := range images {
		r.nextImg++
		images[i].ID = r.nextImg
		images[i].ProductID = product.ID
	}
	product.CreatedAt = stored.CreatedAt
	product.UpdatedAt = time.Now()
	product.Images = images
	r.products[product.ID] = *product
	return nil
}

// DeleteAll removes every product unconditionally.
func (r *MockProductRepository) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products = make(map[string]models.Product)
	r.order = nil
	return nil
}

// Tags returns the sorted union of tags across all stored products.
// Helper for tests; the service computes the same union itself.
func (r *MockProductRepository) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, p := range r.products {
		for _, t := range p.Tags {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
