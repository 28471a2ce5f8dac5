package services

import (
	"errors"
	"log"
	"sort"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/pkg/rabbitmq"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup term resolves to no product, or
// when a restore targets a product that is not hidden.
var ErrNotFound = repositories.ErrNotFound

// ErrUnexpected is the only error surfaced for persistence failures that
// are not uniqueness violations. The underlying cause is logged, never
// returned to the caller.
var ErrUnexpected = errors.New("unexpected error, check logs")

// CreateProductInput carries the attributes for a new product. Images
// are plain URL strings; the service turns them into owned image rows.
type CreateProductInput struct {
	Title       string   `json:"title" validate:"required,min=1"`
	Slug        string   `json:"slug"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Description string   `json:"description"`
	Sizes       []string `json:"sizes"`
	Gender      string   `json:"gender" validate:"required,oneof=men women kid unisex"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
}

// UpdateProductInput is a sparse update: only non-nil fields override
// the stored row. A non-nil Images list replaces the whole image set; a
// nil one leaves it alone.
type UpdateProductInput struct {
	Title       *string  `json:"title" validate:"omitempty,min=1"`
	Slug        *string  `json:"slug"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Description *string  `json:"description"`
	Sizes       []string `json:"sizes"`
	Gender      *string  `json:"gender" validate:"omitempty,oneof=men women kid unisex"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
}

// Pagination bounds the default product listing.
type Pagination struct {
	Limit  int `query:"limit" validate:"omitempty,gt=0"`
	Offset int `query:"offset" validate:"omitempty,gte=0"`
}

// ProductService owns the product lifecycle: creation, listing, lookup,
// update with image replacement, hide and restore.
type ProductService struct {
	repo   repositories.ProductRepository
	events *rabbitmq.Client
}

// NewProductService creates a new ProductService. The events client is
// optional; a nil client disables event publication.
func NewProductService(repo repositories.ProductRepository, events *rabbitmq.Client) *ProductService {
	return &ProductService{
		repo:   repo,
		events: events,
	}
}

// classifyWriteError funnels every persistence failure from a write path
// through one classification step: uniqueness violations keep their
// constraint detail and surface as client-input errors, everything else
// is logged and replaced with a generic error.
func (s *ProductService) classifyWriteError(err error) error {
	var dup *repositories.DuplicateError
	if errors.As(err, &dup) {
		return dup
	}
	log.Printf("ProductService: unexpected persistence error: %v", err)
	return ErrUnexpected
}

func (s *ProductService) publish(event, productID string) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{"event": event, "product_id": productID}
	if err := s.events.PublishProductEvent(event, payload); err != nil {
		log.Printf("Warning: failed to publish %s event for product %s: %v", event, productID, err)
	}
}

func imageRows(urls []string) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(urls))
	for _, url := range urls {
		images = append(images, models.ProductImage{URL: url})
	}
	return images
}

// Create persists a new visible product together with one image row per
// supplied URL, in order.
func (s *ProductService) Create(input CreateProductInput) (*models.PlainProduct, error) {
	product := &models.Product{
		Title:       input.Title,
		Slug:        input.Slug,
		Price:       input.Price,
		Stock:       input.Stock,
		Description: input.Description,
		Sizes:       input.Sizes,
		Gender:      input.Gender,
		Tags:        input.Tags,
		Visible:     true,
		Images:      imageRows(input.Images),
	}
	if err := s.repo.Create(product); err != nil {
		return nil, s.classifyWriteError(err)
	}
	s.publish("product.created", product.ID)
	return product.Plain(), nil
}

// FindAll returns visible products in creation order. Limit defaults to
// 10 and offset to 0.
func (s *ProductService) FindAll(p Pagination) ([]models.PlainProduct, error) {
	if p.Limit == 0 {
		p.Limit = 10
	}
	products, err := s.repo.FindVisible(p.Limit, p.Offset)
	if err != nil {
		return nil, s.classifyWriteError(err)
	}
	return flatten(products), nil
}

// FindAllDeleted returns every hidden product, unpaginated.
func (s *ProductService) FindAllDeleted() ([]models.PlainProduct, error) {
	products, err := s.repo.FindHidden()
	if err != nil {
		return nil, s.classifyWriteError(err)
	}
	return flatten(products), nil
}

// FindAllTags returns the deduplicated union of tags across every
// product, hidden ones included, sorted lexicographically.
func (s *ProductService) FindAllTags() ([]string, error) {
	products, err := s.repo.FindAll()
	if err != nil {
		return nil, s.classifyWriteError(err)
	}
	set := make(map[string]struct{})
	for _, product := range products {
		for _, tag := range product.Tags {
			set[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// FindOne resolves a term to a product of any visibility. A term that
// parses as a UUID is looked up by id; anything else matches a title
// case-insensitively or a slug exactly. Returns the full entity with its
// image records; FindOnePlain flattens them for external callers.
func (s *ProductService) FindOne(term string) (*models.Product, error) {
	var product *models.Product
	var err error
	if _, parseErr := uuid.Parse(term); parseErr == nil {
		product, err = s.repo.FindByID(term)
	} else {
		product, err = s.repo.FindByTerm(term)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.classifyWriteError(err)
	}
	return product, nil
}

// FindOnePlain is FindOne with images flattened to URL strings.
func (s *ProductService) FindOnePlain(term string) (*models.PlainProduct, error) {
	product, err := s.FindOne(term)
	if err != nil {
		return nil, err
	}
	return product.Plain(), nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Title != nil {
		product.Title = *input.Title
	}
	if input.Slug != nil {
		product.Slug = *input.Slug
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Sizes != nil {
		product.Sizes = input.Sizes
	}
	if input.Gender != nil {
		product.Gender = *input.Gender
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
}

// Update merges the sparse input onto the stored row. NotFound is
// resolved before any transactional work. When the input carries an
// image list the old image rows are deleted and the new ones created
// atomically with the attribute save; a failure at any step rolls the
// whole replacement back.
func (s *ProductService) Update(id string, input UpdateProductInput) (*models.PlainProduct, error) {
	product, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.classifyWriteError(err)
	}

	applyUpdate(product, input)

	if input.Images != nil {
		err = s.repo.SaveReplacingImages(product, imageRows(input.Images))
	} else {
		err = s.repo.Save(product)
	}
	if err != nil {
		return nil, s.classifyWriteError(err)
	}

	log.Printf("Product updated: %s", id)
	s.publish("product.updated", id)
	return s.FindOnePlain(id)
}

// Remove hides a product: it disappears from the default listing but
// stays addressable by lookup. The term follows FindOne semantics.
func (s *ProductService) Remove(term string) (*models.Product, error) {
	product, err := s.FindOne(term)
	if err != nil {
		return nil, err
	}
	product.Visible = false
	if err := s.repo.Save(product); err != nil {
		return nil, s.classifyWriteError(err)
	}
	log.Printf("Product hidden: %s", product.ID)
	s.publish("product.removed", product.ID)
	return product, nil
}

// Restore makes a hidden product visible again. A product that is not
// currently hidden is treated as not found.
func (s *ProductService) Restore(id string) error {
	product, err := s.repo.FindHiddenByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return s.classifyWriteError(err)
	}
	product.Visible = true
	if err := s.repo.Save(product); err != nil {
		return s.classifyWriteError(err)
	}
	log.Printf("Product restored: %s", id)
	s.publish("product.restored", id)
	return nil
}

// DeleteAllProducts hard-deletes every product row. Reset path for test
// and administrative use; not exposed over HTTP.
func (s *ProductService) DeleteAllProducts() error {
	if err := s.repo.DeleteAll(); err != nil {
		return s.classifyWriteError(err)
	}
	return nil
}

func flatten(products []models.Product) []models.PlainProduct {
	plain := make([]models.PlainProduct, 0, len(products))
	for i := range products {
		plain = append(plain, *products[i].Plain())
	}
	return plain
}
