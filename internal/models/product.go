package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Product represents a catalog product. Title and slug are unique across
// all products, hidden ones included. Visible=false marks a soft-deleted
// product: it stays addressable by id/slug lookup but is excluded from
// the default listing.
type Product struct {
	ID          string         `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Title       string         `json:"title" gorm:"uniqueIndex;type:varchar(255)" validate:"required,min=1"`
	Slug        string         `json:"slug" gorm:"uniqueIndex;type:varchar(255)"`
	Price       float64        `json:"price" validate:"gte=0"`
	Stock       int            `json:"stock" validate:"gte=0"`
	Description string         `json:"description"`
	Sizes       []string       `json:"sizes" gorm:"serializer:json"`
	Gender      string         `json:"gender" validate:"required,oneof=men women kid unisex"`
	Tags        []string       `json:"tags" gorm:"serializer:json"`
	Visible     bool           `json:"visible" gorm:"default:true"`
	Images      []ProductImage `json:"images" gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ProductImage is a single image URL owned by exactly one product. Rows
// are replaced wholesale when a product's image set is updated.
type ProductImage struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	URL       string `json:"url" gorm:"type:text"`
	ProductID string `json:"-" gorm:"type:varchar(36);index"`
}

// BeforeSave derives the slug from the title when absent and normalizes
// it either way: lowercase, spaces to underscores, apostrophes stripped.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = p.Title
	}
	p.Slug = strings.ToLower(p.Slug)
	p.Slug = strings.ReplaceAll(p.Slug, " ", "_")
	p.Slug = strings.ReplaceAll(p.Slug, "'", "")
	return nil
}

// PlainProduct is the external view of a product: identical to Product
// except images are flattened to their URL strings.
type PlainProduct struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Description string    `json:"description"`
	Sizes       []string  `json:"sizes"`
	Gender      string    `json:"gender"`
	Tags        []string  `json:"tags"`
	Visible     bool      `json:"visible"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Plain flattens the product's image records to URL strings.
func (p *Product) Plain() *PlainProduct {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, img.URL)
	}
	return &PlainProduct{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Price:       p.Price,
		Stock:       p.Stock,
		Description: p.Description,
		Sizes:       p.Sizes,
		Gender:      p.Gender,
		Tags:        p.Tags,
		Visible:     p.Visible,
		Images:      urls,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
