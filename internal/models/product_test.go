package models_test

import (
	"testing"

	"tienda/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestProductBeforeSave_DerivesSlugFromTitle(t *testing.T) {
	product := models.Product{Title: "Men's Classic Tee"}

	err := product.BeforeSave(nil)
	assert.NoError(t, err)
	assert.Equal(t, "mens_classic_tee", product.Slug)
}

func TestProductBeforeSave_NormalizesExplicitSlug(t *testing.T) {
	product := models.Product{Title: "Classic Tee", Slug: "Classic Tee's Slug"}

	err := product.BeforeSave(nil)
	assert.NoError(t, err)
	assert.Equal(t, "classic_tees_slug", product.Slug)
}

func TestProductPlain_FlattensImagesInOrder(t *testing.T) {
	product := models.Product{
		ID:    "abc",
		Title: "Classic Tee",
		Images: []models.ProductImage{
			{ID: 1, URL: "http://img/one.jpg"},
			{ID: 2, URL: "http://img/two.jpg"},
		},
	}

	plain := product.Plain()
	assert.Equal(t, []string{"http://img/one.jpg", "http://img/two.jpg"}, plain.Images)
	assert.Equal(t, "abc", plain.ID)
}

func TestProductPlain_EmptyImages(t *testing.T) {
	product := models.Product{ID: "abc", Title: "Classic Tee"}

	plain := product.Plain()
	assert.NotNil(t, plain.Images)
	assert.Empty(t, plain.Images)
}
