package services_test

import (
	"fmt"
	"strings"
	"testing"

	"tienda/internal/models"
	"tienda/internal/repositories"
	"tienda/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupService builds a ProductService backed by a fresh in-memory
// SQLite database. Each test gets its own named database so state never
// leaks between tests.
func setupService(t *testing.T) (*services.ProductService, *gorm.DB) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}

	if err := db.AutoMigrate(&models.Product{}, &models.ProductImage{}); err != nil {
		t.Fatalf("failed to auto-migrate database: %v", err)
	}

	repo := repositories.NewGORMProductRepository(db)
	return services.NewProductService(repo, nil), db
}

func createProduct(t *testing.T, service *services.ProductService, title string, images []string, tags []string) *models.PlainProduct {
	t.Helper()

	product, err := service.Create(services.CreateProductInput{
		Title:  title,
		Price:  19.99,
		Stock:  5,
		Gender: "unisex",
		Tags:   tags,
		Images: images,
	})
	if err != nil {
		t.Fatalf("failed to create product %q: %v", title, err)
	}
	return product
}

func TestProductService_CreateReturnsImagesInOrder(t *testing.T) {
	service, _ := setupService(t)

	urls := []string{"http://img/one.jpg", "http://img/two.jpg", "http://img/three.jpg"}
	created := createProduct(t, service, "Classic Tee", urls, nil)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, urls, created.Images)
	assert.True(t, created.Visible)

	fetched, err := service.FindOnePlain(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, urls, fetched.Images)
}

func TestProductService_CreateDerivesSlugFromTitle(t *testing.T) {
	service, _ := setupService(t)

	created := createProduct(t, service, "Men's Classic Tee", nil, nil)
	assert.Equal(t, "mens_classic_tee", created.Slug)
}

func TestProductService_CreateDuplicateTitle(t *testing.T) {
	service, _ := setupService(t)

	first := createProduct(t, service, "Classic Tee", []string{"http://img/a.jpg"}, nil)

	_, err := service.Create(services.CreateProductInput{
		Title:  "Classic Tee",
		Gender: "men",
	})
	assert.Error(t, err)
	var dup *repositories.DuplicateError
	assert.ErrorAs(t, err, &dup)
	assert.NotEmpty(t, dup.Detail)

	// The first product is unaffected.
	fetched, err := service.FindOnePlain(first.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"http://img/a.jpg"}, fetched.Images)
}

func TestProductService_FindOneByTerm(t *testing.T) {
	service, _ := setupService(t)

	created := createProduct(t, service, "Classic Tee", nil, nil)
	assert.Equal(t, "classic_tee", created.Slug)

	bySlug, err := service.FindOne("classic_tee")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	byTitle, err := service.FindOne("classic tee")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, byTitle.ID)

	byID, err := service.FindOne(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	_, err = service.FindOne(uuid.New().String())
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = service.FindOne("no-such-product")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProductService_UpdateMergesSparseFields(t *testing.T) {
	service, _ := setupService(t)

	created := createProduct(t, service, "Classic Tee", []string{"http://img/a.jpg"}, []string{"shirt"})

	newPrice := 42.5
	updated, err := service.Update(created.ID, services.UpdateProductInput{
		Price: &newPrice,
	})
	assert.NoError(t, err)
	assert.Equal(t, 42.5, updated.Price)
	// Untouched fields and images survive.
	assert.Equal(t, "Classic Tee", updated.Title)
	assert.Equal(t, []string{"shirt"}, updated.Tags)
	assert.Equal(t, []string{"http://img/a.jpg"}, updated.Images)
}

func TestProductService_UpdateNotFound(t *testing.T) {
	service, _ := setupService(t)

	title := "Ghost"
	_, err := service.Update(uuid.New().String(), services.UpdateProductInput{Title: &title})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProductService_UpdateReplacesImageSet(t *testing.T) {
	service, db := setupService(t)

	created := createProduct(t, service, "Classic Tee", []string{"http://img/a.jpg", "http://img/b.jpg"}, nil)

	updated, err := service.Update(created.ID, services.UpdateProductInput{
		Images: []string{"http://img/c.jpg"},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"http://img/c.jpg"}, updated.Images)

	// The old image rows are gone, not just orphaned.
	var count int64
	err = db.Model(&models.ProductImage{}).Where("product_id = ?", created.ID).Count(&count).Error
	assert.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestProductService_UpdateRollsBackImageReplacementOnFailure(t *testing.T) {
	service, db := setupService(t)

	createProduct(t, service, "Classic Tee", nil, nil)
	victim := createProduct(t, service, "Other Tee", []string{"http://img/a.jpg", "http://img/b.jpg"}, nil)

	// The duplicate title makes the product save fail inside the
	// transaction, after the old image rows were already deleted.
	dupTitle := "Classic Tee"
	_, err := service.Update(victim.ID, services.UpdateProductInput{
		Title:  &dupTitle,
		Images: []string{"http://img/c.jpg"},
	})
	assert.Error(t, err)
	var dup *repositories.DuplicateError
	assert.ErrorAs(t, err, &dup)

	// Rollback restored the pre-update image set.
	fetched, err := service.FindOnePlain(victim.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Other Tee", fetched.Title)
	assert.Equal(t, []string{"http://img/a.jpg", "http://img/b.jpg"}, fetched.Images)

	var count int64
	err = db.Model(&models.ProductImage{}).Where("product_id = ?", victim.ID).Count(&count).Error
	assert.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestProductService_RemoveAndRestore(t *testing.T) {
	service, _ := setupService(t)

	created := createProduct(t, service, "Classic Tee", nil, nil)

	removed, err := service.Remove(created.ID)
	assert.NoError(t, err)
	assert.False(t, removed.Visible)

	// Hidden products stay addressable by lookup but leave the listing.
	fetched, err := service.FindOnePlain(created.ID)
	assert.NoError(t, err)
	assert.False(t, fetched.Visible)

	listed, err := service.FindAll(services.Pagination{})
	assert.NoError(t, err)
	assert.Empty(t, listed)

	err = service.Restore(created.ID)
	assert.NoError(t, err)

	listed, err = service.FindAll(services.Pagination{})
	assert.NoError(t, err)
	assert.Len(t, listed, 1)
	assert.True(t, listed[0].Visible)
}

func TestProductService_RestoreVisibleProductNotFound(t *testing.T) {
	service, _ := setupService(t)

	created := createProduct(t, service, "Classic Tee", nil, nil)

	err := service.Restore(created.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestProductService_RemoveBySlug(t *testing.T) {
	service, _ := setupService(t)

	created := createProduct(t, service, "Classic Tee", nil, nil)

	removed, err := service.Remove("classic_tee")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, removed.ID)
	assert.False(t, removed.Visible)
}

func TestProductService_ListingsPartitionByVisibility(t *testing.T) {
	service, _ := setupService(t)

	a := createProduct(t, service, "Product A", nil, nil)
	b := createProduct(t, service, "Product B", nil, nil)
	c := createProduct(t, service, "Product C", nil, nil)

	_, err := service.Remove(b.ID)
	assert.NoError(t, err)

	visible, err := service.FindAll(services.Pagination{})
	assert.NoError(t, err)
	hidden, err := service.FindAllDeleted()
	assert.NoError(t, err)

	visibleIDs := make(map[string]bool)
	for _, p := range visible {
		assert.True(t, p.Visible)
		visibleIDs[p.ID] = true
	}
	assert.True(t, visibleIDs[a.ID])
	assert.True(t, visibleIDs[c.ID])

	assert.Len(t, hidden, 1)
	assert.Equal(t, b.ID, hidden[0].ID)
	assert.False(t, hidden[0].Visible)

	assert.Equal(t, 3, len(visible)+len(hidden))
}

func TestProductService_FindAllPagination(t *testing.T) {
	service, _ := setupService(t)

	for i := 0; i < 12; i++ {
		createProduct(t, service, fmt.Sprintf("Product %02d", i), nil, nil)
	}

	// Default limit is 10.
	page, err := service.FindAll(services.Pagination{})
	assert.NoError(t, err)
	assert.Len(t, page, 10)

	page, err = service.FindAll(services.Pagination{Limit: 5, Offset: 10})
	assert.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestProductService_FindAllTagsUnionAcrossVisibility(t *testing.T) {
	service, _ := setupService(t)

	createProduct(t, service, "Product A", nil, []string{"red", "shoe"})
	b := createProduct(t, service, "Product B", nil, []string{"shoe", "blue"})

	_, err := service.Remove(b.ID)
	assert.NoError(t, err)

	tags, err := service.FindAllTags()
	assert.NoError(t, err)
	assert.Equal(t, []string{"blue", "red", "shoe"}, tags)
}

func TestProductService_DeleteAllProducts(t *testing.T) {
	service, db := setupService(t)

	createProduct(t, service, "Product A", []string{"http://img/a.jpg"}, nil)
	b := createProduct(t, service, "Product B", nil, nil)
	_, err := service.Remove(b.ID)
	assert.NoError(t, err)

	err = service.DeleteAllProducts()
	assert.NoError(t, err)

	visible, err := service.FindAll(services.Pagination{})
	assert.NoError(t, err)
	assert.Empty(t, visible)
	hidden, err := service.FindAllDeleted()
	assert.NoError(t, err)
	assert.Empty(t, hidden)

	var imageCount int64
	err = db.Model(&models.ProductImage{}).Count(&imageCount).Error
	assert.NoError(t, err)
	assert.EqualValues(t, 0, imageCount)
}

// MockProductRepository is a testify mock of repositories.ProductRepository
// used to drive error paths that the real store will not produce.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) FindVisible(limit, offset int) ([]models.Product, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) FindHidden() ([]models.Product, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll() ([]models.Product, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) FindByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) FindHiddenByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) FindByTerm(term string) (*models.Product, error) {
	args := m.Called(term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Save(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) SaveReplacingImages(product *models.Product, images []models.ProductImage) error {
	args := m.Called(product, images)
	return args.Error(0)
}

func (m *MockProductRepository) DeleteAll() error {
	args := m.Called()
	return args.Error(0)
}

func TestProductService_CreateClassifiesUnexpectedErrors(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("Create", mock.Anything).Return(fmt.Errorf("connection reset by peer")).Once()

	_, err := service.Create(services.CreateProductInput{Title: "Classic Tee", Gender: "men"})
	// The store detail must never leak to the caller.
	assert.ErrorIs(t, err, services.ErrUnexpected)
	assert.NotContains(t, err.Error(), "connection reset")
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreatePassesDuplicateDetailThrough(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("Create", mock.Anything).
		Return(&repositories.DuplicateError{Detail: "Key (title)=(Classic Tee) already exists"}).Once()

	_, err := service.Create(services.CreateProductInput{Title: "Classic Tee", Gender: "men"})
	var dup *repositories.DuplicateError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "Key (title)=(Classic Tee) already exists", dup.Detail)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateResolvesNotFoundBeforeAnyWrite(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	id := uuid.New().String()
	mockRepo.On("FindByID", id).Return(nil, repositories.ErrNotFound).Once()

	title := "Ghost"
	_, err := service.Update(id, services.UpdateProductInput{
		Title:  &title,
		Images: []string{"http://img/a.jpg"},
	})
	assert.ErrorIs(t, err, services.ErrNotFound)
	// No Save or SaveReplacingImages call happened.
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything)
	mockRepo.AssertNotCalled(t, "SaveReplacingImages", mock.Anything, mock.Anything)
}
