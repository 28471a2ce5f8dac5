package handlers

import (
	"errors"
	"fmt"
	"log"

	"tienda/internal/repositories"
	"tienda/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes with the Fiber app. The
// authRequired middleware guards the mutating routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	products := router.Group("/products")
	products.Post("/", h.HandleCreate)
	products.Get("/", h.HandleFindAll)
	products.Get("/deleted", h.HandleFindAllDeleted)
	products.Get("/tags", h.HandleFindAllTags)
	products.Get("/:term", h.HandleFindOne)
	products.Patch("/:id/restore", authRequired, h.HandleRestore)
	products.Patch("/:id", authRequired, h.HandleUpdate)
	products.Delete("/:id", authRequired, h.HandleRemove)
}

// validationErrorResponse formats validator failures as field messages.
func validationErrorResponse(c *fiber.Ctx, err error) error {
	validationErrors := err.(validator.ValidationErrors)
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// serviceErrorResponse maps the service error taxonomy to HTTP statuses:
// NotFound to 404, uniqueness violations to 400 with the constraint
// detail, everything else to a generic 500.
func serviceErrorResponse(c *fiber.Ctx, err error) error {
	var dup *repositories.DuplicateError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	case errors.As(err, &dup):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": dup.Detail,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": services.ErrUnexpected.Error(),
		})
	}
}

// HandleCreate creates a new product.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var input services.CreateProductInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing create product body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return validationErrorResponse(c, err)
	}

	product, err := h.service.Create(input)
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleFindAll lists visible products, paginated.
func (h *ProductHandler) HandleFindAll(c *fiber.Ctx) error {
	var pagination services.Pagination
	if err := c.QueryParser(&pagination); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid pagination query",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(pagination); err != nil {
		return validationErrorResponse(c, err)
	}

	products, err := h.service.FindAll(pagination)
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.JSON(products)
}

// HandleFindAllDeleted lists every hidden product.
func (h *ProductHandler) HandleFindAllDeleted(c *fiber.Ctx) error {
	products, err := h.service.FindAllDeleted()
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.JSON(products)
}

// HandleFindAllTags returns the tag union across all products.
func (h *ProductHandler) HandleFindAllTags(c *fiber.Ctx) error {
	tags, err := h.service.FindAllTags()
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"tags": tags,
	})
}

// HandleFindOne resolves an id, slug, or title to a single product.
func (h *ProductHandler) HandleFindOne(c *fiber.Ctx) error {
	term := c.Params("term")
	product, err := h.service.FindOnePlain(term)
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.JSON(product)
}

// HandleUpdate applies a sparse update, optionally replacing the image
// set. The path parameter must be a product id, not a slug or title.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product id",
		})
	}

	var input services.UpdateProductInput
	if err := c.BodyParser(&input); err != nil {
		log.Printf("Error parsing update product body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return validationErrorResponse(c, err)
	}

	product, err := h.service.Update(id, input)
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.JSON(product)
}

// HandleRemove hides a product from the default listing.
func (h *ProductHandler) HandleRemove(c *fiber.Ctx) error {
	product, err := h.service.Remove(c.Params("id"))
	if err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"msg":     "removed",
		"product": product,
	})
}

// HandleRestore makes a hidden product visible again.
func (h *ProductHandler) HandleRestore(c *fiber.Ctx) error {
	if err := h.service.Restore(c.Params("id")); err != nil {
		return serviceErrorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
