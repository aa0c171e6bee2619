package handlers

import (
	"log"

	"loja/internal/middleware"
	"loja/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app. All cart
// routes require authentication.
func (h *CartHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	cartRoutes := router.Group("/cart", authRequired)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Get("/summary", h.HandleGetSummary)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:id", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// HandleGetCart returns the user's cart, creating an empty one on first use.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetOrCreateCart(middleware.UserID(c))
	if err != nil {
		log.Printf("Error loading cart: %v", err)
		return fail(c, err, "Could not retrieve cart")
	}
	return c.JSON(cart)
}

// HandleGetSummary returns the cart's lines with the live total.
func (h *CartHandler) HandleGetSummary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(middleware.UserID(c))
	if err != nil {
		log.Printf("Error building cart summary: %v", err)
		return fail(c, err, "Could not retrieve cart summary")
	}
	return c.JSON(summary)
}

// AddItemRequest is the request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// HandleAddItem adds a product line to the cart, summing quantities when the
// product already has a line.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	item, err := h.service.AddItem(middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, err, "Could not add item to cart")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateItemRequest is the request body for overwriting a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// HandleUpdateItem overwrites a cart line's quantity.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	item, err := h.service.UpdateItemQuantity(c.Params("id"), req.Quantity)
	if err != nil {
		return fail(c, err, "Could not update cart item")
	}
	return c.JSON(item)
}

// HandleRemoveItem removes one line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	if err := h.service.RemoveItem(c.Params("id")); err != nil {
		return fail(c, err, "Could not remove cart item")
	}
	return c.JSON(fiber.Map{
		"message": "Item removed from cart",
	})
}

// HandleClearCart removes every line from the user's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.service.Clear(middleware.UserID(c)); err != nil {
		log.Printf("Error clearing cart: %v", err)
		return fail(c, err, "Could not clear cart")
	}
	return c.JSON(fiber.Map{
		"message": "Cart cleared",
	})
}
