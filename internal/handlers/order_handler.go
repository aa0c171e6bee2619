package handlers

import (
	"log"

	"loja/internal/middleware"
	"loja/internal/models"
	"loja/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders. Checkout, listing and
// cancellation belong to the authenticated owner; status updates are
// admin-only.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, authRequired, adminRequired fiber.Handler) {
	orderRoutes := router.Group("/orders", authRequired)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleGetUserOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Patch("/:id/status", adminRequired, h.HandleUpdateOrderStatus)
}

// CreateOrderRequest is the checkout request body.
type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=1"`
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=credit_card debit_card pix boleto"`
}

// HandleCreateOrder converts the user's cart into a pending order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	order, err := h.service.CreateFromCart(middleware.UserID(c), req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return fail(c, err, "Could not create order")
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetUserOrders lists the authenticated user's orders.
func (h *OrderHandler) HandleGetUserOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetUserOrders(middleware.UserID(c))
	if err != nil {
		log.Printf("Error getting user orders: %v", err)
		return fail(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID returns one order. Non-admin callers can only see
// their own orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrderByID(c.Params("id"))
	if err != nil {
		return fail(c, err, "Could not retrieve order")
	}
	if !h.canAccess(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have access to this order",
		})
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order the caller owns (or any order, for an
// admin). Delivered orders cannot be cancelled.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrderByID(c.Params("id"))
	if err != nil {
		return fail(c, err, "Could not retrieve order")
	}
	if !h.canAccess(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "You do not have access to this order",
		})
	}

	cancelled, err := h.service.Cancel(order.ID)
	if err != nil {
		log.Printf("Error cancelling order %s: %v", order.ID, err)
		return fail(c, err, "Could not cancel order")
	}
	return c.JSON(cancelled)
}

// UpdateStatusRequest is the request body for an admin status update.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
}

// HandleUpdateOrderStatus sets an order's status.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	order, err := h.service.UpdateStatus(c.Params("id"), req.Status)
	if err != nil {
		log.Printf("Error updating status for order %s: %v", c.Params("id"), err)
		return fail(c, err, "Could not update order status")
	}
	return c.JSON(order)
}

func (h *OrderHandler) canAccess(c *fiber.Ctx, order *models.Order) bool {
	role, _ := c.Locals("role").(string)
	return role == models.RoleAdmin || order.UserID == middleware.UserID(c)
}
