package handlers

import (
	"log"

	"loja/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the back-office: dashboard, stock management, user
// and order views. Every route requires the admin role.
type AdminHandler struct {
	admin    *services.AdminService
	orders   *services.OrderService
	stock    *services.StockService
	validate *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *services.AdminService, orders *services.OrderService, stock *services.StockService) *AdminHandler {
	return &AdminHandler{
		admin:    admin,
		orders:   orders,
		stock:    stock,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the admin routes with the Fiber app.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, authRequired, adminRequired fiber.Handler) {
	adminRoutes := router.Group("/admin", authRequired, adminRequired)
	adminRoutes.Get("/dashboard", h.HandleGetDashboard)
	adminRoutes.Get("/products/low-stock", h.HandleGetLowStock)
	adminRoutes.Patch("/products/:id/stock", h.HandleUpdateStock)
	adminRoutes.Get("/orders", h.HandleGetAllOrders)
	adminRoutes.Get("/orders/stats", h.HandleGetOrderStats)
	adminRoutes.Get("/orders/status/:status", h.HandleGetOrdersByStatus)
	adminRoutes.Get("/orders/recent", h.HandleGetRecentOrders)
	adminRoutes.Get("/users", h.HandleGetUsers)
	adminRoutes.Get("/users/:id", h.HandleGetUserDetails)
}

// HandleGetDashboard returns the back-office overview.
func (h *AdminHandler) HandleGetDashboard(c *fiber.Ctx) error {
	dashboard, err := h.admin.GetDashboard()
	if err != nil {
		log.Printf("Error building dashboard: %v", err)
		return fail(c, err, "Could not build dashboard")
	}
	return c.JSON(dashboard)
}

// HandleGetLowStock lists products at or under the stock threshold.
func (h *AdminHandler) HandleGetLowStock(c *fiber.Ctx) error {
	threshold := c.QueryInt("threshold", services.DefaultLowStockThreshold)
	products, err := h.admin.GetLowStockProducts(threshold)
	if err != nil {
		log.Printf("Error listing low stock products: %v", err)
		return fail(c, err, "Could not list low stock products")
	}
	return c.JSON(fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// UpdateStockRequest is the request body for a stock override. Operation
// "set" overwrites the level; "adjust" shifts it by the (signed) quantity.
type UpdateStockRequest struct {
	Operation string `json:"operation" validate:"required,oneof=set adjust"`
	Quantity  int    `json:"quantity"`
}

// HandleUpdateStock applies an administrative stock override through the
// stock ledger.
func (h *AdminHandler) HandleUpdateStock(c *fiber.Ctx) error {
	var req UpdateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	productID := c.Params("id")
	var err error
	if req.Operation == "set" {
		err = h.stock.SetStock(productID, req.Quantity)
	} else {
		err = h.stock.AdjustStock(productID, req.Quantity)
	}
	if err != nil {
		log.Printf("Error updating stock for product %s: %v", productID, err)
		return fail(c, err, "Could not update stock")
	}
	return c.JSON(fiber.Map{
		"message": "Stock updated successfully",
	})
}

// HandleGetAllOrders lists every order.
func (h *AdminHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	orders, err := h.orders.GetAllOrders()
	if err != nil {
		log.Printf("Error getting all orders: %v", err)
		return fail(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderStats returns order counts per status.
func (h *AdminHandler) HandleGetOrderStats(c *fiber.Ctx) error {
	stats, err := h.orders.Stats()
	if err != nil {
		log.Printf("Error aggregating order stats: %v", err)
		return fail(c, err, "Could not retrieve order stats")
	}
	return c.JSON(stats)
}

// HandleGetOrdersByStatus lists orders in one status.
func (h *AdminHandler) HandleGetOrdersByStatus(c *fiber.Ctx) error {
	orders, err := h.orders.GetOrdersByStatus(c.Params("status"))
	if err != nil {
		return fail(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetRecentOrders lists the latest orders.
func (h *AdminHandler) HandleGetRecentOrders(c *fiber.Ctx) error {
	orders, err := h.orders.GetRecentOrders(c.QueryInt("limit", 10))
	if err != nil {
		log.Printf("Error getting recent orders: %v", err)
		return fail(c, err, "Could not retrieve recent orders")
	}
	return c.JSON(orders)
}

// HandleGetUsers lists all users.
func (h *AdminHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.admin.GetUsers()
	if err != nil {
		log.Printf("Error listing users: %v", err)
		return fail(c, err, "Could not retrieve users")
	}
	return c.JSON(users)
}

// HandleGetUserDetails returns a user with their order history.
func (h *AdminHandler) HandleGetUserDetails(c *fiber.Ctx) error {
	details, err := h.admin.GetUserDetails(c.Params("id"))
	if err != nil {
		return fail(c, err, "Could not retrieve user details")
	}
	return c.JSON(details)
}
