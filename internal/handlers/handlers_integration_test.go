package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"loja/internal/handlers"
	"loja/internal/middleware"
	"loja/internal/models"
	"loja/internal/repositories"
	"loja/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var pinPattern = regexp.MustCompile(`\d{6}`)

// captureSender records outgoing mail so tests can read the PIN back.
type captureSender struct {
	bodies []string
}

func (s *captureSender) Send(to, subject, htmlBody string) error {
	s.bodies = append(s.bodies, htmlBody)
	return nil
}

func (s *captureSender) lastPin(t *testing.T) string {
	t.Helper()
	if len(s.bodies) == 0 {
		t.Fatal("no mail was sent")
	}
	pin := pinPattern.FindString(s.bodies[len(s.bodies)-1])
	if pin == "" {
		t.Fatalf("no pin found in mail body: %q", s.bodies[len(s.bodies)-1])
	}
	return pin
}

type testEnv struct {
	app    *fiber.App
	sender *captureSender
	auth   *services.AuthService
	users  repositories.UserRepository
}

// setupEnv wires the full HTTP stack against a fresh in-memory SQLite
// database, the same way the server entrypoint does.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PinVerification{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	pinRepo := repositories.NewGORMPinRepository(db)

	sender := &captureSender{}
	stockService := services.NewStockService(productRepo)
	productService := services.NewProductService(productRepo, orderRepo)
	cartService := services.NewCartService(cartRepo, productRepo)
	orderService := services.NewOrderService(orderRepo, cartRepo, productRepo, stockService, nil)
	authService := services.NewAuthService(userRepo, pinRepo, sender, "test_jwt_secret", nil)
	adminService := services.NewAdminService(productRepo, orderRepo, userRepo)

	authRequired := middleware.AuthRequired(authService)
	adminRequired := middleware.AdminRequired()

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1, authRequired)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1, authRequired, adminRequired)
	handlers.NewCartHandler(cartService).RegisterRoutes(apiV1, authRequired)
	handlers.NewOrderHandler(orderService).RegisterRoutes(apiV1, authRequired, adminRequired)
	handlers.NewAdminHandler(adminService, orderService, stockService).RegisterRoutes(apiV1, authRequired, adminRequired)

	return &testEnv{app: app, sender: sender, auth: authService, users: userRepo}
}

// do performs a JSON request against the app and decodes the response body.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		assert.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// doList performs a JSON request whose response is a JSON array.
func (e *testEnv) doList(t *testing.T, method, path, token string) (int, []map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	var decoded []map[string]interface{}
	if len(raw) > 0 && raw[0] == '[' {
		assert.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// login runs the full request-pin / verify-pin exchange and returns the
// session token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()

	status, _ := e.do(t, http.MethodPost, "/api/v1/auth/request-pin", "", fiber.Map{"email": email})
	assert.Equal(t, http.StatusOK, status)

	pin := e.sender.lastPin(t)
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/verify-pin", "", fiber.Map{"email": email, "pin": pin})
	assert.Equal(t, http.StatusOK, status)

	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

// adminToken creates an admin user directly and issues a token for it.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	admin := &models.User{Email: "admin@loja.local", Name: "Admin", Role: models.RoleAdmin}
	assert.NoError(t, e.users.Create(admin))
	token, err := e.auth.IssueToken(admin)
	assert.NoError(t, err)
	return token
}

func (e *testEnv) createProduct(t *testing.T, adminToken, name string, price float64, stock int) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/v1/products", adminToken, fiber.Map{
		"name":        name,
		"description": "Produto de teste",
		"price":       price,
		"stock":       stock,
		"category":    "testes",
	})
	assert.Equal(t, http.StatusCreated, status)
	id, _ := body["id"].(string)
	assert.NotEmpty(t, id)
	return id
}

func (e *testEnv) productStock(t *testing.T, productID string) int {
	t.Helper()

	status, body := e.do(t, http.MethodGet, "/api/v1/products/"+productID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	stock, ok := body["stock"].(float64)
	assert.True(t, ok)
	return int(stock)
}

func TestShoppingFlow(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	user := env.login(t, "alice@example.com")

	productID := env.createProduct(t, admin, "Caneca de cerâmica", 19.90, 5)

	// Add three units to the cart.
	status, item := env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID,
		"quantity":   3,
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(3), item["quantity"])

	// The cart summary reflects the live price.
	status, summary := env.do(t, http.MethodGet, "/api/v1/cart/summary", user, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 3*19.90, summary["total"].(float64), 1e-9)

	// Nothing is reserved before checkout.
	assert.Equal(t, 5, env.productStock(t, productID))

	// Checkout.
	status, order := env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua das Flores 123, São Paulo",
		"payment_method":   "pix",
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.OrderStatusPending, order["status"])
	assert.InDelta(t, 3*19.90, order["total_amount"].(float64), 1e-9)
	orderID, _ := order["id"].(string)
	assert.NotEmpty(t, orderID)

	// Stock is reserved and the cart is emptied.
	assert.Equal(t, 2, env.productStock(t, productID))
	status, summary = env.do(t, http.MethodGet, "/api/v1/cart/summary", user, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), summary["item_count"])

	// A price change after checkout does not touch the order snapshot.
	status, _ = env.do(t, http.MethodPut, "/api/v1/products/"+productID, admin, fiber.Map{
		"name":     "Caneca de cerâmica",
		"price":    99.90,
		"stock":    2,
		"category": "testes",
	})
	assert.Equal(t, http.StatusOK, status)

	status, reloaded := env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, user, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 3*19.90, reloaded["total_amount"].(float64), 1e-9)

	// Cancelling the pending order releases the reservation.
	status, cancelled := env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", user, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.OrderStatusCancelled, cancelled["status"])
	assert.Equal(t, 5, env.productStock(t, productID))

	// Checkout cleared the cart line, so the same product goes back in.
	status, item = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID,
		"quantity":   1,
	})
	assert.Equal(t, http.StatusCreated, status)
	itemID, _ := item["id"].(string)

	// Removing the line frees it as well.
	status, _ = env.do(t, http.MethodDelete, "/api/v1/cart/items/"+itemID, user, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID,
		"quantity":   2,
	})
	assert.Equal(t, http.StatusCreated, status)

	// As does clearing the whole cart.
	status, _ = env.do(t, http.MethodDelete, "/api/v1/cart/", user, nil)
	assert.Equal(t, http.StatusOK, status)
	status, item = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID,
		"quantity":   1,
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), item["quantity"])
}

func TestAuthPinFlow(t *testing.T) {
	env := setupEnv(t)

	status, _ := env.do(t, http.MethodPost, "/api/v1/auth/request-pin", "", fiber.Map{"email": "alice@example.com"})
	assert.Equal(t, http.StatusOK, status)
	pin := env.sender.lastPin(t)

	// A malformed email never reaches the service.
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/request-pin", "", fiber.Map{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)

	// The wrong code is rejected without burning the real one.
	wrong := "000000"
	if wrong == pin {
		wrong = "000001"
	}
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/verify-pin", "", fiber.Map{"email": "alice@example.com", "pin": wrong})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, "/api/v1/auth/verify-pin", "", fiber.Map{"email": "alice@example.com", "pin": pin})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	userInfo, ok := body["user"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", userInfo["email"])
	assert.Equal(t, "alice", userInfo["name"])

	// The PIN is single use.
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/verify-pin", "", fiber.Map{"email": "alice@example.com", "pin": pin})
	assert.Equal(t, http.StatusBadRequest, status)

	// The issued token reads the caller's own profile.
	token, _ := body["token"].(string)
	status, profile := env.do(t, http.MethodGet, "/api/v1/users/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, userInfo["id"], profile["id"])
	assert.Equal(t, "alice@example.com", profile["email"])
	assert.Equal(t, "alice", profile["name"])

	// The profile is not public.
	status, _ = env.do(t, http.MethodGet, "/api/v1/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthorization(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	user := env.login(t, "alice@example.com")

	// The catalog read is public.
	status, _ := env.doList(t, http.MethodGet, "/api/v1/products", "")
	assert.Equal(t, http.StatusOK, status)

	// Cart routes demand a token.
	status, _ = env.do(t, http.MethodGet, "/api/v1/cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/cart/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Catalog mutations and the back-office demand the admin role.
	status, _ = env.do(t, http.MethodPost, "/api/v1/products", user, fiber.Map{
		"name": "Caneca", "price": 19.90, "stock": 5, "category": "testes",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/admin/dashboard", user, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, status)

	// One user cannot read another user's order.
	productID := env.createProduct(t, admin, "Caneca", 19.90, 5)
	status, _ = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID, "quantity": 1,
	})
	assert.Equal(t, http.StatusCreated, status)
	status, order := env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua A 1", "payment_method": "pix",
	})
	assert.Equal(t, http.StatusCreated, status)
	orderID, _ := order["id"].(string)

	other := env.login(t, "bob@example.com")
	status, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, other, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// An admin can.
	status, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, admin, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCheckoutErrors(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	user := env.login(t, "alice@example.com")

	// Empty cart cannot be checked out.
	status, _ := env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua A 1", "payment_method": "pix",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Adding more than the available stock is rejected.
	productID := env.createProduct(t, admin, "Caneca", 19.90, 2)
	status, _ = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID, "quantity": 3,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Stock drained between add and checkout fails the checkout and keeps
	// the cart intact.
	status, _ = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID, "quantity": 2,
	})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodPatch, "/api/v1/admin/products/"+productID+"/stock", admin, fiber.Map{
		"operation": "set", "quantity": 0,
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua A 1", "payment_method": "pix",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, summary := env.do(t, http.MethodGet, "/api/v1/cart/summary", user, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), summary["item_count"])

	// An unknown payment method never reaches the service.
	status, _ = env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua A 1", "payment_method": "cheque",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminBackOffice(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	user := env.login(t, "alice@example.com")

	lowID := env.createProduct(t, admin, "Caneca", 19.90, 3)
	env.createProduct(t, admin, "Camiseta", 49.90, 50)

	// Low stock listing honors the threshold query.
	status, body := env.do(t, http.MethodGet, "/api/v1/admin/products/low-stock?threshold=5", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	// Adjust shifts stock by a signed delta.
	status, _ = env.do(t, http.MethodPatch, "/api/v1/admin/products/"+lowID+"/stock", admin, fiber.Map{
		"operation": "adjust", "quantity": 7,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10, env.productStock(t, lowID))

	// An adjustment below zero is rejected.
	status, _ = env.do(t, http.MethodPatch, "/api/v1/admin/products/"+lowID+"/stock", admin, fiber.Map{
		"operation": "adjust", "quantity": -11,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 10, env.productStock(t, lowID))

	// Place one order to feed the dashboard.
	status, _ = env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": lowID, "quantity": 1,
	})
	assert.Equal(t, http.StatusCreated, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua A 1", "payment_method": "boleto",
	})
	assert.Equal(t, http.StatusCreated, status)

	status, dashboard := env.do(t, http.MethodGet, "/api/v1/admin/dashboard", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	ordersSection, ok := dashboard["orders"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(1), ordersSection["total"])
	assert.Equal(t, float64(1), ordersSection["pending"])
	usersSection, ok := dashboard["users"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, float64(2), usersSection["total"])

	status, stats := env.do(t, http.MethodGet, "/api/v1/admin/orders/stats", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), stats["pending"])

	status, orders := env.doList(t, http.MethodGet, "/api/v1/admin/orders", admin)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, orders, 1)

	status, userList := env.doList(t, http.MethodGet, "/api/v1/admin/users", admin)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, userList, 2)
}

func TestProductDeletionGuard(t *testing.T) {
	env := setupEnv(t)
	admin := env.adminToken(t)
	user := env.login(t, "alice@example.com")

	productID := env.createProduct(t, admin, "Caneca", 19.90, 5)

	status, _ := env.do(t, http.MethodPost, "/api/v1/cart/items", user, fiber.Map{
		"product_id": productID, "quantity": 1,
	})
	assert.Equal(t, http.StatusCreated, status)
	status, _ = env.do(t, http.MethodPost, "/api/v1/orders", user, fiber.Map{
		"shipping_address": "Rua A 1", "payment_method": "pix",
	})
	assert.Equal(t, http.StatusCreated, status)

	// The order history pins the product in place.
	status, _ = env.do(t, http.MethodDelete, "/api/v1/products/"+productID, admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/products/"+productID, "", nil)
	assert.Equal(t, http.StatusOK, status)
}
