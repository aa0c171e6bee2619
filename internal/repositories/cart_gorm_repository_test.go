package repositories_test

import (
	"fmt"
	"testing"

	"loja/internal/models"
	"loja/internal/repositories"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
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
		&models.Cart{},
		&models.CartItem{},
		&models.PinVerification{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedCartWithProduct(t *testing.T, db *gorm.DB) (*repositories.GORMCartRepository, string, string) {
	t.Helper()

	products := repositories.NewGORMProductRepository(db)
	product := &models.Product{Name: "Caneca", Price: 19.90, Stock: 10, Category: "cozinha"}
	assert.NoError(t, products.Create(product))

	carts := repositories.NewGORMCartRepository(db)
	cart := &models.Cart{UserID: "user-1"}
	assert.NoError(t, carts.Create(cart))

	return carts, cart.ID, product.ID
}

// A removed line must free its (cart_id, product_id) unique index slot so
// the same product can be added again.
func TestGORMCartRepository_ReaddAfterDeleteItem(t *testing.T) {
	carts, cartID, productID := seedCartWithProduct(t, openTestDB(t))

	item := &models.CartItem{CartID: cartID, ProductID: productID, Quantity: 2}
	assert.NoError(t, carts.CreateItem(item))
	assert.NoError(t, carts.DeleteItem(item.ID))

	again := &models.CartItem{CartID: cartID, ProductID: productID, Quantity: 1}
	assert.NoError(t, carts.CreateItem(again))

	found, err := carts.GetItemByCartAndProduct(cartID, productID)
	assert.NoError(t, err)
	assert.Equal(t, again.ID, found.ID)
	assert.Equal(t, 1, found.Quantity)
}

// Clearing a cart (the checkout path) must likewise leave the index free
// for the next purchase of the same product.
func TestGORMCartRepository_ReaddAfterClear(t *testing.T) {
	carts, cartID, productID := seedCartWithProduct(t, openTestDB(t))

	item := &models.CartItem{CartID: cartID, ProductID: productID, Quantity: 3}
	assert.NoError(t, carts.CreateItem(item))
	assert.NoError(t, carts.DeleteItemsByCartID(cartID))

	again := &models.CartItem{CartID: cartID, ProductID: productID, Quantity: 2}
	assert.NoError(t, carts.CreateItem(again))

	cart, err := carts.GetByUserID("user-1")
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestGORMCartRepository_DuplicateLineRejected(t *testing.T) {
	carts, cartID, productID := seedCartWithProduct(t, openTestDB(t))

	assert.NoError(t, carts.CreateItem(&models.CartItem{CartID: cartID, ProductID: productID, Quantity: 1}))

	err := carts.CreateItem(&models.CartItem{CartID: cartID, ProductID: productID, Quantity: 1})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}
