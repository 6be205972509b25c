package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/ordenes-api/internal/application/auth"
	"github.com/jhoicas/ordenes-api/internal/application/inventory"
	"github.com/jhoicas/ordenes-api/internal/application/order"
	"github.com/jhoicas/ordenes-api/internal/application/usecase"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	ProductUC   *usecase.ProductUseCase
	InventoryUC *inventory.UseCase
	OrderUC     *order.UseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	admin := RequireRole(entity.RoleAdmin)

	// Products (protegido; crear es solo admin)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", admin, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	// Inventory (protegido; mutaciones y low-stock son solo admin)
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.InventoryUC)
	invGroup.Post("/", admin, inventoryHandler.Create)
	invGroup.Get("/", inventoryHandler.List)
	invGroup.Get("/status/low-stock", admin, inventoryHandler.LowStock)
	invGroup.Get("/product/:product_id", inventoryHandler.GetByProduct)
	invGroup.Get("/:id", inventoryHandler.GetByID)
	invGroup.Put("/:id", admin, inventoryHandler.Update)
	invGroup.Post("/:id/adjust", admin, inventoryHandler.Adjust)

	// Orders (protegido)
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.OrderUC)
	orders.Post("/", orderHandler.Create)
	orders.Get("/", orderHandler.ListOwn)
	orders.Get("/admin", admin, orderHandler.ListAll)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Put("/:id", admin, orderHandler.UpdateStatus)
	orders.Delete("/:id", orderHandler.Cancel)
}
