package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/catalog"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProcessTransaction *ledger.ProcessTransactionUseCase
	LedgerUC           *ledger.LedgerUseCase
	CatalogUC          *catalog.UseCase
	AuthUC             *auth.AuthUseCase
	JWTSecret          string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	protected.Get("/auth/me", authHandler.Me)
	managers := RequireRole(entity.RoleShopOwner, entity.RoleSuperAdmin)

	// Transactions (cualquier rol de la tienda)
	txHandler := NewTransactionHandler(deps.ProcessTransaction, deps.LedgerUC)
	transactions := protected.Group("/transactions")
	transactions.Post("/", txHandler.Record)
	transactions.Get("/", txHandler.List)
	transactions.Get("/:id", txHandler.GetByID)

	// Ledgers
	ledgerHandler := NewLedgerHandler(deps.LedgerUC)
	ledgers := protected.Group("/ledgers")
	ledgers.Get("/", ledgerHandler.List)
	ledgers.Post("/", managers, ledgerHandler.Link)
	ledgers.Get("/:productId", ledgerHandler.Get)
	ledgers.Patch("/:productId", managers, ledgerHandler.Update)
	ledgers.Delete("/:productId", managers, ledgerHandler.Deactivate)
	ledgers.Get("/:productId/reconcile", managers, ledgerHandler.Reconcile)

	// Reports
	protected.Get("/reports/summary", managers, ledgerHandler.Summary)
	protected.Get("/reports/replenishment", managers, ledgerHandler.Replenishment)

	// Catálogo
	catalogHandler := NewCatalogHandler(deps.CatalogUC)
	protected.Post("/products", managers, catalogHandler.CreateProduct)
	protected.Get("/products/:id", catalogHandler.GetProduct)
	protected.Post("/users", managers, catalogHandler.CreateUser)
}
