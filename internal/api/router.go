package api

import (
	"ai-finance-manager/docs"
	"ai-finance-manager/internal/api/handlers"
	"ai-finance-manager/pkg/config"
	"ai-finance-manager/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Receipt *handlers.ReceiptHandler
	Expense *handlers.ExpenseHandler
	Budget  *handlers.BudgetHandler
}

func SetupRouter(
	cfg *config.ServerConfig,
	h Handlers,
	tokens middleware.TokenValidator,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// importing docs registers the generated OpenAPI document with swag
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (public)
	auth := app.Group("/user/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(tokens, appLogger))
	protected.Get("/me", h.Auth.Me)

	receipts := protected.Group("/receipts")
	receipts.Post("/process", h.Receipt.Process)
	receipts.Post("/confirm", h.Receipt.Confirm)
	receipts.Get("/image", h.Receipt.Image)

	expenses := protected.Group("/expenses")
	expenses.Get("", h.Expense.ListExpenses)
	expenses.Post("", h.Expense.CreateExpense)
	expenses.Get("/deleted", h.Expense.ListDeleted)
	expenses.Get("/:id", h.Expense.GetExpense)
	expenses.Patch("/:id", h.Expense.UpdateExpense)
	expenses.Delete("/:id", h.Expense.DeleteExpense)

	budgets := protected.Group("/budgets")
	budgets.Get("", h.Budget.ListBudgets)
	budgets.Post("", h.Budget.UpsertBudget)
	budgets.Delete("/:id", h.Budget.DeleteBudget)

	return app
}
