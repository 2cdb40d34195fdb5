package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/choreista/platform_be_chores/internal/handlers"
	"github.com/choreista/platform_be_chores/internal/metrics"
	"github.com/choreista/platform_be_chores/internal/middleware"
	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/services/storage"
)

// Deps are the handlers mounted by Register. Google is optional.
type Deps struct {
	Auth      middleware.Authenticator
	AuthH     *handlers.AuthHandler
	Google    *handlers.GoogleOAuthHandler
	UserH     *handlers.UserHandler
	ChoreH    *handlers.ChoreHandler
	ChatH     *handlers.ChatHandler
	ReviewH   *handlers.ReviewHandler
	HealthH   *handlers.HealthHandler
	UploadDir string
}

// NewApp builds the fiber app with the shared error envelope and the global
// middleware stack.
func NewApp(appName, corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    int(storage.MaxUploadSize) + 1<<20,
	})

	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	return app
}

func Register(app *fiber.App, d Deps) {
	auth := middleware.RequireAuth(d.Auth)
	owner := middleware.RequireRoles(models.RoleChoreOwner)
	worker := middleware.RequireRoles(models.RoleWorker)

	app.Get("/", d.HealthH.Check)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if d.UploadDir != "" {
		app.Static("/uploads", d.UploadDir)
	}

	// public
	app.Post("/user/signup", d.AuthH.Register)
	app.Post("/user/login", d.AuthH.Login)
	app.Post("/user/email", d.AuthH.SendResetCode)
	app.Post("/user/reset-password", d.AuthH.ResetPassword)
	if d.Google != nil {
		app.Get("/user/google/start", d.Google.GoogleStart)
		app.Get("/user/google/callback", d.Google.GoogleCallback)
	}

	// account
	app.Post("/user/confirm", auth, d.AuthH.Confirm)
	app.Post("/user/resend-code", auth, d.AuthH.ResendCode)
	app.Post("/user/logout", auth, d.AuthH.Logout)
	app.Post("/user/logoutall", auth, d.AuthH.LogoutAll)
	app.Get("/user/profile", auth, d.UserH.GetProfile)
	app.Patch("/user/profile", auth, d.UserH.UpdateProfile)
	app.Delete("/user/delete/:userType", auth, d.UserH.DeleteAccount)

	// reviews
	app.Post("/user/reviews", auth, d.ReviewH.Create)
	app.Get("/user/reviews", auth, d.ReviewH.ListMine)
	app.Get("/chore/reviews/:id", auth, d.ReviewH.ListForUser)

	// messages
	app.Get("/user/messages/get-messages", auth, d.ChatH.GetThreads)
	app.Get("/user/messages/:id", auth, d.ChatH.GetThread)
	app.Post("/user/messages/:id", auth, d.ChatH.SendMessage)
	app.Patch("/user/messages/:id/read", auth, d.ChatH.MarkAsRead)
	app.Get("/ws/chat", handlers.UpgradeCheck, auth, websocket.New(d.ChatH.WebSocketHandler))

	// chores
	app.Get("/categories", auth, d.ChoreH.Categories)
	app.Get("/chores", auth, d.ChoreH.ListAll)
	app.Get("/chores-search/:query", auth, d.ChoreH.Search)
	app.Get("/chores/:category", auth, d.ChoreH.ListByCategory)
	app.Get("/chores/:id/:category", auth, d.ChoreH.ListByOwnerAndCategory)
	app.Post("/chores/create-chore", auth, owner, d.ChoreH.Create)
	app.Post("/chores/apply-chore/:id", auth, worker, d.ChoreH.Apply)
	app.Post("/chores/accept-applicant/:id", auth, owner, d.ChoreH.Accept)
	app.Put("/chores/update-chore/:choreId", auth, owner, d.ChoreH.Update)
	app.Delete("/chores/delete/:id", auth, owner, d.ChoreH.Delete)
	app.Post("/chores/mark-paid/:choreId/:choreista", auth, owner, d.ChoreH.MarkPaid)
	app.Post("/chore-status/:choreId/:choreista", auth, d.ChoreH.UpdateStatus)
}
