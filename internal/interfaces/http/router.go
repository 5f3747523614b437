package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CFDIHandler *CFDIHandler
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	cfdiGroup := api.Group("/cfdi")

	// Validación local (público): no toca al PAC ni expone datos timbrados
	cfdiGroup.Post("/validar", deps.CFDIHandler.Validar)

	// Ciclo de timbrado (requiere Bearer Token)
	protected := cfdiGroup.Group("/", AuthMiddleware(deps.JWTSecret))
	protected.Post("/timbrar", deps.CFDIHandler.Timbrar)
	protected.Post("/pdf", deps.CFDIHandler.PDF)
	protected.Post("/:uuid/cancelar", deps.CFDIHandler.Cancelar)
	protected.Get("/:uuid/estado", deps.CFDIHandler.Estado)
}
