package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/facturacion-api/internal/application/timbrado"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/pac/finkok"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/pac/sw"
	infrapdf "github.com/jhoicas/facturacion-api/internal/infrastructure/pdf"
	httpRouter "github.com/jhoicas/facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/facturacion-api/pkg/config"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if err := cfg.PAC.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración del PAC")
	}

	// El adaptador PAC se elige por configuración al arranque; el resto del
	// sistema solo conoce el puerto PACProvider.
	var provider timbrado.PACProvider
	switch cfg.PAC.Provider {
	case "sw":
		provider = sw.NewClient(sw.Config{
			User:       cfg.PAC.User,
			Password:   cfg.PAC.Password,
			EmitterRFC: cfg.PAC.EmitterRFC,
			Env:        cfg.PAC.Env,
			BaseURL:    cfg.PAC.BaseURL,
			AuthURL:    cfg.PAC.AuthURL,
		}, log.With().Str("provider", "sw").Logger())
	default:
		provider = finkok.NewClient(finkok.Config{
			User:       cfg.PAC.User,
			Password:   cfg.PAC.Password,
			EmitterRFC: cfg.PAC.EmitterRFC,
			Env:        cfg.PAC.Env,
			StampURL:   cfg.PAC.StampURL,
			CancelURL:  cfg.PAC.CancelURL,
		})
	}
	log.Info().
		Str("provider", provider.Name()).
		Str("pac_env", cfg.PAC.Env).
		Msg("adaptador PAC configurado")

	orchestrator := timbrado.NewOrchestrator(provider, log.Zerolog())
	pdfUC := timbrado.NewPDFUseCase(infrapdf.NewMarotoCFDIGenerator())

	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
		// el timbrado puede tardar decenas de segundos bajo carga del SAT
		ReadTimeout:  time.Second * 15,
		WriteTimeout: time.Second * 120,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  cfg.App.Name,
			"provider": provider.Name(),
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		CFDIHandler: httpRouter.NewCFDIHandler(orchestrator, pdfUC),
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
