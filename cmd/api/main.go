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

	_ "github.com/jhoicas/wms-api/docs"
	"github.com/jhoicas/wms-api/internal/application/allocation"
	"github.com/jhoicas/wms-api/internal/application/ledger"
	"github.com/jhoicas/wms-api/internal/application/orders"
	"github.com/jhoicas/wms-api/internal/application/scheduler"
	"github.com/jhoicas/wms-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/wms-api/internal/interfaces/http"
	"github.com/jhoicas/wms-api/pkg/config"
	"github.com/jhoicas/wms-api/pkg/logger"
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

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Ledger: repos de lectura sobre el pool, mutaciones vía TxRunner.
	lotRepo := postgres.NewStockLotRepository(pool)
	movRepo := postgres.NewMovementRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	skuDirectory := postgres.NewSKUDirectory(pool)
	txRunner := postgres.NewTxRunner(pool, cfg.Ledger.LockTimeoutMS)

	ledgerUC := ledger.NewUseCase(txRunner, lotRepo, movRepo, nil)
	engine := allocation.NewEngine(ledgerUC, lotRepo, skuDirectory, log.Zerolog())
	ordersUC := orders.NewUseCase(orderRepo, engine, ledgerUC, skuDirectory, log.Zerolog())

	// Auto-release: despierta por intervalo y por eventos del ledger.
	autoRelease := scheduler.New(ordersUC, time.Duration(cfg.Scheduler.IntervalSeconds)*time.Second, log.Zerolog())
	ledgerUC.SetWaker(autoRelease)

	schedCtx, stopSched := context.WithCancel(ctx)
	autoRelease.Start(schedCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "WMS API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledgerUC,
		Orders:    ordersUC,
		JWTSecret: cfg.JWT.Secret,
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

	stopSched()
	autoRelease.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
