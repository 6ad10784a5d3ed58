package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	appanalytics "github.com/jhoicas/wip-ledger/internal/application/analytics"
	"github.com/jhoicas/wip-ledger/internal/application/auth"
	"github.com/jhoicas/wip-ledger/internal/application/wip"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/pubsub"
	"github.com/jhoicas/wip-ledger/internal/infrastructure/store"
	httpRouter "github.com/jhoicas/wip-ledger/internal/interfaces/http"
	"github.com/jhoicas/wip-ledger/pkg/config"
	"github.com/jhoicas/wip-ledger/pkg/jwt"
	"github.com/jhoicas/wip-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DB, log.Named("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacén")
	}
	defer st.Close()

	// Lock por llave: Redis si hay varias instancias de la API, si no en proceso
	var locker wip.KeyLocker = lock.NewLocal()
	if cfg.Redis.URL != "" {
		rdb, err := lock.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = lock.NewRedis(rdb, cfg.Redis.LockTTL, log.Named("lock"))
		log.Info().Dur("ttl", cfg.Redis.LockTTL).Msg("lock distribuido en Redis")
	}

	opts := []wip.Option{}
	if cfg.PubSub.Enabled() {
		pub, err := pubsub.NewPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic, log.Named("pubsub"))
		if err != nil {
			log.Fatal().Err(err).Msg("cliente Pub/Sub")
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar Pub/Sub")
			}
		}()
		opts = append(opts, wip.WithPublisher(pub))
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("réplica del ledger a Pub/Sub activa")
	}

	ledgerUC := wip.NewLedgerUseCase(st.TxRunner, st.Lots, st.Ledger, locker, log.Named("wip"), opts...)
	dashboardUC := appanalytics.NewDashboardUseCase(st.Analytics)
	tokens, err := jwt.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.Expiration)*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar JWT (JWT_SECRET, JWT_EXPIRATION_MINUTES)")
	}
	authUC := auth.NewAuthUseCase(st.Users, tokens)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log.Named("http")),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log.Named("access")))
	app.Use(cors.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "WIP Ledger API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		LedgerUC:    ledgerUC,
		DashboardUC: dashboardUC,
		Tokens:      tokens,
		ServiceName: cfg.App.Name,
		Log:         log.Named("http"),
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

	log.Info().Int64("audit_failures", ledgerUC.AuditFailures()).Msg("aplicación detenida")
}
