package api

import (
	healthAPI "kassa/internal/app/server/api/http/health"
	ingestAPI "kassa/internal/app/server/api/http/ingest"
	"kassa/internal/app/server/api/http/middleware"
	"kassa/internal/app/server/api/http/middleware/logger"
	"kassa/internal/app/server/realtime"
	"kassa/internal/domain/ingest"
	"kassa/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health *healthAPI.Handler
	Ingest *ingestAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
// и realtime-каналом, смонтированным рядом с typed-API.
func New(storage *postgres.Storage, hub *realtime.Hub, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Kassa API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(storage, hub, log)
	h.Health.SetupRoutes(API)
	h.Ingest.SetupRoutes(API)

	mux.Get("/ws", hub.Handler())

	return mux
}

func handlers(storage *postgres.Storage, hub *realtime.Hub, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	productRepo := postgres.NewProductRepository(storage, log)
	ingestService := ingest.NewService(productRepo, hub, log)
	middlewares.Add(loggerMW.Middleware())
	ingestHandler := ingestAPI.NewHandler(ingestService, productRepo, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Ingest: ingestHandler,
	}
}
