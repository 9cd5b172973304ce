package main

import (
	"net/http"
	"os"

	"golang.org/x/exp/slog"

	"kassa/internal/app/server/api"
	"kassa/internal/app/server/config"
	"kassa/internal/app/server/realtime"
	"kassa/internal/infrastructure/storage/postgres"
	"kassa/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env)

	storage, err := postgres.New(conf)
	if err != nil {
		log.Error("ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	hub := realtime.NewHub(log)
	mux := api.New(storage, hub, log)

	log.Info("сервер запущен", slog.String("address", conf.Server.RunAddress))
	if err := http.ListenAndServe(conf.Server.RunAddress, mux); err != nil {
		log.Error("сервер остановлен", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
