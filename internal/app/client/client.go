package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"kassa/internal/app/client/config"
	"kassa/internal/domain/ingest"
)

// App — кассовый терминал: локальное хранилище, HTTP-клиент,
// сервис синхронизации и realtime-канал под одной крышей.
type App struct {
	config      *config.Config
	log         *slog.Logger
	httpClient  *httpClient
	storage     *SQLiteStorage
	syncService *SyncService
	channel     *Channel
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
	}

	app.syncService = NewSyncService(storage, httpCl, cfg, log)

	return app, nil
}

// CheckConnection проверяет доступность сервера
func (a *App) CheckConnection(ctx context.Context) error {
	return a.httpClient.HealthCheck(ctx)
}

// AddProduct сохраняет товар локально и ставит create-операцию в очередь.
// Товар доступен для продажи сразу, без ожидания сети.
func (a *App) AddProduct(name string, price float64, description, category string, stock int, imageURL string) (*PendingProduct, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("название товара не может быть пустым")
	}

	p := &PendingProduct{
		LocalID:     "loc-" + uuid.New().String(),
		Name:        name,
		Price:       price,
		Description: description,
		Category:    category,
		Stock:       stock,
		ImageURL:    imageURL,
		CreatedAt:   time.Now(),
		Synced:      false,
	}

	if err := a.storage.SaveProduct(p); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации товара: %w", err)
	}

	item := &QueueItem{
		LocalID:    p.LocalID,
		Operation:  OpCreate,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	if err := a.storage.Enqueue(item); err != nil {
		return nil, err
	}

	a.log.Info("Товар добавлен локально", "local_id", p.LocalID, "name", p.Name)
	return p, nil
}

// UpdateProduct меняет товар локально и ставит update-операцию в очередь
func (a *App) UpdateProduct(localID string, update ingest.UpdateRequest) error {
	p, err := a.storage.GetProduct(localID)
	if err != nil {
		return err
	}

	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Price != nil {
		p.Price = *update.Price
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Category != nil {
		p.Category = *update.Category
	}
	if update.Stock != nil {
		p.Stock = *update.Stock
	}
	if update.ImageURL != nil {
		p.ImageURL = *update.ImageURL
	}
	p.Synced = false

	if err := a.storage.SaveProduct(p); err != nil {
		return err
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("ошибка сериализации изменений: %w", err)
	}

	return a.storage.Enqueue(&QueueItem{
		LocalID:    localID,
		Operation:  OpUpdate,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	})
}

// DeleteProduct ставит delete-операцию в очередь. Локальная запись
// живет до подтверждения сервером.
func (a *App) DeleteProduct(localID string) error {
	if _, err := a.storage.GetProduct(localID); err != nil {
		return err
	}

	return a.storage.Enqueue(&QueueItem{
		LocalID:    localID,
		Operation:  OpDelete,
		Payload:    json.RawMessage(`{}`),
		EnqueuedAt: time.Now(),
	})
}

// Products возвращает все локальные товары
func (a *App) Products() ([]*PendingProduct, error) {
	return a.storage.ListProducts()
}

// Sync запускает один проход синхронизации
func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	return a.syncService.Sync(ctx)
}

// StartAutoSync запускает периодическую синхронизацию
func (a *App) StartAutoSync(ctx context.Context) {
	go a.syncService.StartAutoSync(ctx)
}

// SyncStatus объединяет серверную сводку с локальной глубиной очереди
func (a *App) SyncStatus(ctx context.Context) (*ingest.StatusResponse, int, error) {
	depth, err := a.storage.QueueDepth()
	if err != nil {
		return nil, 0, err
	}

	status, err := a.httpClient.SyncStatus(ctx)
	if err != nil {
		// Сервер недоступен: локальная часть сводки все равно полезна
		return nil, depth, err
	}

	return status, depth, nil
}

// SyncLog возвращает последние записи журнала синхронизации
func (a *App) SyncLog(limit int) ([]*SyncLogEntry, error) {
	return a.storage.ListSyncLog(limit)
}

// Channel возвращает realtime-канал, создавая его при первом обращении
func (a *App) Channel(userID string) *Channel {
	if a.channel != nil {
		return a.channel
	}

	scheme := "ws://"
	if a.config.EnableTLS {
		scheme = "wss://"
	}

	a.channel = NewChannel(&ChannelConfig{
		URL:    scheme + a.config.ServerAddress + "/ws",
		UserID: userID,
	}, a.log)

	return a.channel
}

// Shutdown закрывает ресурсы терминала
func (a *App) Shutdown() {
	if a.channel != nil {
		a.channel.Close()
	}
	if err := a.storage.Close(); err != nil {
		a.log.Warn("Ошибка закрытия хранилища", "error", err.Error())
	}
	a.log.Info("Терминал остановлен")
}
