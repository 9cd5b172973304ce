package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"kassa/internal/app/client/config"
	"kassa/internal/domain/ingest"
)

// SyncService управляет отправкой локальных изменений на сервер.
// Созданные офлайн товары уходят пачкой (bulk path), обновления,
// удаления и повторные попытки после сбоя — поштучно в порядке
// постановки (queue path).
type SyncService struct {
	storage   *SQLiteStorage
	api       *httpClient
	log       *slog.Logger
	config    *SyncConfig
	mu        sync.RWMutex
	lastSync  time.Time
	isSyncing bool
	stats     *SyncStats
}

// SyncConfig конфигурация синхронизации
type SyncConfig struct {
	Enabled    bool          `json:"enabled"`
	Interval   time.Duration `json:"interval"`
	BatchSize  int           `json:"batch_size"`
	MaxRetries int           `json:"max_retries"`
}

// SyncError ошибка отправки одной операции
type SyncError struct {
	LocalID   string    `json:"local_id"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Retry     int       `json:"retry"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncStats статистика синхронизации
type SyncStats struct {
	TotalSyncs     int       `json:"total_syncs"`
	TotalSynced    int       `json:"total_synced"`
	TotalSkipped   int       `json:"total_skipped"`
	TotalErrors    int       `json:"total_errors"`
	LastSuccessful time.Time `json:"last_successful"`
	LastFailed     time.Time `json:"last_failed"`
}

// SyncResult результат одного прохода синхронизации
type SyncResult struct {
	Success   bool          `json:"success"`
	Synced    int           `json:"synced"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Frozen    int           `json:"frozen"`
	Errors    []SyncError   `json:"errors"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}

// NewSyncService создает сервис синхронизации
func NewSyncService(storage *SQLiteStorage, api *httpClient, cfg *config.Config, log *slog.Logger) *SyncService {
	interval := time.Duration(cfg.SyncInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &SyncService{
		storage: storage,
		api:     api,
		log:     log,
		config: &SyncConfig{
			Enabled:    true,
			Interval:   interval,
			BatchSize:  ingest.MaxBatchSize,
			MaxRetries: cfg.MaxRetries,
		},
		stats: &SyncStats{},
	}
}

// Sync выполняет один проход синхронизации. Повторный вызов во время
// идущего прохода возвращает ErrSyncInProgress, не вставая в очередь.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	result := &SyncResult{
		StartTime: time.Now(),
		Errors:    []SyncError{},
	}

	s.log.Info("Начало синхронизации", "start_time", result.StartTime)

	queue, err := s.storage.ListQueue()
	if err != nil {
		s.log.Error("Ошибка чтения очереди синхронизации", "error", err.Error())
		return s.finish(result, err)
	}

	// Bulk path: свежие create-операции уходят пачками.
	// Queue path: всё остальное — поштучно, строго в порядке постановки.
	var bulkItems, queueItems []*QueueItem
	for _, item := range queue {
		if item.Operation == OpCreate && item.RetryCount == 0 {
			bulkItems = append(bulkItems, item)
		} else {
			queueItems = append(queueItems, item)
		}
	}

	// Товары, проваленные на bulk-этапе, блокируют свои последующие
	// операции в рамках этого же прохода.
	blocked := make(map[string]bool)

	s.syncBulk(ctx, bulkItems, blocked, result)
	s.syncQueue(ctx, queueItems, blocked, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = result.Failed == 0 && result.Frozen == 0

	s.appendLog(result)
	s.updateStats(result)

	if result.Success {
		s.log.Info("Синхронизация успешно завершена",
			"duration", result.Duration,
			"synced", result.Synced,
			"skipped", result.Skipped,
		)
	} else {
		s.log.Warn("Синхронизация завершена с ошибками",
			"duration", result.Duration,
			"failed", result.Failed,
			"frozen", result.Frozen,
		)
	}

	return result, nil
}

func (s *SyncService) finish(result *SyncResult, err error) (*SyncResult, error) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = false
	s.updateStats(result)
	return result, err
}

// syncBulk отправляет create-операции пачками не больше BatchSize
func (s *SyncService) syncBulk(ctx context.Context, items []*QueueItem, blocked map[string]bool, result *SyncResult) {
	for start := 0; start < len(items); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		entities := make([]ingest.EntityPayload, 0, len(chunk))
		for _, item := range chunk {
			var p PendingProduct
			if err := json.Unmarshal(item.Payload, &p); err != nil {
				s.recordFailure(item, fmt.Errorf("поврежденный снимок данных: %w", err), blocked, result)
				continue
			}
			entities = append(entities, ingest.EntityPayload{
				IdempotencyKey: item.LocalID,
				Name:           p.Name,
				Price:          p.Price,
				Description:    p.Description,
				Category:       p.Category,
				Stock:          p.Stock,
				ImageURL:       p.ImageURL,
				CreatedAt:      p.CreatedAt,
			})
		}

		if len(entities) == 0 {
			continue
		}

		resp, err := s.api.BulkSync(ctx, entities)
		if err != nil {
			// Сервер недоступен: весь кусок остается на следующий проход
			s.log.Warn("Пакетная отправка не удалась", "error", err.Error(), "count", len(entities))
			for _, item := range chunk {
				s.recordFailure(item, err, blocked, result)
			}
			continue
		}

		// Сервер адресует проблемные элементы по позиции в запросе
		failed := make(map[int]string)
		for _, itemErr := range resp.Errors {
			failed[itemErr.Index] = itemErr.Error
		}

		for i, entity := range entities {
			item := s.findQueueItem(chunk, entity.IdempotencyKey)
			if item == nil {
				continue
			}
			if msg, ok := failed[i]; ok {
				s.recordFailure(item, errors.New(msg), blocked, result)
				continue
			}
			s.confirmItem(item, result)
		}

		// Дубликаты подтверждены локально, но в сводке прохода они
		// идут как skipped, а не как synced
		if resp.SkippedCount > 0 {
			result.Synced -= resp.SkippedCount
			if result.Synced < 0 {
				result.Synced = 0
			}
			result.Skipped += resp.SkippedCount
		}
	}
}

func (s *SyncService) findQueueItem(chunk []*QueueItem, localID string) *QueueItem {
	for _, item := range chunk {
		if item.LocalID == localID {
			return item
		}
	}
	return nil
}

// syncQueue отправляет отложенные операции поштучно в порядке FIFO
func (s *SyncService) syncQueue(ctx context.Context, items []*QueueItem, blocked map[string]bool, result *SyncResult) {
	for _, item := range items {
		if item.RetryCount >= s.config.MaxRetries {
			// Заморожен: лимит попыток исчерпан, нужен ручной разбор
			result.Frozen++
			result.Errors = append(result.Errors, SyncError{
				LocalID:   item.LocalID,
				Operation: string(item.Operation),
				Error:     "исчерпан лимит попыток",
				Retry:     item.RetryCount,
				Timestamp: time.Now(),
			})
			continue
		}

		if blocked[item.LocalID] {
			// Более ранняя операция над этим товаром провалилась,
			// порядок применения нарушать нельзя
			continue
		}

		if err := s.dispatch(ctx, item); err != nil {
			s.recordFailure(item, err, blocked, result)
			continue
		}

		s.confirmItem(item, result)
	}
}

// dispatch выполняет одну операцию очереди против сервера
func (s *SyncService) dispatch(ctx context.Context, item *QueueItem) error {
	switch item.Operation {
	case OpCreate:
		var p PendingProduct
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("поврежденный снимок данных: %w", err)
		}
		_, err := s.api.CreateEntity(ctx, ingest.CreateRequest{
			IdempotencyKey: item.LocalID,
			Name:           p.Name,
			Price:          p.Price,
			Description:    p.Description,
			Category:       p.Category,
			Stock:          p.Stock,
			ImageURL:       p.ImageURL,
		})
		return err

	case OpUpdate:
		var req ingest.UpdateRequest
		if err := json.Unmarshal(item.Payload, &req); err != nil {
			return fmt.Errorf("поврежденный снимок данных: %w", err)
		}
		return s.api.UpdateEntity(ctx, item.LocalID, req)

	case OpDelete:
		return s.api.DeleteEntity(ctx, item.LocalID)

	default:
		return fmt.Errorf("неизвестная операция: %s", item.Operation)
	}
}

// confirmItem фиксирует успешную отправку: операция уходит из очереди,
// товар помечается синхронизированным
func (s *SyncService) confirmItem(item *QueueItem, result *SyncResult) {
	if err := s.storage.Dequeue(item.LocalID, item.Operation); err != nil {
		s.log.Error("Ошибка снятия с очереди", "local_id", item.LocalID, "error", err.Error())
	}

	switch item.Operation {
	case OpCreate, OpUpdate:
		if err := s.storage.MarkSynced(item.LocalID); err != nil {
			s.log.Error("Ошибка отметки синхронизации", "local_id", item.LocalID, "error", err.Error())
		}
	case OpDelete:
		if err := s.storage.DeleteProduct(item.LocalID); err != nil {
			s.log.Error("Ошибка удаления товара", "local_id", item.LocalID, "error", err.Error())
		}
	}

	result.Synced++
}

// recordFailure увеличивает счетчик попыток и блокирует последующие
// операции над тем же товаром до следующего прохода
func (s *SyncService) recordFailure(item *QueueItem, err error, blocked map[string]bool, result *SyncResult) {
	if errors.Is(err, ErrStorage) {
		s.log.Error("Отказ локального хранилища при синхронизации",
			"local_id", item.LocalID, "error", err.Error())
	} else {
		s.log.Warn("Операция не доставлена",
			"local_id", item.LocalID,
			"operation", string(item.Operation),
			"error", err.Error())
	}

	now := time.Now()
	item.RetryCount++
	item.LastAttemptAt = &now
	if updErr := s.storage.UpdateQueueItem(item); updErr != nil {
		s.log.Error("Ошибка обновления элемента очереди", "local_id", item.LocalID, "error", updErr.Error())
	}

	blocked[item.LocalID] = true
	result.Failed++
	result.Errors = append(result.Errors, SyncError{
		LocalID:   item.LocalID,
		Operation: string(item.Operation),
		Error:     err.Error(),
		Retry:     item.RetryCount,
		Timestamp: now,
	})
}

// appendLog пишет ровно одну запись журнала на проход
func (s *SyncService) appendLog(result *SyncResult) {
	status := SyncStatusSuccess
	if !result.Success {
		status = SyncStatusError
	}

	message := fmt.Sprintf("отправлено %d, пропущено %d", result.Synced, result.Skipped)
	if len(result.Errors) > 0 {
		details := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			details = append(details, fmt.Sprintf("%s/%s: %s", e.LocalID, e.Operation, e.Error))
		}
		message += "; ошибки: " + strings.Join(details, "; ")
	}

	entry := &SyncLogEntry{
		Timestamp: result.EndTime,
		Status:    status,
		ItemCount: result.Synced + result.Skipped,
		Message:   message,
	}

	if err := s.storage.AppendSyncLog(entry); err != nil {
		s.log.Error("Ошибка записи журнала синхронизации", "error", err.Error())
	}
}

func (s *SyncService) updateStats(result *SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSyncs++
	s.stats.TotalSynced += result.Synced
	s.stats.TotalSkipped += result.Skipped
	s.stats.TotalErrors += len(result.Errors)

	if result.Success {
		s.stats.LastSuccessful = result.EndTime
	} else {
		s.stats.LastFailed = result.EndTime
	}

	s.lastSync = result.EndTime
}

// StartAutoSync запускает периодическую синхронизацию до отмены контекста
func (s *SyncService) StartAutoSync(ctx context.Context) {
	if !s.config.Enabled {
		s.log.Info("Автоматическая синхронизация отключена")
		return
	}

	s.log.Info("Запуск автоматической синхронизации", "interval", s.config.Interval)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Автоматическая синхронизация остановлена")
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
				s.log.Error("Ошибка автоматической синхронизации", "error", err.Error())
			}
		}
	}
}

// GetStats возвращает копию статистики синхронизации
func (s *SyncService) GetStats() *SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statsCopy := *s.stats
	return &statsCopy
}

// GetLastSyncTime возвращает время последнего прохода
func (s *SyncService) GetLastSyncTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// IsSyncing проверяет, идет ли синхронизация прямо сейчас
func (s *SyncService) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}
