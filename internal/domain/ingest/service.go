package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"kassa/internal/domain/product"
)

// MaxBatchSize — потолок размера пакета для bulk-синхронизации.
// Источник потолка не задает; 200 выбрано, чтобы тело запроса с
// imageUrl-полями оставалось в пределах ~1 МБ.
const MaxBatchSize = 200

const imageProbeTimeout = 3 * time.Second

// Servicer — контракт сервиса приема мутаций с терминалов.
type Servicer interface {
	BulkSync(ctx context.Context, req BulkSyncRequest) (*BulkSyncResponse, error)
	CreateSingle(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	UpdateEntity(ctx context.Context, offlineID string, req UpdateRequest) error
	DeleteEntity(ctx context.Context, offlineID string) error
	Status(ctx context.Context) (*StatusResponse, error)
}

// Notifier рассылает событие подключенным терминалам.
// Реализуется realtime-хабом; nil допустим (рассылка отключена).
type Notifier interface {
	Broadcast(event string, payload any)
}

var (
	// ErrEmptyBatch — пустой список в bulk-запросе (структурная ошибка).
	ErrEmptyBatch = errors.New("пустой пакет синхронизации")
	// ErrBatchTooLarge — превышен MaxBatchSize.
	ErrBatchTooLarge = errors.New("пакет синхронизации превышает допустимый размер")
	// ErrNameRequired — отсутствует обязательное поле name.
	ErrNameRequired = errors.New("поле name обязательно")
)

type Service struct {
	repo     product.Repository
	notifier Notifier
	probe    *http.Client
	log      *slog.Logger
}

func NewService(repo product.Repository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		probe:    &http.Client{Timeout: imageProbeTimeout},
		log:      log.With(slog.String("component", "ingest")),
	}
}

// BulkSync принимает пакет созданных офлайн товаров.
// Семантика по каждому элементу: created / duplicate-skipped / failed;
// ошибка одного элемента не прерывает обработку остальных.
func (s *Service) BulkSync(ctx context.Context, req BulkSyncRequest) (*BulkSyncResponse, error) {
	if len(req.Entities) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(req.Entities) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	resp := &BulkSyncResponse{Success: true, Errors: []ItemError{}}

	for i, entity := range req.Entities {
		if entity.IdempotencyKey == "" {
			resp.Errors = append(resp.Errors, ItemError{
				Index: i,
				Error: "отсутствует ключ идемпотентности",
			})
			continue
		}
		if entity.Name == "" {
			resp.Errors = append(resp.Errors, ItemError{
				Index: i,
				Key:   entity.IdempotencyKey,
				Error: ErrNameRequired.Error(),
			})
			continue
		}

		created, err := s.insertOffline(ctx, entity)
		switch {
		case errors.Is(err, product.ErrDuplicateOfflineID):
			// Повторная доставка — успех, а не ошибка.
			resp.SkippedCount++
		case err != nil:
			s.log.Error("ошибка вставки товара",
				slog.String("offline_id", entity.IdempotencyKey),
				slog.String("error", err.Error()))
			resp.Errors = append(resp.Errors, ItemError{
				Index: i,
				Key:   entity.IdempotencyKey,
				Error: err.Error(),
			})
		default:
			resp.SyncedCount++
			s.broadcastStockChanged(created)
		}
	}

	s.log.Info("пакет синхронизации обработан",
		slog.Int("synced", resp.SyncedCount),
		slog.Int("skipped", resp.SkippedCount),
		slog.Int("failed", len(resp.Errors)))

	return resp, nil
}

// CreateSingle — одиночная отправка с той же семантикой идемпотентности:
// существующий ключ возвращает уже принятую запись и duplicate=true.
func (s *Service) CreateSingle(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if req.Name == "" {
		return nil, ErrNameRequired
	}

	p := &product.Product{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		p.OfflineID = &key
	}

	id, err := s.repo.Insert(ctx, p)
	if errors.Is(err, product.ErrDuplicateOfflineID) {
		existing, ferr := s.repo.FindByOfflineID(ctx, req.IdempotencyKey)
		if ferr != nil {
			return nil, fmt.Errorf("поиск дубликата: %w", ferr)
		}
		return &CreateResponse{Success: true, Entity: *existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("вставка товара: %w", err)
	}

	p.ID = id
	s.broadcastStockChanged(p)

	return &CreateResponse{Success: true, Entity: *p, Duplicate: false}, nil
}

func (s *Service) UpdateEntity(ctx context.Context, offlineID string, req UpdateRequest) error {
	upd := product.Update{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		UpdatedAt:   time.Now(),
	}

	if err := s.repo.UpdateByOfflineID(ctx, offlineID, upd); err != nil {
		return err
	}

	if s.notifier != nil && req.Stock != nil {
		s.notifier.Broadcast("stock-changed", map[string]any{
			"offlineId": offlineID,
			"stock":     *req.Stock,
		})
	}

	return nil
}

func (s *Service) DeleteEntity(ctx context.Context, offlineID string) error {
	return s.repo.DeleteByOfflineID(ctx, offlineID)
}

func (s *Service) Status(ctx context.Context) (*StatusResponse, error) {
	total, withOffline, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчет товаров: %w", err)
	}

	// LocalOnlyEntities знает только терминал: сервер видит лишь то,
	// что уже доехало. Поле дополняется на стороне клиента.
	return &StatusResponse{
		TotalEntities:  total,
		SyncedEntities: withOffline,
	}, nil
}

func (s *Service) insertOffline(ctx context.Context, entity EntityPayload) (*product.Product, error) {
	createdAt := entity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	key := entity.IdempotencyKey
	p := &product.Product{
		Name:        entity.Name,
		Price:       entity.Price,
		Description: entity.Description,
		Category:    entity.Category,
		Stock:       entity.Stock,
		ImageURL:    entity.ImageURL,
		OfflineID:   &key,
		CreatedAt:   createdAt,
		UpdatedAt:   time.Now(),
	}

	if entity.ImageURL != "" {
		s.probeImage(ctx, entity.ImageURL)
	}

	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id

	return p, nil
}

// probeImage проверяет доступность картинки с жестким таймаутом:
// медленный источник не должен задерживать остальной пакет.
// Недоступная картинка — не ошибка элемента.
func (s *Service) probeImage(ctx context.Context, url string) {
	probeCtx, cancel := context.WithTimeout(ctx, imageProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		s.log.Warn("некорректный imageUrl", slog.String("url", url))
		return
	}

	resp, err := s.probe.Do(req)
	if err != nil {
		s.log.Warn("картинка недоступна", slog.String("url", url))
		return
	}
	resp.Body.Close()
}

func (s *Service) broadcastStockChanged(p *product.Product) {
	if s.notifier == nil {
		return
	}

	payload := map[string]any{
		"id":    p.ID,
		"name":  p.Name,
		"stock": p.Stock,
	}
	if p.OfflineID != nil {
		payload["offlineId"] = *p.OfflineID
	}

	s.notifier.Broadcast("stock-changed", payload)
}
