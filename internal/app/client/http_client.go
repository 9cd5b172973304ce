package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"kassa/internal/app/client/config"
	"kassa/internal/domain/ingest"
)

type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	baseURL := scheme + cfg.ServerAddress

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   baseURL,
		userAgent: "Kassa-Terminal/1.0",
	}, nil
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

// BulkSync отправляет пачку созданных офлайн товаров одним запросом
func (h *httpClient) BulkSync(ctx context.Context, entities []ingest.EntityPayload) (*ingest.BulkSyncResponse, error) {
	req := ingest.BulkSyncRequest{Entities: entities}

	resp, err := h.doRequest(ctx, "POST", "/sync/bulk", req)
	if err != nil {
		return nil, err
	}

	var bulkResp ingest.BulkSyncResponse
	if err := h.parseResponse(resp, &bulkResp); err != nil {
		return nil, err
	}

	return &bulkResp, nil
}

// CreateEntity создает товар на сервере поштучно
func (h *httpClient) CreateEntity(ctx context.Context, req ingest.CreateRequest) (*ingest.CreateResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/entities", req)
	if err != nil {
		return nil, err
	}

	var createResp ingest.CreateResponse
	if err := h.parseResponse(resp, &createResp); err != nil {
		return nil, err
	}

	return &createResp, nil
}

// UpdateEntity обновляет товар по ключу идемпотентности
func (h *httpClient) UpdateEntity(ctx context.Context, key string, req ingest.UpdateRequest) error {
	resp, err := h.doRequest(ctx, "PUT", "/entities/"+key, req)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

// DeleteEntity удаляет товар по ключу идемпотентности
func (h *httpClient) DeleteEntity(ctx context.Context, key string) error {
	resp, err := h.doRequest(ctx, "DELETE", "/entities/"+key, nil)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

// SyncStatus запрашивает сводку синхронизации с сервера
func (h *httpClient) SyncStatus(ctx context.Context) (*ingest.StatusResponse, error) {
	resp, err := h.doRequest(ctx, "GET", "/sync/status", nil)
	if err != nil {
		return nil, err
	}

	var statusResp ingest.StatusResponse
	if err := h.parseResponse(resp, &statusResp); err != nil {
		return nil, err
	}

	return &statusResp, nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
		"body", string(body),
	)

	if resp.StatusCode >= 400 {
		var errResp struct {
			Detail string `json:"detail"`
			Title  string `json:"title"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("ошибка сервера: %s", errResp.Detail)
		}
		return fmt.Errorf("ошибка сервера: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}
