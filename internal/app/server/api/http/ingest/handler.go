package ingest

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"kassa/internal/domain/ingest"
	"kassa/internal/domain/product"
)

type Handler struct {
	service    ingest.Servicer
	repo       product.Repository
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service ingest.Servicer, repo product.Repository, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		repo:       repo,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.bulkSyncOp(), h.bulkSync)
	huma.Register(api, h.createEntityOp(), h.createEntity)
	huma.Register(api, h.updateEntityOp(), h.updateEntity)
	huma.Register(api, h.deleteEntityOp(), h.deleteEntity)
	huma.Register(api, h.listEntitiesOp(), h.listEntities)
	huma.Register(api, h.syncStatusOp(), h.syncStatus)
}

func (h *Handler) bulkSync(ctx context.Context, input *bulkSyncInput) (*bulkSyncOutput, error) {
	response, err := h.service.BulkSync(ctx, ingest.BulkSyncRequest{Entities: input.Body.Entities})
	if err != nil {
		// Структурно невалидный запрос — единственный случай не-2xx ответа;
		// ошибки отдельных элементов уже учтены в теле ответа.
		if errors.Is(err, ingest.ErrEmptyBatch) || errors.Is(err, ingest.ErrBatchTooLarge) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error500InternalServerError("bulk sync failed", err)
	}

	return &bulkSyncOutput{Body: *response}, nil
}

func (h *Handler) createEntity(ctx context.Context, input *createEntityInput) (*createEntityOutput, error) {
	response, err := h.service.CreateSingle(ctx, input.Body)
	if err != nil {
		if errors.Is(err, ingest.ErrNameRequired) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error500InternalServerError("create failed", err)
	}

	return &createEntityOutput{Body: *response}, nil
}

func (h *Handler) updateEntity(ctx context.Context, input *updateEntityInput) (*updateEntityOutput, error) {
	if err := h.service.UpdateEntity(ctx, input.Key, input.Body); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, huma.Error404NotFound("entity not found")
		}
		return nil, huma.Error500InternalServerError("update failed", err)
	}

	out := &updateEntityOutput{}
	out.Body.Success = true
	return out, nil
}

func (h *Handler) deleteEntity(ctx context.Context, input *deleteEntityInput) (*deleteEntityOutput, error) {
	if err := h.service.DeleteEntity(ctx, input.Key); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, huma.Error404NotFound("entity not found")
		}
		return nil, huma.Error500InternalServerError("delete failed", err)
	}

	out := &deleteEntityOutput{}
	out.Body.Success = true
	return out, nil
}

func (h *Handler) listEntities(ctx context.Context, input *listEntitiesInput) (*listEntitiesOutput, error) {
	entities, err := h.repo.List(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("list failed", err)
	}

	out := &listEntitiesOutput{}
	out.Body.Entities = entities
	if out.Body.Entities == nil {
		out.Body.Entities = []*product.Product{}
	}
	return out, nil
}

func (h *Handler) syncStatus(ctx context.Context, _ *syncStatusInput) (*syncStatusOutput, error) {
	response, err := h.service.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("status failed", err)
	}

	return &syncStatusOutput{Body: *response}, nil
}
