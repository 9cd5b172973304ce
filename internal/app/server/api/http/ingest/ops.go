package ingest

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) bulkSyncOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-bulk",
		Method:      http.MethodPost,
		Path:        "/sync/bulk",
		Summary:     "Пакетная синхронизация офлайн-товаров",
		Description: "Принимает пакет созданных офлайн товаров; идемпотентность по offline_id",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createEntityOp() huma.Operation {
	return huma.Operation{
		OperationID: "entity-create",
		Method:      http.MethodPost,
		Path:        "/entities",
		Summary:     "Создать товар",
		Description: "Одиночная отправка; существующий ключ идемпотентности возвращает duplicate=true",
		Tags:        []string{"entities"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateEntityOp() huma.Operation {
	return huma.Operation{
		OperationID: "entity-update",
		Method:      http.MethodPut,
		Path:        "/entities/{key}",
		Summary:     "Обновить товар по ключу идемпотентности",
		Tags:        []string{"entities"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteEntityOp() huma.Operation {
	return huma.Operation{
		OperationID: "entity-delete",
		Method:      http.MethodDelete,
		Path:        "/entities/{key}",
		Summary:     "Удалить товар по ключу идемпотентности",
		Tags:        []string{"entities"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listEntitiesOp() huma.Operation {
	return huma.Operation{
		OperationID: "entity-list",
		Method:      http.MethodGet,
		Path:        "/entities",
		Summary:     "Список товаров",
		Tags:        []string{"entities"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) syncStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/sync/status",
		Summary:     "Статус синхронизации",
		Description: "Счетчики товаров: всего / пришедших через синхронизацию",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
