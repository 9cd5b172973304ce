package ingest

import (
	"kassa/internal/domain/ingest"
	"kassa/internal/domain/product"
)

// Request/Response структуры для BulkSync
type bulkSyncInput struct {
	Body struct {
		Entities []ingest.EntityPayload `json:"entities" minItems:"1" maxItems:"200"`
	}
}

type bulkSyncOutput struct {
	Body ingest.BulkSyncResponse
}

// Request/Response для CreateEntity
type createEntityInput struct {
	Body ingest.CreateRequest
}

type createEntityOutput struct {
	Body ingest.CreateResponse
}

// Request/Response для UpdateEntity (queue path)
type updateEntityInput struct {
	Key  string `path:"key" doc:"Ключ идемпотентности (localId терминала)"`
	Body ingest.UpdateRequest
}

type updateEntityOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Request/Response для DeleteEntity (queue path)
type deleteEntityInput struct {
	Key string `path:"key"`
}

type deleteEntityOutput struct {
	Body struct {
		Success bool `json:"success"`
	}
}

// Request/Response для ListEntities
type listEntitiesInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"100"`
	Offset int `query:"offset" minimum:"0" default:"0"`
}

type listEntitiesOutput struct {
	Body struct {
		Entities []*product.Product `json:"entities"`
	}
}

// Request/Response для SyncStatus
type syncStatusInput struct{}

type syncStatusOutput struct {
	Body ingest.StatusResponse
}
