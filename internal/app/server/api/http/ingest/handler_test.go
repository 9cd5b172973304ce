package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"kassa/internal/domain/ingest"
	"kassa/internal/domain/product"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) BulkSync(ctx context.Context, req ingest.BulkSyncRequest) (*ingest.BulkSyncResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.BulkSyncResponse), args.Error(1)
}

func (m *MockService) CreateSingle(ctx context.Context, req ingest.CreateRequest) (*ingest.CreateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.CreateResponse), args.Error(1)
}

func (m *MockService) UpdateEntity(ctx context.Context, offlineID string, req ingest.UpdateRequest) error {
	args := m.Called(ctx, offlineID, req)
	return args.Error(0)
}

func (m *MockService) DeleteEntity(ctx context.Context, offlineID string) error {
	args := m.Called(ctx, offlineID)
	return args.Error(0)
}

func (m *MockService) Status(ctx context.Context) (*ingest.StatusResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.StatusResponse), args.Error(1)
}

func TestHandler_BulkSync(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil, nil)

		svc.On("BulkSync", mock.Anything, mock.MatchedBy(func(req ingest.BulkSyncRequest) bool {
			return len(req.Entities) == 1 && req.Entities[0].IdempotencyKey == "loc-1"
		})).Return(&ingest.BulkSyncResponse{
			Success:     true,
			SyncedCount: 1,
			Errors:      []ingest.ItemError{},
		}, nil)

		input := &bulkSyncInput{}
		input.Body.Entities = []ingest.EntityPayload{
			{IdempotencyKey: "loc-1", Name: "Widget", Stock: 3},
		}

		resp, err := h.bulkSync(ctx, input)

		assert.NoError(t, err)
		assert.True(t, resp.Body.Success)
		assert.Equal(t, 1, resp.Body.SyncedCount)
		svc.AssertExpectations(t)
	})

	t.Run("Structural_Error_Is_422", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc, nil, nil, nil)

		svc.On("BulkSync", mock.Anything, mock.Anything).
			Return(nil, ingest.ErrEmptyBatch)

		input := &bulkSyncInput{}
		resp, err := h.bulkSync(ctx, input)

		assert.Nil(t, resp)
		assert.Error(t, err)
	})
}

func TestHandler_CreateEntity_Duplicate(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, nil, nil, nil)

	key := "loc-1"
	svc.On("CreateSingle", mock.Anything, mock.Anything).Return(&ingest.CreateResponse{
		Success:   true,
		Entity:    product.Product{ID: 42, Name: "Widget", OfflineID: &key},
		Duplicate: true,
	}, nil)

	input := &createEntityInput{}
	input.Body = ingest.CreateRequest{IdempotencyKey: "loc-1", Name: "Widget"}

	resp, err := h.createEntity(context.Background(), input)

	assert.NoError(t, err)
	assert.True(t, resp.Body.Duplicate)
	assert.Equal(t, int64(42), resp.Body.Entity.ID)
}

func TestHandler_UpdateEntity_NotFound(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, nil, nil, nil)

	svc.On("UpdateEntity", mock.Anything, "loc-miss", mock.Anything).
		Return(product.ErrNotFound)

	input := &updateEntityInput{Key: "loc-miss"}
	resp, err := h.updateEntity(context.Background(), input)

	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestHandler_SyncStatus(t *testing.T) {
	svc := new(MockService)
	h := NewHandler(svc, nil, nil, nil)

	svc.On("Status", mock.Anything).Return(&ingest.StatusResponse{
		TotalEntities:  12,
		SyncedEntities: 5,
	}, nil)

	resp, err := h.syncStatus(context.Background(), &syncStatusInput{})

	assert.NoError(t, err)
	assert.Equal(t, 12, resp.Body.TotalEntities)
	assert.Equal(t, 5, resp.Body.SyncedEntities)
}
