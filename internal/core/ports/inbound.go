package ports

import (
	"context"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

// Retriever is the inbound contract for federated retrieval orchestration.
type Retriever interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error)
}
