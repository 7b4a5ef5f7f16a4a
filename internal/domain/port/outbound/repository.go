package outbound

import (
	"context"
	"time"

	"github.com/majiny/eksops/internal/domain/model"
)

type PageRequest struct {
	Page    int
	Size    int
	OrderBy string
	Desc    bool
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

type InvocationFilter struct {
	Action    string
	Status    string
	ErrorKind string
	Since     *time.Time
	Until     *time.Time
}

// InvocationRepository persists the append-only invocation audit trail.
type InvocationRepository interface {
	Create(ctx context.Context, rec model.InvocationRecord) error
	List(ctx context.Context, filter InvocationFilter, page PageRequest) (PageResult[model.InvocationRecord], error)
}
