package notify

import (
	"context"

	"github.com/go-redis/redis/v8"

	commonredis "github.com/rivoaiteam/rivo-partners/internal/common/redis"
	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

// StreamPublisher appends facts to a Redis stream as {type, data, timestamp}.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamPublisher) Dispatch(ctx context.Context, fact domain.Fact) error {
	_, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, fact.FactType(), fact)
	return err
}
