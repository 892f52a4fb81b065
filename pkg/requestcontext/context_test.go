package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	id := NewRequestID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, RequestID(WithRequestID(ctx, id)))
}

func TestNow(t *testing.T) {
	fixed := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}
