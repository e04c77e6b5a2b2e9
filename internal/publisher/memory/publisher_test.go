package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "slices", map[string]int{"articles": 2})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "slices", "second")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[1].Payload)

	msgs[0].Topic = "changed"
	assert.Equal(t, "slices", pub.Messages()[0].Topic)
}

func TestPublisherError(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.Err = errors.New("unavailable")
	_, err := pub.Publish(context.Background(), "slices", nil)
	require.Error(t, err)
	assert.Empty(t, pub.Messages())
}
