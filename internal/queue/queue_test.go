package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type payload struct {
	CourseID string `json:"courseId"`
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, open := <-ch:
		require.True(t, open, "consumer closed early")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage("bulk", "job-1", payload{CourseID: "MCA101"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"courseId":"MCA101"}`, string(msg.Body))

	var p payload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, "MCA101", p.CourseID)

	msg.Body = []byte("nope")
	assert.ErrorContains(t, msg.Decode(&p), "decode bulk message job-1")
}

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(4)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(ctx, Message{Type: "bulk", ID: id}))
	}
	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, receive(t, ch).ID)
	}

	cancel()
	for range ch {
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{ID: "fills"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{ID: "blocked"}), context.DeadlineExceeded)
}

func TestRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q := NewRedisQueue(client, "", nil)
	q.timeout = 100 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	msg, err := NewMessage("bulk", "job-1", payload{CourseID: "MCA103"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))
	require.NoError(t, q.Publish(ctx, Message{Type: "bulk", ID: "job-2", Body: []byte(`{}`)}))

	items, err := mr.List(DefaultKey)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, client.LPush(ctx, DefaultKey, "not json").Err())

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	got := receive(t, ch)
	assert.Equal(t, "job-1", got.ID)
	var p payload
	require.NoError(t, got.Decode(&p))
	assert.Equal(t, "MCA103", p.CourseID)
	assert.Equal(t, "job-2", receive(t, ch).ID)

	cancel()
	for range ch {
	}
}
