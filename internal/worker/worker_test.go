package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"attendboard/internal/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	seen []string
	done chan struct{}
	want int
}

func (r *recorder) Handle(_ context.Context, msg queue.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, msg.ID)
	if len(r.seen) == r.want {
		close(r.done)
	}
	if msg.ID == "bad" {
		return errors.New("boom")
	}
	return nil
}

func TestRunHandlesMessagesUntilCancelled(t *testing.T) {
	q := queue.NewInMemory(8)
	ctx, cancel := context.WithCancel(context.Background())
	for _, id := range []string{"a", "bad", "c"} {
		require.NoError(t, q.Publish(ctx, queue.Message{Type: "attendance.bulk", ID: id}))
	}

	rec := &recorder{done: make(chan struct{}), want: 3}
	w := New(q, rec, nil, time.Millisecond)

	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain the queue")
	}
	cancel()
	require.NoError(t, <-errc)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"a", "bad", "c"}, rec.seen)
}
