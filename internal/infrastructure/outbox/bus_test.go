package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domoutbox "github.com/tiendalino/commerce-core/internal/domain/outbox"
	"go.uber.org/zap"
)

type testEvent struct {
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()

	received := make(chan domoutbox.Event, 1)
	bus.Subscribe("order.confirmed", func(_ context.Context, e domoutbox.Event) error {
		received <- e
		return nil
	})

	bus.Start(ctx)
	defer bus.Stop(ctx)

	require.NoError(t, bus.Publish(ctx, testEvent{name: "order.confirmed"}))

	select {
	case e := <-received:
		assert.Equal(t, "order.confirmed", e.EventName())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

// Publishing after Stop must drop the event instead of panicking on the
// closed queue.
func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()

	bus.Start(ctx)
	bus.Stop(ctx)

	assert.NoError(t, bus.Publish(ctx, testEvent{name: "order.confirmed"}))
}

func TestBus_StopWithConcurrentPublishers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()
	bus.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NoError(t, bus.Publish(ctx, testEvent{name: "order.confirmed"}))
			}
		}()
	}

	bus.Stop(ctx)
	wg.Wait()
}
