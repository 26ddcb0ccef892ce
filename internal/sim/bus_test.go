package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInPublishOrder(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()

	for i := 1; i <= 5; i++ {
		b.Publish(i)
	}

	for i := 1; i <= 5; i++ {
		got, ok := sub.TryNext()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}

	_, ok := sub.TryNext()
	assert.False(t, ok, "subscription should be drained")
}

func TestBus_NewSubscriberMissesPastEvents(t *testing.T) {
	b := NewBus[string]()
	early := b.Subscribe()

	b.Publish("before")
	late := b.Subscribe()
	b.Publish("after")

	assert.Equal(t, 2, early.Len())
	assert.Equal(t, 1, late.Len())

	got, ok := late.TryNext()
	require.True(t, ok)
	assert.Equal(t, "after", got)
}

func TestBus_FanOutToAllSubscribers(t *testing.T) {
	b := NewBus[int]()
	subs := []*Subscription[int]{b.Subscribe(), b.Subscribe(), b.Subscribe()}

	b.Publish(42)

	for _, s := range subs {
		got, ok := s.TryNext()
		require.True(t, ok)
		assert.Equal(t, 42, got)
	}
}

func TestSubscription_UnsubscribeDrainsThenEnds(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()

	b.Publish(1)
	b.Publish(2)
	sub.Unsubscribe()
	b.Publish(3)

	assert.Equal(t, 0, b.Len())

	var got []int
	for e := range sub.Events(context.Background()) {
		got = append(got, e)
	}
	assert.Equal(t, []int{1, 2}, got, "queued events survive unsubscribe, later ones do not")

	_, err := sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrUnsubscribed)
}

func TestSubscription_UnsubscribeIdempotent(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()

	sub.Unsubscribe()
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestSubscription_NextBlocksUntilPublish(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()

	done := make(chan int, 1)
	go func() {
		e, err := sub.Next(context.Background())
		if err == nil {
			done <- e
		}
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(7)

	select {
	case e := <-done:
		assert.Equal(t, 7, e)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Publish")
	}
}

func TestSubscription_NextHonorsContext(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscription_EventsBreakStopsIteration(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()
	for i := 0; i < 10; i++ {
		b.Publish(i)
	}

	var got []int
	for e := range sub.Events(context.Background()) {
		got = append(got, e)
		if len(got) == 3 {
			break
		}
	}

	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 7, sub.Len())
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()
	b.Publish(1)
	b.Close()

	e, err := sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, e)

	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrUnsubscribed)

	late := b.Subscribe()
	_, err = late.Next(context.Background())
	assert.ErrorIs(t, err, ErrUnsubscribed)
}

func TestBus_ConcurrentPublishersKeepPerSubscriberOrder(t *testing.T) {
	b := NewBus[int]()
	sub := b.Subscribe()

	var mu sync.Mutex
	var published []int
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				v := g*1000 + i
				// Publish under a shared lock, the way engines do.
				mu.Lock()
				published = append(published, v)
				b.Publish(v)
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	var got []int
	for sub.Len() > 0 {
		e, _ := sub.TryNext()
		got = append(got, e)
	}
	assert.Equal(t, published, got)
}
