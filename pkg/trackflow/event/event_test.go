package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/trackflow/pkg/trackflow/command"
	"github.com/randalmurphal/trackflow/pkg/trackflow/dataset"
)

func imageEvent(node, key string) Event {
	return New(NodeData(node, key), Image{View: dataset.ImageView{}})
}

func TestScope_Matches(t *testing.T) {
	ev := Scope{Node: "trackerA", Key: "camImage"}
	tests := []struct {
		name     string
		listener Scope
		want     bool
	}{
		{"global", Global(), true},
		{"named same key", Named("camImage"), true},
		{"named other key", Named("other"), false},
		{"node data exact", NodeData("trackerA", "camImage"), true},
		{"node data other node", NodeData("trackerB", "camImage"), false},
		{"node data other key", NodeData("trackerA", "depth"), false},
		{"node only", Scope{Node: "trackerA"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.listener.Matches(ev))
		})
	}
}

func TestRegistry_ScopedDispatch(t *testing.T) {
	r := NewRegistry()
	var hits []string
	r.Add(ChannelImage, NodeData("trackerA", "camImage"), func(Event) { hits = append(hits, "exact") })
	r.Add(ChannelImage, Named("camImage"), func(Event) { hits = append(hits, "named") })
	r.Add(ChannelImage, Global(), func(Event) { hits = append(hits, "global") })
	r.Add(ChannelExtrinsic, Global(), func(Event) { hits = append(hits, "other channel") })

	n := r.Dispatch(imageEvent("trackerA", "camImage"), nil)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"exact", "named", "global"}, hits)

	hits = nil
	r.Dispatch(imageEvent("trackerB", "camImage"), nil)
	assert.Equal(t, []string{"named", "global"}, hits)

	hits = nil
	r.Dispatch(imageEvent("trackerA", "depth"), nil)
	assert.Equal(t, []string{"global"}, hits)
}

func TestRegistry_DuplicatesAndRemove(t *testing.T) {
	r := NewRegistry()
	count := 0
	fn := func(Event) { count++ }

	t1 := r.Add(ChannelImage, Global(), fn)
	t2 := r.Add(ChannelImage, Global(), fn)
	assert.NotEqual(t, t1, t2)
	assert.Equal(t, 2, r.Len())

	r.Dispatch(imageEvent("a", "b"), nil)
	assert.Equal(t, 2, count)

	assert.True(t, r.Remove(t1))
	assert.False(t, r.Remove(t1))
	assert.False(t, r.Remove(Token("unknown")))

	r.Dispatch(imageEvent("a", "b"), nil)
	assert.Equal(t, 3, count)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Remove(t2))
}

func TestRegistry_PanicIsolated(t *testing.T) {
	r := NewRegistry()
	var recovered any
	called := false
	r.Add(ChannelImage, Global(), func(Event) { panic("listener bug") })
	r.Add(ChannelImage, Global(), func(Event) { called = true })

	n := r.Dispatch(imageEvent("a", "b"), func(v any) { recovered = v })
	assert.Equal(t, 2, n)
	assert.True(t, called)
	assert.Equal(t, "listener bug", recovered)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tok := r.Add(ChannelImage, Global(), func(Event) {})
				r.Dispatch(imageEvent("a", "b"), nil)
				r.Remove(tok)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}

func TestQueue_DrainFIFO(t *testing.T) {
	q := NewQueue(0)
	q.Push(imageEvent("a", "1"))
	q.Push(imageEvent("a", "2"))

	events := q.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].Scope.Key)
	assert.Equal(t, "2", events[1].Scope.Key)
	assert.Empty(t, q.Drain())
}

func TestQueue_BoundedKeepsCommandResults(t *testing.T) {
	q := NewQueue(2)
	c, _ := command.New("runTracking", nil)
	q.Push(New(Global(), CommandCompleted{Result: command.Succeeded(c, nil, nil)}))
	q.Push(imageEvent("a", "1"))
	q.Push(imageEvent("a", "2"))

	events := q.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, ChannelCommand, events[0].Channel())
	assert.Equal(t, "2", events[1].Scope.Key)
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueue_Wait(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		q := NewQueue(0)
		start := time.Now()
		assert.False(t, q.Wait(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("already queued", func(t *testing.T) {
		q := NewQueue(0)
		q.Push(imageEvent("a", "b"))
		assert.True(t, q.Wait(context.Background(), time.Hour))
	})

	t.Run("woken by push", func(t *testing.T) {
		q := NewQueue(0)
		go func() {
			time.Sleep(10 * time.Millisecond)
			q.Push(imageEvent("a", "b"))
		}()
		assert.True(t, q.Wait(context.Background(), 5*time.Second))
	})

	t.Run("context cancelled", func(t *testing.T) {
		q := NewQueue(0)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, q.Wait(ctx, time.Hour))
	})
}

func TestEvent_Channel(t *testing.T) {
	assert.Equal(t, ChannelTrackingState, New(Global(), TrackingState{}).Channel())
	assert.Equal(t, ChannelPerformanceInfo, New(Global(), PerformanceInfo{}).Channel())
	assert.Equal(t, Channel(0), Event{}.Channel())
	assert.Equal(t, "tracking_state", ChannelTrackingState.String())
	assert.Equal(t, "*.key", Named("key").String())
}
