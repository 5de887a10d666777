package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanOutToAllUserChannels(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	a := hub.Subscribe("user-1")
	b := hub.Subscribe("user-1")
	other := hub.Subscribe("user-2")
	defer a.Close()
	defer b.Close()
	defer other.Close()

	hub.SendToUser(ctx, "user-1", map[string]string{"event": "approved"})

	for _, sub := range []*Subscription{a, b} {
		select {
		case payload := <-sub.C:
			var msg map[string]string
			require.NoError(t, json.Unmarshal(payload, &msg))
			assert.Equal(t, "approved", msg["event"])
		default:
			t.Fatal("expected message on subscription")
		}
	}

	select {
	case <-other.C:
		t.Fatal("message leaked to another user")
	default:
	}
}

func TestSendToUserWithoutSubscribers(t *testing.T) {
	hub := NewHub(nil)
	// 无订阅时静默返回
	hub.SendToUser(context.Background(), "nobody", map[string]string{"event": "x"})
}

func TestStaleChannelPruned(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	stale := hub.Subscribe("user-1")
	healthy := hub.Subscribe("user-1")
	defer healthy.Close()

	// 填满缓冲使其失效
	for i := 0; i < subscriberBuffer; i++ {
		hub.SendToUser(ctx, "user-1", map[string]int{"seq": i})
		<-healthy.C
	}

	hub.SendToUser(ctx, "user-1", map[string]string{"event": "final"})

	// 健康通道仍然收到消息，失效通道被剪除
	select {
	case <-healthy.C:
	default:
		t.Fatal("healthy channel should still receive")
	}
	assert.Equal(t, 1, hub.SubscriberCount())
	_ = stale
}

func TestConcurrentCloseAndSend(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	// 断开订阅和扇出并发执行不允许触发 send on closed channel
	const rounds = 500
	for i := 0; i < rounds; i++ {
		subs := make([]*Subscription, 8)
		for j := range subs {
			subs[j] = hub.Subscribe("user-1")
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for _, sub := range subs {
				sub.Close()
			}
		}()
		go func() {
			defer wg.Done()
			hub.SendToUser(ctx, "user-1", map[string]int{"seq": 1})
			hub.SendToUser(ctx, "user-1", map[string]int{"seq": 2})
		}()
		wg.Wait()
	}

	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestCloseRemovesSubscription(t *testing.T) {
	hub := NewHub(nil)

	sub := hub.Subscribe("user-1")
	require.Equal(t, 1, hub.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount())

	_, open := <-sub.C
	assert.False(t, open)
}
