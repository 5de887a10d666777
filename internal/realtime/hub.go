// Package realtime 按用户维度做消息扇出，用于审核结果的实时推送。
// 同一用户可以有多个并发订阅通道；失效通道在发送时顺带剪除，
// 不会阻塞对同一用户其他通道的投递。
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wyfcoding/supervision/pkg/logger"
)

// Broadcaster 实时推送接口，投递是尽力而为的，不向调用方暴露失败
type Broadcaster interface {
	SendToUser(ctx context.Context, userID string, message any)
}

// subscriberBuffer 单个订阅通道的缓冲大小
const subscriberBuffer = 16

// Subscription 一个用户的订阅通道
type Subscription struct {
	// C 推送消息通道，内容为 JSON 字节
	C      chan []byte
	userID string
	hub    *Hub
}

// Close 取消订阅并关闭通道
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub 进程内扇出中心
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]*Subscription
	gauge       prometheus.Gauge
}

// NewHub 创建扇出中心。gauge 跟踪订阅通道数，可为 nil
func NewHub(gauge prometheus.Gauge) *Hub {
	return &Hub{
		subscribers: make(map[string][]*Subscription),
		gauge:       gauge,
	}
}

// Subscribe 为用户新增一个订阅通道
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		C:      make(chan []byte, subscriberBuffer),
		userID: userID,
		hub:    h,
	}

	h.mu.Lock()
	h.subscribers[userID] = append(h.subscribers[userID], sub)
	h.mu.Unlock()

	if h.gauge != nil {
		h.gauge.Inc()
	}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.userID]
	for i, s := range subs {
		if s == sub {
			h.subscribers[sub.userID] = append(subs[:i], subs[i+1:]...)
			close(s.C)
			if h.gauge != nil {
				h.gauge.Dec()
			}
			break
		}
	}
	if len(h.subscribers[sub.userID]) == 0 {
		delete(h.subscribers, sub.userID)
	}
}

// SendToUser 向用户的所有订阅通道投递消息。
// 缓冲已满的通道视为失效并剪除；没有订阅时静默返回。
// 发送全程持有读锁：unsubscribe 在写锁内 close 通道，
// 读锁保证 close 不会插进快照和发送之间。
func (h *Hub) SendToUser(ctx context.Context, userID string, message any) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Warn(ctx, "realtime message marshal failed", "user_id", userID, "error", err)
		return
	}

	var stale []*Subscription
	h.mu.RLock()
	for _, sub := range h.subscribers[userID] {
		select {
		case sub.C <- payload:
		default:
			stale = append(stale, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range stale {
		logger.Debug(ctx, "pruning stale realtime subscriber", "user_id", userID)
		h.unsubscribe(sub)
	}
}

// SubscriberCount 当前订阅通道总数
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
