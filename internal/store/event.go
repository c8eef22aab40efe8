package store

import (
	"context"
	"sync"
	"time"

	"github.com/wsx864321/kstore/pkg/log"
)

// Event 连接生命周期事件
type Event string

const (
	EventReady        Event = "ready"
	EventConnect      Event = "connect"
	EventReconnecting Event = "reconnecting"
	EventEnd          Event = "end"
	EventWarning      Event = "warning"
	EventError        Event = "error"
)

// EventInfo 事件携带的信息，未涉及的字段为零值
type EventInfo struct {
	Event   Event
	Addr    string
	Attempt int64
	Command string
	Key     string
	Cost    time.Duration
	Err     error
}

// Listener 事件监听函数，在触发事件的 goroutine 中同步执行
type Listener func(ctx context.Context, info EventInfo)

// State 由客户端行为推导出的连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateReconnecting
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

type emitter struct {
	mu        sync.RWMutex
	listeners map[Event][]Listener
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[Event][]Listener)}
}

func (e *emitter) on(event Event, l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], l)
}

func (e *emitter) emit(ctx context.Context, info EventInfo) {
	e.mu.RLock()
	ls := e.listeners[info.Event]
	e.mu.RUnlock()
	for _, l := range ls {
		l(ctx, info)
	}
}

// logListeners 默认的日志监听器，随 Store 创建永久注册
func logListeners(logger *log.Logger) map[Event]Listener {
	return map[Event]Listener{
		EventReady: func(ctx context.Context, info EventInfo) {
			logger.Info(ctx, "redis client ready", log.String("addr", info.Addr))
		},
		EventConnect: func(ctx context.Context, info EventInfo) {
			logger.Info(ctx, "redis is now connected", log.String("addr", info.Addr))
		},
		EventReconnecting: func(ctx context.Context, info EventInfo) {
			logger.Warn(ctx, "redis reconnecting",
				log.String("addr", info.Addr),
				log.Int64("attempt", info.Attempt),
				log.Err(info.Err),
			)
		},
		EventEnd: func(ctx context.Context, info EventInfo) {
			logger.Info(ctx, "redis closed", log.String("addr", info.Addr))
		},
		EventWarning: func(ctx context.Context, info EventInfo) {
			logger.Warn(ctx, "redis client warning",
				log.String("command", info.Command),
				log.Duration("cost", info.Cost),
			)
		},
		EventError: func(ctx context.Context, info EventInfo) {
			if info.Command == "" {
				logger.Error(ctx, "redis error", log.String("addr", info.Addr), log.Err(info.Err))
				return
			}
			logger.Error(ctx, "redis command failed",
				log.String("op", info.Command),
				log.String("key", info.Key),
				log.Err(info.Err),
			)
		},
	}
}
