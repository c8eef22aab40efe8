// Package store 提供 Redis 的键值与列表访问门面。
//
// Store 包装一个 go-redis 客户端，统一记录错误日志并返回可用 errors.Is 判断的错误，
// 同时通过 hook 观察连接生命周期（ready、connect、reconnecting、end、warning、error）。
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wsx864321/kstore/pkg/log"
	"github.com/wsx864321/kstore/pkg/xerr"
)

const (
	// DefaultRangeStart LRange 默认起始下标
	DefaultRangeStart int64 = 0
	// DefaultRangeStop LRange 默认结束下标，-1 表示最后一个元素
	DefaultRangeStop int64 = -1
	// DefaultRemoveCount LRem 默认删除个数
	DefaultRemoveCount int64 = 1

	// NoExpiry TTL 返回值：key 存在但没有过期时间
	NoExpiry = time.Duration(-1)
	// KeyMissing TTL 返回值：key 不存在
	KeyMissing = time.Duration(-2)
)

// Store Redis 门面，并发安全
type Store struct {
	opts        options
	client      redis.UniversalClient
	owned       bool
	addr        string
	logger      *log.Logger
	metrics     *metrics
	events      *emitter
	rpushExpire *redis.Script

	state     atomic.Int32
	attempts  atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// hookedClients 已挂载 hook 的注入客户端 -> 持有它的 Store
var hookedClients sync.Map

// New 创建 Store，不做任何网络 IO
func New(opts ...Option) *Store {
	o := buildOptions(opts)
	s := &Store{
		opts:        o,
		metrics:     newMetrics(o.registerer),
		events:      newEmitter(),
		rpushExpire: redis.NewScript(rpushExpireLuaScript),
	}

	if o.client != nil {
		s.client = o.client
		s.addr = clientAddr(o.client)
	} else {
		if len(o.addrs) == 0 {
			o.addrs = []string{defaultAddr}
		}
		s.owned = true
		s.addr = strings.Join(o.addrs, ",")
		s.client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:        o.addrs,
			MasterName:   o.masterName,
			Password:     o.password,
			DB:           o.db,
			PoolSize:     o.poolSize,
			MinIdleConns: o.minIdleConns,
			DialTimeout:  o.dialTimeout,
			OnConnect: func(ctx context.Context, _ *redis.Conn) error {
				s.markReady(ctx)
				return nil
			},
		})
	}
	s.logger = o.logger.With(log.String("redis", s.addr))

	for event, l := range logListeners(s.logger) {
		s.events.on(event, l)
	}
	s.attachHook()

	return s
}

// attachHook 为客户端挂载 hook；go-redis 无法移除 hook，注入的客户端只挂载一次
func (s *Store) attachHook() {
	if !s.owned {
		if _, loaded := hookedClients.LoadOrStore(s.client, s); loaded {
			s.logger.Warn(context.Background(), "redis client already wrapped by another store, hook skipped")
			return
		}
	}
	s.client.AddHook(hook{s: s})
}

// Open 创建 Store 并建立连接，连接失败时关闭客户端并返回错误
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s := New(opts...)
	if err := s.Connect(ctx); err != nil {
		_ = s.client.Close()
		if !s.owned {
			hookedClients.CompareAndDelete(s.client, s)
		}
		return nil, err
	}
	return s, nil
}

func clientAddr(client redis.UniversalClient) string {
	if c, ok := client.(*redis.Client); ok {
		return c.Options().Addr
	}
	return ""
}

// On 注册生命周期事件监听
func (s *Store) On(event Event, l Listener) {
	s.events.on(event, l)
}

// State 返回观察到的连接状态
func (s *Store) State() State {
	return State(s.state.Load())
}

// Connect 建立连接，已就绪时直接返回
func (s *Store) Connect(ctx context.Context) error {
	if s.closed.Load() {
		return xerr.ErrStoreClosed
	}
	if s.State() == StateReady {
		return nil
	}
	s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting))

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.emit(ctx, EventInfo{Event: EventError, Addr: s.addr, Err: err})
		return xerr.ErrStoreConnect.WithCause(err)
	}
	s.markReady(ctx)
	return nil
}

// Ping 检查连接可用
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return xerr.ErrStoreClosed
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.fail(ctx, "ping", "", err)
	}
	return nil
}

// Quit 异步关闭连接，不等待结果
func (s *Store) Quit() {
	go func() {
		if err := s.Close(); err != nil {
			s.logger.Warn(context.Background(), "redis quit failed", log.Err(err))
		}
	}()
}

// Close 关闭连接并触发 end 事件，重复调用返回首次关闭的结果
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.state.Store(int32(StateEnded))
		s.closeErr = s.client.Close()
		if !s.owned {
			hookedClients.CompareAndDelete(s.client, s)
		}
		s.emit(context.Background(), EventInfo{Event: EventEnd, Addr: s.addr})
	})
	return s.closeErr
}

// Exists 判断 key 是否存在
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.precheck(key); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.fail(ctx, "exists", key, err)
	}
	return n > 0, nil
}

// Set 写入值，ttl > 0 时与写入原子地设置过期时间，返回 Redis 的应答（通常为 OK）
func (s *Store) Set(ctx context.Context, key string, value Value, ttl time.Duration) (string, error) {
	if err := s.precheck(key); err != nil {
		return "", err
	}
	raw, err := value.Encode()
	if err != nil {
		return "", err
	}
	reply, err := s.client.Set(ctx, key, raw, expiration(ttl)).Result()
	if err != nil {
		return "", s.fail(ctx, "set", key, err)
	}
	return reply, nil
}

// Get 读取值，key 不存在时 found 为 false 且 err 为 nil
func (s *Store) Get(ctx context.Context, key string) (value string, found bool, err error) {
	if err := s.precheck(key); err != nil {
		return "", false, err
	}
	value, err = s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, s.fail(ctx, "get", key, err)
	}
	return value, true, nil
}

// Remove 删除 key，返回删除的个数
func (s *Store) Remove(ctx context.Context, key string) (int64, error) {
	if err := s.precheck(key); err != nil {
		return 0, err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return 0, s.fail(ctx, "del", key, err)
	}
	return n, nil
}

// RPush 追加到列表尾部，返回追加后的长度；ttl > 0 时 RPUSH 与 PEXPIRE 在同一个 Lua 脚本中执行，
// RPUSH 失败时不会设置过期时间
func (s *Store) RPush(ctx context.Context, key string, ttl time.Duration, values ...Value) (int64, error) {
	if err := s.precheck(key); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, xerr.ErrInvalidParams.Wrapf(nil, "rpush %s without values", key)
	}
	args, err := encodeAll(values)
	if err != nil {
		return 0, err
	}

	if ttl <= 0 {
		n, err := s.client.RPush(ctx, key, args...).Result()
		if err != nil {
			return 0, s.fail(ctx, "rpush", key, err)
		}
		return n, nil
	}

	argv := make([]any, 0, len(args)+1)
	argv = append(argv, expireMillis(ttl))
	argv = append(argv, args...)
	n, err := s.rpushExpire.Run(ctx, s.client, []string{key}, argv...).Int64()
	if err != nil {
		return 0, s.fail(ctx, "rpush", key, err)
	}
	return n, nil
}

// LRange 返回列表 [start, stop] 闭区间内的元素，负数下标从尾部计数
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := s.precheck(key); err != nil {
		return nil, err
	}
	values, err := s.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, s.fail(ctx, "lrange", key, err)
	}
	return values, nil
}

// LRangeAll 返回整个列表
func (s *Store) LRangeAll(ctx context.Context, key string) ([]string, error) {
	return s.LRange(ctx, key, DefaultRangeStart, DefaultRangeStop)
}

// LRem 删除最多 count 个等于 value 的元素，返回删除个数
func (s *Store) LRem(ctx context.Context, key string, count int64, value Value) (int64, error) {
	if err := s.precheck(key); err != nil {
		return 0, err
	}
	raw, err := value.Encode()
	if err != nil {
		return 0, err
	}
	n, err := s.client.LRem(ctx, key, count, raw).Result()
	if err != nil {
		return 0, s.fail(ctx, "lrem", key, err)
	}
	return n, nil
}

// Expire 设置过期时间，key 不存在时返回 false
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.precheck(key); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, xerr.ErrInvalidParams.Wrapf(nil, "expire %s with ttl %s", key, ttl)
	}
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, s.fail(ctx, "expire", key, err)
	}
	return ok, nil
}

// TTL 返回剩余过期时间，没有过期时间返回 NoExpiry，key 不存在返回 KeyMissing
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := s.precheck(key); err != nil {
		return 0, err
	}
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, s.fail(ctx, "ttl", key, err)
	}
	return d, nil
}

func (s *Store) precheck(key string) error {
	if s.closed.Load() {
		return xerr.ErrStoreClosed
	}
	if key == "" {
		return xerr.ErrInvalidKey
	}
	return nil
}

// fail 触发 error 事件（默认监听器记录日志）并包装为 ErrStoreOperation
func (s *Store) fail(ctx context.Context, op, key string, err error) error {
	s.emit(ctx, EventInfo{Event: EventError, Addr: s.addr, Command: op, Key: key, Err: err})
	return xerr.ErrStoreOperation.Wrapf(err, "%s %s", op, key)
}

func (s *Store) emit(ctx context.Context, info EventInfo) {
	s.metrics.observeEvent(info.Event)
	s.events.emit(ctx, info)
}

func (s *Store) markReady(ctx context.Context) {
	if s.closed.Load() {
		return
	}
	prev := State(s.state.Swap(int32(StateReady)))
	if prev != StateReady {
		s.attempts.Store(0)
		s.emit(ctx, EventInfo{Event: EventReady, Addr: s.addr})
	}
}

func (s *Store) onDial(ctx context.Context, addr string) {
	s.emit(ctx, EventInfo{Event: EventConnect, Addr: addr})
	// 注入的客户端没有 OnConnect 回调，拨号成功即视为就绪
	if !s.owned && s.State() == StateReconnecting {
		s.markReady(ctx)
	}
}

func (s *Store) onDialError(ctx context.Context, addr string, err error) {
	s.emit(ctx, EventInfo{Event: EventError, Addr: addr, Err: err})
	if s.State() == StateReconnecting {
		s.emit(ctx, EventInfo{
			Event:   EventReconnecting,
			Addr:    addr,
			Attempt: s.attempts.Add(1),
			Err:     err,
		})
	}
}

func (s *Store) onConnectionLost(ctx context.Context, err error) {
	if !s.state.CompareAndSwap(int32(StateReady), int32(StateReconnecting)) {
		return
	}
	s.emit(ctx, EventInfo{
		Event:   EventReconnecting,
		Addr:    s.addr,
		Attempt: s.attempts.Add(1),
		Err:     err,
	})
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}
