package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wsx864321/kstore/pkg/log"
	"github.com/wsx864321/kstore/pkg/xerr"
	"go.opentelemetry.io/otel"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest/observer"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []EventInfo
}

func (r *eventRecorder) listen(s *Store, events ...Event) {
	for _, e := range events {
		s.On(e, func(ctx context.Context, info EventInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, info)
		})
	}
}

func (r *eventRecorder) count(e Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, info := range r.events {
		if info.Event == e {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis, *observer.ObservedLogs) {
	t.Helper()
	mr := miniredis.RunT(t)
	core, logs := observer.New(log.DebugLevel)
	opts = append([]Option{
		WithAddr(mr.Addr()),
		WithLogger(log.NewLogger(log.WithCore(core))),
	}, opts...)

	s, err := Open(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr, logs
}

func TestSessionScenario(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	reply, err := s.Set(ctx, "session:1", JSON(map[string]string{"user": "bob"}), 60*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)

	raw, err := mr.Get("session:1")
	require.NoError(t, err)
	assert.Equal(t, `{"user":"bob"}`, raw)
	// 过期时间随写入一起生效
	assert.Equal(t, 60*time.Second, mr.TTL("session:1"))

	v, found, err := s.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"user":"bob"}`, v)

	n, err := s.Remove(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := s.Exists(ctx, "session:1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = s.Remove(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSetWithoutTTL(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "k", Text("v"), 0)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), mr.TTL("k"))

	_, err = s.Set(ctx, "k2", Text("v"), -time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), mr.TTL("k2"))

	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, ttl)
}

func TestGetMissing(t *testing.T) {
	s, _, logs := newTestStore(t)

	v, found, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
	assert.Zero(t, logs.FilterMessage("redis command failed").Len())
}

func TestExpiry(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "k", Text("v"), 10*time.Second)
	require.NoError(t, err)

	mr.FastForward(11 * time.Second)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRPushLRange(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	n, err := s.RPush(ctx, "list", 0, Texts("a", "b")...)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Duration(0), mr.TTL("list"))

	n, err = s.RPush(ctx, "list", 0, JSON(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := s.LRangeAll(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", `{"n":1}`}, all)

	tail, err := s.LRange(ctx, "list", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", `{"n":1}`}, tail)

	empty, err := s.LRangeAll(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRPushWithTTL(t *testing.T) {
	s, mr, _ := newTestStore(t)
	ctx := context.Background()

	n, err := s.RPush(ctx, "list", 30*time.Second, Texts("a", "b", "c")...)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 30*time.Second, mr.TTL("list"))

	mr.FastForward(31 * time.Second)
	ok, err := s.Exists(ctx, "list")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRPushWithTTLOnWrongType(t *testing.T) {
	s, mr, logs := newTestStore(t)
	rec := &eventRecorder{}
	rec.listen(s, EventError)
	ctx := context.Background()

	_, err := s.Set(ctx, "str", Text("v"), 0)
	require.NoError(t, err)

	_, err = s.RPush(ctx, "str", 30*time.Second, Text("a"))
	require.ErrorIs(t, err, xerr.ErrStoreOperation)

	// RPUSH 失败后不应给原有的值加上过期时间
	assert.Equal(t, time.Duration(0), mr.TTL("str"))
	raw, err := mr.Get("str")
	require.NoError(t, err)
	assert.Equal(t, "v", raw)
	assert.Equal(t, 1, rec.count(EventError))
	assert.Equal(t, 1, logs.FilterMessage("redis command failed").Len())
}

func TestLRem(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.RPush(ctx, "list", 0, Texts("a", "b", "a", "c", "a")...)
	require.NoError(t, err)

	n, err := s.LRem(ctx, "list", DefaultRemoveCount, Text("a"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.LRangeAll(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c", "a"}, all)

	n, err = s.LRem(ctx, "list", 0, Text("a"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.LRem(ctx, "list", 1, Text("zzz"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestExpireAndTTL(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, KeyMissing, ttl)

	_, err = s.Set(ctx, "k", Text("v"), 0)
	require.NoError(t, err)
	ok, err = s.Expire(ctx, "k", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err = s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, ttl)

	_, err = s.Expire(ctx, "k", 0)
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)
}

func TestInvalidArguments(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Set(ctx, "", Text("v"), 0)
	assert.ErrorIs(t, err, xerr.ErrInvalidKey)
	_, _, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, xerr.ErrInvalidKey)
	_, err = s.Exists(ctx, "")
	assert.ErrorIs(t, err, xerr.ErrInvalidKey)

	_, err = s.RPush(ctx, "list", 0)
	assert.ErrorIs(t, err, xerr.ErrInvalidParams)

	_, err = s.Set(ctx, "k", JSON(make(chan int)), 0)
	assert.ErrorIs(t, err, xerr.ErrInvalidValue)
	_, err = s.RPush(ctx, "list", 0, JSON(make(chan int)))
	assert.ErrorIs(t, err, xerr.ErrInvalidValue)
}

func TestLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	core, logs := observer.New(log.DebugLevel)
	s := New(WithAddr(mr.Addr()), WithLogger(log.NewLogger(log.WithCore(core))))
	rec := &eventRecorder{}
	rec.listen(s, EventConnect, EventReady, EventEnd)

	assert.Equal(t, StateDisconnected, s.State())

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Connect(ctx))
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 1, rec.count(EventReady))
	assert.GreaterOrEqual(t, rec.count(EventConnect), 1)
	assert.Equal(t, 1, logs.FilterMessage("redis client ready").Len())

	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, StateEnded, s.State())
	assert.Equal(t, 1, rec.count(EventEnd))
	assert.Equal(t, 1, logs.FilterMessage("redis closed").Len())

	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, xerr.ErrStoreClosed)
	assert.ErrorIs(t, s.Connect(ctx), xerr.ErrStoreClosed)
	assert.ErrorIs(t, s.Ping(ctx), xerr.ErrStoreClosed)
}

func TestQuit(t *testing.T) {
	s, _, logs := newTestStore(t)

	s.Quit()

	assert.Eventually(t, func() bool {
		return s.State() == StateEnded && logs.FilterMessage("redis closed").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOpenFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	core, logs := observer.New(log.DebugLevel)
	_, err := Open(context.Background(),
		WithAddr(addr),
		WithDialTimeout(100*time.Millisecond),
		WithLogger(log.NewLogger(log.WithCore(core))),
	)
	assert.ErrorIs(t, err, xerr.ErrStoreConnect)
	assert.GreaterOrEqual(t, logs.FilterMessage("redis error").Len(), 1)
}

func TestReconnecting(t *testing.T) {
	s, mr, logs := newTestStore(t)
	rec := &eventRecorder{}
	rec.listen(s, EventReconnecting, EventReady)
	ctx := context.Background()

	mr.Close()

	_, err := s.Set(ctx, "k", Text("v"), 0)
	require.ErrorIs(t, err, xerr.ErrStoreOperation)
	assert.Equal(t, StateReconnecting, s.State())
	assert.Equal(t, 1, rec.count(EventReconnecting))
	assert.Equal(t, 1, logs.FilterMessage("redis reconnecting").Len())
	assert.Equal(t, 1, logs.FilterMessage("redis command failed").Len())

	require.NoError(t, mr.Restart())

	assert.Eventually(t, func() bool {
		_, err := s.Set(ctx, "k", Text("v"), 0)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 1, rec.count(EventReady))
}

func TestCallerDeadlineKeepsReady(t *testing.T) {
	s, _, logs := newTestStore(t)
	rec := &eventRecorder{}
	rec.listen(s, EventReconnecting)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, _, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, xerr.ErrStoreOperation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, StateReady, s.State())
	assert.Zero(t, rec.count(EventReconnecting))
	assert.Zero(t, logs.FilterMessage("redis reconnecting").Len())

	_, _, err = s.Get(context.Background(), "k")
	require.NoError(t, err)
}

func TestSharedClientHookedOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reg := prometheus.NewRegistry()
	core, logs := observer.New(log.DebugLevel)
	logger := log.NewLogger(log.WithCore(core))

	first := New(WithClient(client), WithRegisterer(reg), WithLogger(logger))
	second := New(WithClient(client), WithRegisterer(reg), WithLogger(logger))
	t.Cleanup(func() { _ = second.Close() })
	assert.Equal(t, 1, logs.FilterMessage("redis client already wrapped by another store, hook skipped").Len())

	_, err := second.Set(context.Background(), "k", Text("v"), 0)
	require.NoError(t, err)
	// 只有一个 hook，命令只计数一次
	assert.Equal(t, float64(1), testutil.ToFloat64(first.metrics.commands.WithLabelValues("set", resultOK)))

	require.NoError(t, first.Close())
	_, ok := hookedClients.Load(client)
	assert.False(t, ok)
}

func TestSlowCommandWarning(t *testing.T) {
	s, _, logs := newTestStore(t, WithSlowThreshold(time.Nanosecond))
	rec := &eventRecorder{}
	rec.listen(s, EventWarning)

	_, err := s.Set(context.Background(), "k", Text("v"), 0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, rec.count(EventWarning), 1)
	entries := logs.FilterMessage("redis client warning").FilterField(log.String("command", "set"))
	assert.Equal(t, 1, entries.Len())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, _, _ := newTestStore(t, WithRegisterer(reg))
	ctx := context.Background()

	_, err := s.Set(ctx, "k", Text("v"), 0)
	require.NoError(t, err)
	_, _, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	_, err = s.RPush(ctx, "list", time.Minute, Text("a"))
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.commands.WithLabelValues("set", resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.commands.WithLabelValues("get", resultMiss)))
	// 脚本首次执行：EVALSHA 返回 NOSCRIPT 记为 miss，随后 EVAL 成功
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.commands.WithLabelValues("evalsha", resultMiss)))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.commands.WithLabelValues("eval", resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.events.WithLabelValues(string(EventReady))))

	// 同一注册表上的第二个 Store 复用已有指标
	other, _, _ := newTestStore(t, WithRegisterer(reg))
	assert.Same(t, s.metrics.commands, other.metrics.commands)
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	s, _, _ := newTestStore(t, WithTracing(true))
	_, err := s.Set(context.Background(), "k", Text("v"), 0)
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "redis.set")
}
