package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/wsx864321/kstore/pkg/config"
	"github.com/wsx864321/kstore/pkg/log"
)

const defaultAddr = "127.0.0.1:6379"

type options struct {
	client        redis.UniversalClient
	addrs         []string
	masterName    string
	password      string
	db            int
	poolSize      int
	minIdleConns  int
	dialTimeout   time.Duration
	slowThreshold time.Duration
	logger        *log.Logger
	registerer    prometheus.Registerer
	tracing       bool
}

type Option func(opts *options)

// WithClient 注入已创建的客户端，Store 关闭时会一并关闭它。
// Store 会在客户端上挂载 hook；同一个客户端同时只挂载一次，
// 后创建的 Store 仍可执行命令，但不会收到 hook 驱动的事件、指标和 trace。
func WithClient(client redis.UniversalClient) Option {
	return func(opts *options) {
		opts.client = client
	}
}

// WithAddr 设置单节点地址 host:port
func WithAddr(addr string) Option {
	return func(opts *options) {
		opts.addrs = []string{addr}
	}
}

// WithAddrs 设置多个地址，多于一个时使用集群模式
func WithAddrs(addrs ...string) Option {
	return func(opts *options) {
		opts.addrs = addrs
	}
}

// WithMasterName 设置哨兵 master 名称，非空时使用哨兵模式
func WithMasterName(name string) Option {
	return func(opts *options) {
		opts.masterName = name
	}
}

// WithPassword set password
func WithPassword(password string) Option {
	return func(opts *options) {
		opts.password = password
	}
}

// WithDB set db
func WithDB(db int) Option {
	return func(opts *options) {
		opts.db = db
	}
}

// WithPoolSize set pool size
func WithPoolSize(size int) Option {
	return func(opts *options) {
		opts.poolSize = size
	}
}

// WithMinIdleConns set min idle conns
func WithMinIdleConns(n int) Option {
	return func(opts *options) {
		opts.minIdleConns = n
	}
}

// WithDialTimeout set dial timeout
func WithDialTimeout(d time.Duration) Option {
	return func(opts *options) {
		opts.dialTimeout = d
	}
}

// WithSlowThreshold 命令耗时超过阈值时触发 warning 事件，0 表示关闭
func WithSlowThreshold(d time.Duration) Option {
	return func(opts *options) {
		opts.slowThreshold = d
	}
}

// WithLogger set logger
func WithLogger(logger *log.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithRegisterer 设置 prometheus 注册表，nil 表示不采集指标
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(opts *options) {
		opts.registerer = reg
	}
}

// WithTracing 是否为每条命令创建 span
func WithTracing(enable bool) Option {
	return func(opts *options) {
		opts.tracing = enable
	}
}

// ConfigOptions 根据 pkg/config 中的配置生成选项
func ConfigOptions() []Option {
	opts := []Option{
		WithAddrs(config.GetRedisAddrs()...),
		WithMasterName(config.GetRedisMasterName()),
		WithPassword(config.GetRedisPassword()),
		WithDB(config.GetRedisDB()),
		WithPoolSize(config.GetRedisPoolSize()),
		WithMinIdleConns(config.GetRedisMinIdleConns()),
		WithDialTimeout(config.GetRedisDialTimeout()),
		WithSlowThreshold(config.GetRedisSlowThreshold()),
		WithTracing(config.GetTraceEnable()),
	}
	if config.GetMetricsEnable() {
		opts = append(opts, WithRegisterer(prometheus.DefaultRegisterer))
	}
	return opts
}

func buildOptions(opts []Option) options {
	o := options{
		addrs: []string{defaultAddr},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	return o
}
