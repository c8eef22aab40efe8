package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvRedisHost Redis 地址环境变量
	EnvRedisHost = "NODE_REDIS_HOST"
	// EnvRedisPort Redis 端口环境变量
	EnvRedisPort = "NODE_REDIS_PORT"

	envPrefix = "KSTORE"

	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = 6379
)

// Init 读取配置文件，失败直接 panic
func Init(path string) {
	if err := Load(path); err != nil {
		panic(err)
	}
}

// Load 加载 .env、环境变量与可选的 YAML 配置文件
func Load(path string) error {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env failed: %w", err)
	}

	bindEnv()

	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s failed: %w", path, err)
	}
	return nil
}

func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// 兼容旧的环境变量名，优先级高于 KSTORE_ 前缀
	_ = viper.BindEnv("redis.host", EnvRedisHost, envPrefix+"_REDIS_HOST")
	_ = viper.BindEnv("redis.port", EnvRedisPort, envPrefix+"_REDIS_PORT")
}

// GetRedisHost 获取 Redis 主机
func GetRedisHost() string {
	host := viper.GetString("redis.host")
	if host == "" {
		return defaultRedisHost
	}
	return host
}

// GetRedisPort 获取 Redis 端口，非法值回退到默认端口
func GetRedisPort() int {
	raw := viper.GetString("redis.port")
	if raw == "" {
		return defaultRedisPort
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return defaultRedisPort
	}
	return port
}

// GetRedisAddr 获取 host:port 形式的 Redis 地址
func GetRedisAddr() string {
	return net.JoinHostPort(GetRedisHost(), strconv.Itoa(GetRedisPort()))
}

// GetRedisAddrs 获取 Redis 地址列表，集群/哨兵模式使用；未配置时为单节点地址
func GetRedisAddrs() []string {
	addrs := viper.GetStringSlice("redis.addrs")
	if len(addrs) == 0 {
		return []string{GetRedisAddr()}
	}
	return addrs
}

// GetRedisMasterName 获取哨兵模式 master 名称
func GetRedisMasterName() string {
	return viper.GetString("redis.master_name")
}

// GetRedisPassword 获取 Redis 密码
func GetRedisPassword() string {
	return viper.GetString("redis.password")
}

// GetRedisDB 获取 Redis 数据库编号
func GetRedisDB() int {
	return viper.GetInt("redis.db")
}

// GetRedisPoolSize 获取 Redis 连接池大小
func GetRedisPoolSize() int {
	poolSize := viper.GetInt("redis.pool_size")
	if poolSize <= 0 {
		return 10 // 默认值
	}
	return poolSize
}

// GetRedisMinIdleConns 获取 Redis 最小空闲连接数
func GetRedisMinIdleConns() int {
	minIdleConns := viper.GetInt("redis.min_idle_conns")
	if minIdleConns < 0 {
		return 0
	}
	return minIdleConns
}

// GetRedisDialTimeout 获取 Redis 建连超时
func GetRedisDialTimeout() time.Duration {
	d := viper.GetDuration("redis.dial_timeout")
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// GetRedisSlowThreshold 获取慢命令告警阈值，0 表示关闭
func GetRedisSlowThreshold() time.Duration {
	return viper.GetDuration("redis.slow_threshold")
}

// GetLogDebug 获取日志 Debug 模式配置
func GetLogDebug() bool {
	return viper.GetBool("log.debug")
}

// GetLogDir 获取日志目录
func GetLogDir() string {
	dir := viper.GetString("log.dir")
	if dir == "" {
		return "/home/www/logs/kstore" // 默认值
	}
	return dir
}

// GetLogFilename 获取日志文件名
func GetLogFilename() string {
	filename := viper.GetString("log.filename")
	if filename == "" {
		return "kstore.log" // 默认值
	}
	return filename
}

// GetLogLevel 获取日志级别
func GetLogLevel() string {
	level := viper.GetString("log.level")
	if level == "" {
		return "info"
	}
	return level
}

// GetMetricsEnable 是否开启 prometheus
func GetMetricsEnable() bool {
	return viper.GetBool("metrics.enable")
}

// GetMetricsHost 获取 prometheus 监听地址
func GetMetricsHost() string {
	host := viper.GetString("metrics.host")
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

// GetMetricsPort 获取 prometheus 监听端口
func GetMetricsPort() int {
	port := viper.GetInt("metrics.port")
	if port <= 0 {
		return 9464
	}
	return port
}

// GetTraceEnable 是否开启trace
func GetTraceEnable() bool {
	return viper.GetBool("trace.enable")
}

// GetTraceCollectionUrl 获取trace collection url
func GetTraceCollectionUrl() string {
	return viper.GetString("trace.url")
}

// GetTraceServiceName 获取服务名
func GetTraceServiceName() string {
	name := viper.GetString("trace.service_name")
	if name == "" {
		return "kstore"
	}
	return name
}

// GetTraceSampler 获取trace采样率
func GetTraceSampler() float64 {
	if !viper.IsSet("trace.sampler") {
		return 1
	}
	return viper.GetFloat64("trace.sampler")
}
