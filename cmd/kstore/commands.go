package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wsx864321/kstore/internal/store"
	"github.com/wsx864321/kstore/pkg/config"
	"github.com/wsx864321/kstore/pkg/log"
	"github.com/wsx864321/kstore/pkg/prome"
	"github.com/wsx864321/kstore/pkg/trace"
	"github.com/wsx864321/kstore/pkg/xjson"
)

// setup 加载配置并初始化日志
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("配置文件不存在: %s", configPath)
		}
	}
	if err := config.Load(configPath); err != nil {
		return err
	}

	log.InitLogger(
		log.WithDebug(config.GetLogDebug()),
		log.WithLogDir(config.GetLogDir()),
		log.WithHistoryLogFileName(config.GetLogFilename()),
		log.WithLevel(log.ParseLevel(config.GetLogLevel())),
	)
	return nil
}

// withStore 打开 Store 执行 fn，结束后关闭
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
	ctx := cmd.Context()
	s, err := store.Open(ctx, store.ConfigOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.Close()
		_ = log.Sync()
	}()
	return fn(ctx, s)
}

func parseValue(raw string, asJSON bool) (store.Value, error) {
	if !asJSON {
		return store.Text(raw), nil
	}
	var v any
	if err := xjson.Decode(raw, &v); err != nil {
		return store.Value{}, fmt.Errorf("invalid json value: %w", err)
	}
	return store.JSON(v), nil
}

func existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "判断 key 是否存在",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				ok, err := s.Exists(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Println(ok)
				return nil
			})
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "读取 key 的值",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				v, found, err := s.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					cmd.Println("(nil)")
					return nil
				}
				cmd.Println(v)
				return nil
			})
		},
	}
}

func setCmd() *cobra.Command {
	var (
		ttl    time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "写入 key，可选过期时间",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[1], asJSON)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				reply, err := s.Set(ctx, args[0], value, ttl)
				if err != nil {
					return err
				}
				cmd.Println(reply)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "过期时间，例如 60s，0 表示不过期")
	cmd.Flags().BoolVar(&asJSON, "json", false, "将 value 作为 JSON 解析后规范化存储")
	return cmd
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "删除 key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				n, err := s.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Println(n)
				return nil
			})
		},
	}
}

func rpushCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "rpush <key> <value>...",
		Short: "追加到列表尾部",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				n, err := s.RPush(ctx, args[0], ttl, store.Texts(args[1:]...)...)
				if err != nil {
					return err
				}
				cmd.Println(n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "列表过期时间，0 表示不过期")
	return cmd
}

func lrangeCmd() *cobra.Command {
	var start, stop int64
	cmd := &cobra.Command{
		Use:   "lrange <key>",
		Short: "读取列表区间",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				values, err := s.LRange(ctx, args[0], start, stop)
				if err != nil {
					return err
				}
				cmd.Println(strings.Join(values, "\n"))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&start, "start", store.DefaultRangeStart, "起始下标")
	cmd.Flags().Int64Var(&stop, "stop", store.DefaultRangeStop, "结束下标（包含），负数从尾部计数")
	return cmd
}

func lremCmd() *cobra.Command {
	var count int64
	cmd := &cobra.Command{
		Use:   "lrem <key> <value>",
		Short: "删除列表中等于 value 的元素",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				n, err := s.LRem(ctx, args[0], count, store.Text(args[1]))
				if err != nil {
					return err
				}
				cmd.Println(n)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&count, "count", store.DefaultRemoveCount, "最多删除个数，0 表示全部")
	return cmd
}

func expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire <key> <ttl>",
		Short: "设置过期时间",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := time.ParseDuration(args[1])
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				ok, err := s.Expire(ctx, args[0], ttl)
				if err != nil {
					return err
				}
				cmd.Println(ok)
				return nil
			})
		},
	}
}

func ttlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl <key>",
		Short: "查看剩余过期时间",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				d, err := s.TTL(ctx, args[0])
				if err != nil {
					return err
				}
				switch d {
				case store.KeyMissing:
					cmd.Println("(missing)")
				case store.NoExpiry:
					cmd.Println("(no expiry)")
				default:
					cmd.Println(d)
				}
				return nil
			})
		},
	}
}

// watchCmd 保持连接并输出生命周期日志，按配置开启指标与 trace，收到退出信号后关闭
func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "保持连接并记录生命周期事件",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if config.GetMetricsEnable() {
				prome.StartAgent(config.GetMetricsHost(), config.GetMetricsPort())
			}
			if config.GetTraceEnable() {
				trace.StartAgent(trace.Config{
					URL:         config.GetTraceCollectionUrl(),
					ServiceName: config.GetTraceServiceName(),
					Sampler:     config.GetTraceSampler(),
				})
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = prome.StopAgent(shutdownCtx)
				_ = trace.StopAgent(shutdownCtx)
			}()

			s := store.New(store.ConfigOptions()...)
			defer func() {
				_ = s.Close()
				_ = log.Sync()
			}()
			// 首次连接失败不退出，等待下一轮 ping
			_ = s.Connect(ctx)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					_ = s.Ping(ctx)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "ping 间隔")
	return cmd
}
