package prome

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wsx864321/kstore/pkg/log"
)

var (
	once   sync.Once
	server *http.Server
)

// Handler 返回暴露给定 gatherer 指标的 http handler，gatherer 为 nil 时使用默认注册表
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// StartAgent 开启prometheus，重复调用只生效一次
func StartAgent(host string, port int) {
	once.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler(nil))
		addr := fmt.Sprintf("%s:%d", host, port)
		server = &http.Server{Addr: addr, Handler: mux}

		go func() {
			log.Info(context.Background(), "Starting prometheus agent", log.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(context.Background(), "prometheus agent listen failed", log.String("error", err.Error()))
			}
		}()
	})
}

// StopAgent 关闭prometheus
func StopAgent(ctx context.Context) error {
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
