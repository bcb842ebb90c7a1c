// Command gqlcache runs the caching GraphQL reverse proxy.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cacheql/gqlcache/auth"
	"github.com/cacheql/gqlcache/cachehandler"
	"github.com/cacheql/gqlcache/config"
	"github.com/cacheql/gqlcache/logger"
	"github.com/cacheql/gqlcache/server"
	"github.com/cacheql/gqlcache/ttlcache"
	"github.com/cacheql/gqlcache/upstream"
)

func main() {
	cfg, err := config.Load(config.PathFromArgs(os.Args))
	if err != nil {
		logger.New().Error("configuration error", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cache ttlcache.Cache
	if cfg.RedisConnectionString != "" {
		redisCache, err := ttlcache.NewRedisCache(ctx, cfg.RedisConnectionString, log)
		if err != nil {
			log.Error("cache backend error", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		memoryCache := ttlcache.NewMemoryCache(log, ttlcache.WithSweepInterval(cfg.CacheSweepInterval))
		defer memoryCache.Close()
		cache = memoryCache
	}

	var authenticator auth.Authenticator = auth.Simple{}
	if cfg.OIDCConfigurationEndpoint != "" {
		jwtAuth, err := auth.NewJWT(ctx, cfg.OIDCConfigurationEndpoint, &http.Client{Timeout: 10 * time.Second}, log)
		if err != nil {
			log.Error("authorization setup error", "error", err)
			os.Exit(1)
		}
		authenticator = jwtAuth
	}

	handler := &cachehandler.Handler{Cache: cache, Log: log}
	upstreamClient := upstream.New(cfg.UpstreamURL, log)

	srv := server.New(cfg, handler, authenticator, upstreamClient, log)
	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("stopped")
	os.Exit(0)
}
