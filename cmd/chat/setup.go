package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"securebank-chat/internal/agentapi"
	"securebank-chat/internal/chat"
	"securebank-chat/internal/config"
	"securebank-chat/internal/sessionstore"
)

// app agrupa lo que necesitan los subcomandos.
type app struct {
	cfg      *config.ClientConfig
	logger   *zap.Logger
	sessions sessionstore.Store
	closers  []func() error
}

func newApp() (*app, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
	}

	logger := zap.NewNop()
	if cfg.Debug {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}

	a := &app{cfg: cfg, logger: logger}
	a.sessions, err = a.openSessionStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openSessionStore() (sessionstore.Store, error) {
	switch a.cfg.SessionStore {
	case config.SessionStoreMemory:
		return sessionstore.NewMemoryStore(), nil
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		store, err := sessionstore.NewRedisStore(client, a.cfg.InstallID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		path := a.cfg.SessionFile
		if path == "" {
			p, err := sessionstore.DefaultFilePath()
			if err != nil {
				return nil, fmt.Errorf("resolve session file: %w", err)
			}
			path = p
		}
		a.logger.Debug("using session file", zap.String("path", path))
		return sessionstore.NewFileStore(path), nil
	}
}

func (a *app) newClient(ctx context.Context, opts ...chat.Option) (*chat.Client, error) {
	transport := agentapi.NewHTTPClient(a.cfg.APIURL, &http.Client{}, a.logger)
	base := []chat.Option{
		chat.WithLogger(a.logger),
		chat.WithGreeting(a.cfg.Greeting),
		chat.WithReadTimeout(a.cfg.ReadTimeout),
	}
	return chat.New(ctx, transport, a.sessions, append(base, opts...)...)
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
	_ = a.logger.Sync()
}
