package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	sessionsrender "github.com/bnema/lfg-coordinator/internal/adapters/render/sessions"
	redisrepo "github.com/bnema/lfg-coordinator/internal/adapters/repo/redis"
	sqliterepo "github.com/bnema/lfg-coordinator/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/lfg-coordinator/internal/adapters/repo/toml"
	"github.com/bnema/lfg-coordinator/internal/adapters/resources/bridge"
	"github.com/bnema/lfg-coordinator/internal/adapters/resources/memory"
	"github.com/bnema/lfg-coordinator/internal/application"
	"github.com/bnema/lfg-coordinator/internal/config"
	"github.com/bnema/lfg-coordinator/internal/domain"
	"github.com/bnema/lfg-coordinator/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	viper         *viper.Viper
	cfg           config.Config
	logger        *slog.Logger
	stateRenderer func(domain.State, sessionsrender.RenderOptions) (string, error)
	now           func() time.Time
}

// store is a StateRepository that may hold a connection.
type store struct {
	ports.StateRepository
	close func() error
}

func (s store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func wireApp(logOutput io.Writer) (*app, error) {
	v, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Log, logOutput)
	if err != nil {
		return nil, err
	}

	return &app{
		viper:         v,
		cfg:           cfg,
		logger:        logger,
		stateRenderer: sessionsrender.Render,
		now:           time.Now,
	}, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (a *app) openStore(ctx context.Context) (store, error) {
	switch a.cfg.Store.Driver {
	case config.StoreSQLite:
		repo, err := sqliterepo.NewRepository(a.cfg.Store.SQLiteDSN)
		if err != nil {
			return store{}, fmt.Errorf("wire sqlite state repository: %w", err)
		}
		return store{StateRepository: repo, close: repo.Close}, nil
	case config.StoreRedis:
		repo, err := redisrepo.NewRepository(ctx, a.cfg.Store.RedisURL, a.cfg.Store.RedisKey)
		if err != nil {
			return store{}, fmt.Errorf("wire redis state repository: %w", err)
		}
		return store{StateRepository: repo, close: repo.Close}, nil
	default:
		repo, err := tomlrepo.NewRepository(a.viper)
		if err != nil {
			return store{}, fmt.Errorf("wire toml state repository: %w", err)
		}
		return store{StateRepository: repo}, nil
	}
}

func (a *app) newGateway() (ports.ResourceGateway, ports.OccupancyProbe, error) {
	if a.cfg.Gateway.Driver == config.GatewayBridge {
		client, err := bridge.NewClient(a.cfg.Gateway.BridgeURL, &http.Client{Timeout: a.cfg.Gateway.Timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("wire bridge gateway: %w", err)
		}
		return client, client, nil
	}

	a.logger.Warn("using in-memory resource gateway, no platform resources will be created")
	gateway := memory.NewGateway()
	return gateway, gateway, nil
}

func (a *app) newService(repo ports.StateRepository, resources ports.ResourceGateway, occupancy ports.OccupancyProbe) *application.Service {
	limits := a.cfg.Limits
	return application.NewService(application.Config{
		Registry: application.RegistryConfig{
			SessionLifetime: limits.SessionLifetime,
			SessionTTL:      limits.SessionTTL,
			CommunityTTL:    limits.CommunityTTL,
		},
		IdleGrace:         limits.IdleGrace,
		SweepInterval:     limits.SweepInterval,
		RateWindow:        limits.RateWindow,
		RateQuota:         limits.RateQuota,
		FanoutParallelism: limits.FanoutParallelism,
	}, repo, resources, occupancy, ports.SystemClock{}, a.logger)
}
