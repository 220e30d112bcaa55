package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/pvpforecast/internal/api"
	"github.com/wonny/pvpforecast/internal/api/handlers"
	"github.com/wonny/pvpforecast/internal/features"
	"github.com/wonny/pvpforecast/internal/forecast"
	"github.com/wonny/pvpforecast/internal/inference"
	"github.com/wonny/pvpforecast/internal/ledger"
	"github.com/wonny/pvpforecast/internal/metrics"
	"github.com/wonny/pvpforecast/pkg/config"
	"github.com/wonny/pvpforecast/pkg/database"
	"github.com/wonny/pvpforecast/pkg/logger"
	"github.com/wonny/pvpforecast/pkg/redis"
	"github.com/wonny/pvpforecast/pkg/tracing"
)

// deps 명령어 공통 의존성 그래프
type deps struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	ledger  ledger.Ledger
	service *forecast.Service
	health  handlers.HealthChecker
	redis   *redis.Client

	pipelines []handlers.PipelineInfo

	closers []func()
}

// buildDeps wires storage, pipelines and the forecast service.
// withService=false stops after storage (migrate, test-db).
func buildDeps(ctx context.Context, cfg *config.Config, withService bool) (*deps, error) {
	log := logger.New(cfg)
	d := &deps{cfg: cfg, log: log}

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTelEndpoint, "pvpforecast")
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	d.closers = append(d.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	})

	if cfg.MetricsEnabled {
		d.metrics = metrics.New()
	}

	// 1. Storage
	var store features.Store
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.New(cfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		d.health = db

		l, err := ledger.NewPostgresLedger(db.Pool, cfg.ActualsPolicy, log.Component("ledger"))
		if err != nil {
			d.Close()
			return nil, err
		}
		d.ledger = l

		if withService {
			if store, err = features.NewPostgresStore(db.Pool, cfg.Database.FeaturesTable); err != nil {
				d.Close()
				return nil, err
			}
		}

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		d.closers = append(d.closers, func() { _ = db.Close() })
		d.health = db

		l, err := ledger.NewSQLiteLedger(db.DB, cfg.ActualsPolicy, log.Component("ledger"))
		if err != nil {
			d.Close()
			return nil, err
		}
		d.ledger = l

		if withService {
			if store, err = features.NewSQLiteStore(db.DB, cfg.Database.FeaturesTable); err != nil {
				d.Close()
				return nil, err
			}
		}

	default:
		d.Close()
		return nil, fmt.Errorf("unsupported driver %q", cfg.Database.Driver)
	}

	log.WithField("driver", cfg.Database.Driver).Info("Connected to storage")

	if !withService {
		return d, nil
	}

	// 2. Redis (선택): feature 캐시와 분산 레이트 리밋
	rc, err := redis.New(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.redis = rc
	d.closers = append(d.closers, func() { _ = rc.Close() })
	if rc.Enabled() {
		store = features.NewCachedStore(store, redis.NewCache(rc), cfg.Database.FeaturesTable,
			cfg.Redis.FeatureCacheTTL, log.Component("feature_cache"))
		log.Info("Feature cache enabled")
	}

	// 3. Manifests + pipelines
	manifestA, err := features.LoadManifest(cfg.Pipelines.ManifestA)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pipeline A: %w", err)
	}
	manifestB, err := features.LoadManifest(cfg.Pipelines.ManifestB)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pipeline B: %w", err)
	}

	pipeA, err := inference.NewPipeline(manifestA, log)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pipeline A: %w", err)
	}
	pipeB, err := inference.NewPipeline(manifestB, log)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pipeline B: %w", err)
	}

	for _, m := range []*features.Manifest{manifestA, manifestB} {
		hash, err := m.Hash()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.pipelines = append(d.pipelines, handlers.PipelineInfo{
			Name:    m.Name,
			Kind:    m.Model.Kind,
			Columns: len(m.Columns),
			Hash:    hash,
		})
		log.WithFields(map[string]interface{}{
			"pipeline": m.Name,
			"kind":     m.Model.Kind,
			"columns":  len(m.Columns),
			"hash":     hash,
		}).Info("Pipeline loaded")
	}

	// 4. Engine + service
	var engineOpts []inference.EngineOption
	if d.metrics != nil {
		engineOpts = append(engineOpts, inference.WithObserver(d.metrics))
	}
	engine := inference.NewEngine(pipeA, pipeB, log.Component("inference"), engineOpts...)
	resolver := features.NewResolver(store, manifestA, manifestB, log.Component("features"))
	d.service = forecast.NewService(resolver, engine, d.ledger, log.Component("forecast"))

	return d, nil
}

// limiter Redis 사용 시 인스턴스 공유 윈도우, 아니면 프로세스 내 토큰 버킷
func (d *deps) limiter() api.Limiter {
	if d.cfg.RateLimit.RPS == 0 {
		return nil
	}
	if d.redis != nil && d.redis.Enabled() {
		return api.NewRedisLimiter(redis.NewRateLimiter(d.redis), d.cfg.RateLimit.RPS)
	}
	return api.NewLocalLimiter(d.cfg.RateLimit.RPS, d.cfg.RateLimit.Burst)
}

// healthTables ledger와 feature 테이블 (health 조회 대상)
func (d *deps) healthTables() []string {
	return []string{ledger.Table, d.cfg.Database.FeaturesTable}
}

// Close releases resources in reverse order
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
