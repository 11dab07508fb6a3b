package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tbourn/go-complaints-backend/internal/auth"
	"github.com/tbourn/go-complaints-backend/internal/config"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/flatfile"
	httpapi "github.com/tbourn/go-complaints-backend/internal/http"
	"github.com/tbourn/go-complaints-backend/internal/observability"
	"github.com/tbourn/go-complaints-backend/internal/repo"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

// stores is one persistence backend's set of repositories.
type stores struct {
	users       services.UserRepo
	complaints  services.ComplaintRepo
	idempotency services.IdempotencyRepo
	close       func() error
}

// app is the wired object graph behind the router.
type app struct {
	Deps  httpapi.Deps
	close func() error
}

func (a *app) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// openStores selects the backend named by STORE_DRIVER. Relational backends
// are migrated on open.
// migrate is swapped in tests.
var migrate = repo.AutoMigrate

func openStores(cfg config.Config) (*stores, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.StoreDriver {
	case config.StoreFile:
		fs, err := flatfile.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:       fs.Users(),
			complaints:  fs.Complaints(),
			idempotency: fs.Idempotency(),
			close:       func() error { return nil },
		}, nil
	case config.StorePostgres:
		db, err = repo.OpenPostgres(cfg.DatabaseURL)
	case config.StoreSQLite:
		db, err = repo.OpenSQLite(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.StoreDriver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &stores{
		users:       repo.UserStore{DB: db},
		complaints:  repo.ComplaintStore{DB: db},
		idempotency: repo.IdempotencyStore{DB: db},
		close:       sqlDB.Close,
	}, nil
}

// buildApp wires stores, event subscribers and services from cfg.
func buildApp(cfg config.Config) (*app, error) {
	return buildAppWith(cfg, prometheus.DefaultRegisterer)
}

func buildAppWith(cfg config.Config, reg prometheus.Registerer) (*app, error) {
	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewInMemoryDispatcher(observability.LogHandlerError)
	em, err := observability.NewEventMetrics(reg)
	if err != nil {
		_ = st.close()
		return nil, err
	}
	em.Subscribe(bus)
	observability.LogEvents(bus)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := services.NewAuthService(st.users, tokens, cfg.Auth.BcryptCost, cfg.Auth.AdminSecret)

	cs := services.NewComplaintService(st.complaints, st.users)
	cs.Idempotency = st.idempotency
	cs.Events = bus
	cs.MaxConsecutiveReplies = cfg.Complaints.MaxConsecutiveReplies
	cs.IdempotencyTTL = cfg.IdempotencyTTL

	hp := services.NewHomepageService(st.complaints)
	hp.Recent = cfg.Complaints.HomepageRecent
	hp.TopRated = cfg.Complaints.HomepageTopRated
	hp.DefaultResponseTime = cfg.Complaints.DefaultResponseTime

	return &app{
		Deps: httpapi.Deps{
			Auth:        authSvc,
			Complaints:  cs,
			Homepage:    hp,
			Idempotency: st.idempotency,
		},
		close: st.close,
	}, nil
}
