package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/sentry"
	"github.com/rentpay/rentpay/internal/types"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// IClient is what services depend on: transactions and advisory locks.
type IClient interface {
	// WithTx runs fn inside a transaction carried by the context passed to fn.
	// Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockKey takes a transaction scoped advisory lock. Must run inside WithTx.
	LockKey(ctx context.Context, req types.LockRequest) error
}

type txKey struct{}

// Client wraps the gorm handle over the connection pool.
type Client struct {
	db     *gorm.DB
	logger *logger.Logger
	sentry *sentry.Service
	// loc is the zone DATE columns are read into
	loc *time.Location
}

// NewDB opens and pings the pool described by cfg.
func NewDB(cfg *config.Configuration, log *logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open database connection").
			Mark(ierr.ErrDatabase)
	}
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to database").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"dbname", cfg.Postgres.DBName,
	)
	return db, nil
}

// NewClient opens gorm on top of an existing pool.
func NewClient(db *sql.DB, cfg *config.Configuration, log *logger.Logger, sentryService *sentry.Service) (*Client, error) {
	loc, err := types.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		loc = time.UTC
	}

	level := gormlogger.Warn
	if cfg.Logging.Level == types.LogLevelDebug {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db}), &gorm.Config{
		Logger:                 log.GetGormLogger(level),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to initialise database client").
			Mark(ierr.ErrDatabase)
	}
	return &Client{db: gdb, logger: log, sentry: sentryService, loc: loc}, nil
}

// Location is the calendar zone used for DATE columns.
func (c *Client) Location() *time.Location {
	return c.loc
}

// TxFromContext returns the transaction bound to ctx, if any.
func (c *Client) TxFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// Querier returns the active transaction or the pool, bound to ctx.
func (c *Client) Querier(ctx context.Context) *gorm.DB {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return c.db.WithContext(ctx)
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if c.TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	span, spanCtx := c.sentry.StartMonitoringSpan(ctx, "postgres.transaction", nil)
	if span != nil {
		defer span.Finish()
		ctx = spanCtx
	}

	tx := c.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ierr.WithError(tx.Error).
			WithHint("Failed to start transaction").
			Mark(ierr.ErrDatabase)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && rbErr != sql.ErrTxDone {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err = tx.Commit().Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Exec runs a statement outside the repositories, e.g. for maintenance.
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.Querier(ctx).Exec(query, args...).Error
}

func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
