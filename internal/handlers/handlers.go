package handlers

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skyarcade/score-ledger/internal/ledger"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// ExportQueue exposes the analytics pool's depth for readiness reporting.
type ExportQueue interface {
	QueueDepth() int
}

type Config struct {
	Ledger      *ledger.Ledger
	ExportQueue ExportQueue
	Postgres    *pgxpool.Pool
	ClickHouse  driver.Conn
	Redis       *redis.Client
	Logger      *zap.Logger
	DefaultTopN int
}

type Handler struct {
	ledger      *ledger.Ledger
	pool        ExportQueue
	pg          *pgxpool.Pool
	ch          driver.Conn
	redis       *redis.Client
	logger      *zap.SugaredLogger
	validate    *validator.Validate
	defaultTopN int
}

func New(cfg Config) *Handler {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = 25
	}
	return &Handler{
		ledger:      cfg.Ledger,
		pool:        cfg.ExportQueue,
		pg:          cfg.Postgres,
		ch:          cfg.ClickHouse,
		redis:       cfg.Redis,
		logger:      cfg.Logger.Sugar(),
		validate:    validator.New(),
		defaultTopN: cfg.DefaultTopN,
	}
}
