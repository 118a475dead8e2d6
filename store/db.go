// Package store implements component C4: CRUD for every entity in §3 plus the
// cross-entity operations (addApp, transferApp, removeApp, ...) that must run
// as a single transaction. It is modeled on the teacher's
// engine/api/database(+gorpmapping) plus the many per-aggregate dao.go files
// (engine/api/accesstoken/dao.go, engine/api/application/dao.go): gorp over a
// *sql.DB, one exported struct/function set per entity, errors normalized
// through apierrors.
//
// Unlike the teacher's database.DB() package-level singleton, the pool here is
// an explicit dependency (spec §9, "Ambient singletons ... become explicit
// dependencies") — callers construct one *Store and pass it down.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-gorp/gorp"
	_ "github.com/lib/pq"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/corelog"
	"github.com/yplabs-ltd/codepush-server/store/gorpmapping"
)

// Config is the Postgres connection descriptor.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

func (c Config) dsn() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslmode)
}

// Store bundles the connection pool every dao function in this package needs.
type Store struct {
	db *gorp.DbMap
}

// New opens a connection pool and builds the gorp mapping registered by this
// package's init() functions, mirroring the teacher's database.Init +
// database.DBMap pairing but returned as a value instead of stashed in package
// globals.
func New(ctx context.Context, cfg Config) (*Store, error) {
	sqlDB, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, apierrors.WrapError(err, "store: open postgres connection")
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, apierrors.NewError(apierrors.KindConnectionFailed, err)
	}

	dbmap := &gorp.DbMap{Db: sqlDB, Dialect: gorp.PostgresDialect{}}
	for _, m := range gorpmapping.Mapping {
		t := dbmap.AddTableWithName(m.Target, m.Name)
		if m.AutoIncrement {
			t.SetKeys(true, m.Keys...)
		} else {
			t.SetKeys(false, m.Keys...)
		}
	}
	corelog.Info(ctx, "store: connected to postgres database %s@%s:%s", cfg.Name, cfg.Host, cfg.Port)
	return &Store{db: dbmap}, nil
}

// DBMap exposes the underlying *gorp.DbMap for callers (migrations, health
// checks) that need it directly.
func (s *Store) DBMap() *gorp.DbMap { return s.db }

// Querier is the subset of *gorp.DbMap every dao function needs, so those
// functions can run against either the pool or an open transaction — exactly
// the role gorp.SqlExecutor plays throughout the teacher's dao.go files.
type Querier = gorp.SqlExecutor

// WithTransaction runs fn inside a single *sql.Tx, committing on success and
// rolling back on error or panic. Every multi-row mutation named in spec §4.4
// and §5 (commitPackage, promote, rollback, updatePackageHistory, removeApp,
// removeDeployment, addCollaborator, transferApp) must be wrapped in this.
func (s *Store) WithTransaction(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return apierrors.NewError(apierrors.KindConnectionFailed, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				corelog.Error(ctx, "store: rollback failed: %v", rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}

// Exec runs fn directly against the pool (no transaction), for read-only
// operations.
func (s *Store) Exec(fn func(q Querier) error) error {
	return fn(s.db)
}
