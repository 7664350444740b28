package db

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

// Store is the only path from the services to the database. Every failure,
// whether building the statement or running it, comes back as a
// *models.DatabaseError carrying the statement text. Nothing is retried.
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewStore(db *gorm.DB, l *zap.SugaredLogger) *Store {
	return &Store{
		db:     db,
		logger: l,
	}
}

// DB exposes the underlying connection for components that work with gorm
// models directly, such as the cache.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Query scans all rows into dest, which must point to a slice.
func (s *Store) Query(ctx context.Context, dest interface{}, q squirrel.Sqlizer) error {
	sql, args, err := s.build(q)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(dest)
	if res.Error != nil {
		return s.fail(sql, res.Error)
	}
	return nil
}

// QueryFirst scans the first row into dest and reports whether there was one.
func (s *Store) QueryFirst(ctx context.Context, dest interface{}, q squirrel.Sqlizer) (bool, error) {
	if sb, ok := q.(squirrel.SelectBuilder); ok {
		q = sb.Limit(1)
	}
	sql, args, err := s.build(q)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(dest)
	if res.Error != nil {
		return false, s.fail(sql, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Execute runs a mutation and returns the number of affected rows.
func (s *Store) Execute(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := s.build(q)
	if err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return 0, s.fail(sql, res.Error)
	}
	return res.RowsAffected, nil
}

// Batch runs all statements in one transaction. Either every statement
// commits or none does.
func (s *Store) Batch(ctx context.Context, statements []squirrel.Sqlizer) ([]int64, error) {
	affected := make([]int64, 0, len(statements))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, q := range statements {
			sql, args, err := s.build(q)
			if err != nil {
				return err
			}
			res := tx.Exec(sql, args...)
			if res.Error != nil {
				return s.fail(sql, res.Error)
			}
			affected = append(affected, res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		var dbErr *models.DatabaseError
		if errors.As(err, &dbErr) {
			return nil, dbErr
		}
		return nil, s.fail("batch", err)
	}
	return affected, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.fail("", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return s.fail("", err)
	}
	return nil
}

func (s *Store) build(q squirrel.Sqlizer) (string, []interface{}, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return sql, nil, s.fail(sql, errors.Wrap(err, "build sql"))
	}
	return sql, args, nil
}

func (s *Store) fail(sql string, err error) error {
	s.logger.Debugw("store statement failed", "sql", sql, "error", err)
	return models.NewDatabaseError(sql, err)
}
