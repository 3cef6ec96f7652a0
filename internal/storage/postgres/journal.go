package postgres

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/UkralStul/agora/internal/storage"
)

// Journal implements storage.Journal on PostgreSQL.
type Journal struct {
	db *gorm.DB
}

// New connects and migrates the journal table.
func New(dsn string) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.AutoMigrate(&storage.Entry{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Append(ctx context.Context, e storage.Entry) error {
	// Read-then-insert in one transaction; the primary key on seq rejects a
	// concurrent writer that raced past the check.
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var height uint64
		if err := tx.Model(&storage.Entry{}).Select("COALESCE(MAX(seq), 0)").Scan(&height).Error; err != nil {
			return err
		}
		if e.Seq != height+1 {
			return errors.Wrapf(storage.ErrOutOfOrder, "seq %d after height %d", e.Seq, height)
		}
		return tx.Create(&e).Error
	})
	if err != nil {
		return errors.Wrapf(err, "append journal entry %d", e.Seq)
	}
	return nil
}

func (j *Journal) Entries(ctx context.Context, args storage.PaginationArgs) ([]storage.Entry, error) {
	var entries []storage.Entry
	query := j.db.WithContext(ctx).
		Where("seq >= ?", args.From).
		Order("seq ASC")
	if args.Limit > 0 {
		query = query.Limit(args.Limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "load journal entries")
	}
	return entries, nil
}

func (j *Journal) Height(ctx context.Context) (uint64, error) {
	var height uint64
	err := j.db.WithContext(ctx).Model(&storage.Entry{}).Select("COALESCE(MAX(seq), 0)").Scan(&height).Error
	if err != nil {
		return 0, errors.Wrap(err, "read journal height")
	}
	return height, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
