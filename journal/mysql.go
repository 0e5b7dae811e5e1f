package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type anchorRecord struct {
	ID        uint      `gorm:"primaryKey"`
	TxHash    string    `gorm:"size:66;uniqueIndex"`
	Token     string    `gorm:"size:66"`
	Signer    string    `gorm:"size:42"`
	CreatedAt time.Time `gorm:"index"`
}

func (anchorRecord) TableName() string {
	return "proofqr_anchors"
}

// MySQL stores entries in a shared MySQL database through gorm.
type MySQL struct {
	db *gorm.DB
}

func OpenMySQL(dsn string) (*MySQL, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect journal database: %w", err)
	}
	return NewMySQL(db)
}

// NewMySQL wraps an open gorm connection and migrates the journal table.
func NewMySQL(db *gorm.DB) (*MySQL, error) {
	if err := db.AutoMigrate(&anchorRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal table: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Record(ctx context.Context, entry Entry) error {
	record := newAnchorRecord(entry)
	return m.db.WithContext(ctx).Create(&record).Error
}

func newAnchorRecord(entry Entry) anchorRecord {
	return anchorRecord{
		TxHash:    strings.ToLower(entry.TxHash),
		Token:     entry.Token,
		Signer:    entry.Signer,
		CreatedAt: entry.CreatedAt,
	}
}

func (m *MySQL) getQuery(ctx context.Context, txHash string) *gorm.DB {
	return m.db.WithContext(ctx).Where("tx_hash = ?", strings.ToLower(txHash))
}

// listQuery orders newest first; a non-positive limit returns everything.
func (m *MySQL) listQuery(ctx context.Context, limit int) *gorm.DB {
	query := m.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}

func (m *MySQL) Get(ctx context.Context, txHash string) (*Entry, error) {
	var record anchorRecord
	err := m.getQuery(ctx, txHash).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txHash)
	}
	if err != nil {
		return nil, err
	}
	entry := record.entry()
	return &entry, nil
}

func (m *MySQL) List(ctx context.Context, limit int) ([]Entry, error) {
	var records []anchorRecord
	if err := m.listQuery(ctx, limit).Find(&records).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = r.entry()
	}
	return entries, nil
}

func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r anchorRecord) entry() Entry {
	return Entry{
		TxHash:    r.TxHash,
		Token:     r.Token,
		Signer:    r.Signer,
		CreatedAt: r.CreatedAt,
	}
}
