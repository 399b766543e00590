package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/notify-relay/internal/domain"
	"gorm.io/gorm"
)

var (
	// ErrAcquire marks a failure to obtain a dedicated connection before any
	// transaction exists.
	ErrAcquire         = errors.New("failed to acquire backend session")
	ErrSessionReleased = errors.New("backend session already released")
)

// Backend is one independent downstream store with its own connection pool.
type Backend interface {
	System() domain.System
	Acquire(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Close() error
}

// Session is an exclusively owned connection. Release must be called exactly once.
type Session interface {
	Begin(ctx context.Context) (Tx, error)
	Release() error
}

// Tx is a transaction on a single backend session.
type Tx interface {
	InsertNotificationCheck(ctx context.Context, n *domain.NotificationCheck) error
	InsertAPILog(ctx context.Context, l *domain.APILog) error
	Commit() error
	Rollback() error
}

type GormBackend struct {
	system         domain.System
	db             *gorm.DB
	acquireTimeout time.Duration
}

var _ Backend = (*GormBackend)(nil)

func NewGormBackend(system domain.System, db *gorm.DB, acquireTimeout time.Duration) (*GormBackend, error) {
	if !system.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, string(system))
	}
	if db == nil {
		return nil, fmt.Errorf("%s: gorm db is required", system)
	}
	if acquireTimeout < 0 {
		acquireTimeout = 0
	}

	return &GormBackend{system: system, db: db, acquireTimeout: acquireTimeout}, nil
}

func (b *GormBackend) System() domain.System { return b.system }

// Acquire checks a dedicated connection out of the backend pool and binds a
// gorm session to it.
func (b *GormBackend) Acquire(ctx context.Context) (Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sqlDB, err := b.db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAcquire, b.system, err)
	}

	connCtx := ctx
	if b.acquireTimeout > 0 {
		var cancel context.CancelFunc
		connCtx, cancel = context.WithTimeout(ctx, b.acquireTimeout)
		defer cancel()
	}

	conn, err := sqlDB.Conn(connCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAcquire, b.system, err)
	}

	db := b.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	db.Statement.ConnPool = conn

	return &gormSession{db: db, conn: conn}, nil
}

func (b *GormBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (b *GormBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormSession struct {
	db   *gorm.DB
	conn *sql.Conn

	mu       sync.Mutex
	released bool
}

func (s *gormSession) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return nil, ErrSessionReleased
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &gormTx{db: tx}, nil
}

func (s *gormSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return ErrSessionReleased
	}
	s.released = true
	return s.conn.Close()
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) InsertNotificationCheck(ctx context.Context, n *domain.NotificationCheck) error {
	model := notificationCheckModelFromDomain(n)
	if model == nil {
		return fmt.Errorf("%w: notification check is required", domain.ErrValidation)
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	n.ID = model.ID
	return nil
}

func (t *gormTx) InsertAPILog(ctx context.Context, l *domain.APILog) error {
	model := apiLogModelFromDomain(l)
	if model == nil {
		return fmt.Errorf("%w: api log is required", domain.ErrValidation)
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*l = *apiLogModelToDomain(model)
	return nil
}

func (t *gormTx) Commit() error {
	return t.db.Commit().Error
}

func (t *gormTx) Rollback() error {
	return t.db.Rollback().Error
}
