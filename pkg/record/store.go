package record

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
)

// bulkBatchSize is how many rows BulkSave inserts per statement.
const bulkBatchSize = 100

// immutableColumns are stripped from Update field maps. The database owns id
// and created_at, and a token never changes once assigned.
var immutableColumns = map[string]struct{}{
	"id":         {},
	"token":      {},
	"created_at": {},
}

// recordOf constrains the pointer type of a store's model to something that
// embeds BaseModel.
type recordOf[T any] interface {
	*T
	Record
}

// Store provides the CRUD surface for a single model type. The two type
// parameters are the model and its pointer: record.NewStore[User, *User](db).
type Store[T any, P recordOf[T]] struct {
	db      *gorm.DB
	auth    Authorizer
	metrics *storeMetrics
	model   string

	// newToken generates candidate tokens; swapped out in tests to force
	// collisions.
	newToken func() string
}

// StoreOption configures a Store at construction time.
type StoreOption func(*storeConfig)

type storeConfig struct {
	auth Authorizer
}

// WithAuthorizer gates every mutating operation of the store behind auth.
// Read operations are never gated.
func WithAuthorizer(auth Authorizer) StoreOption {
	return func(c *storeConfig) { c.auth = auth }
}

// NewStore creates a store for T backed by db.
func NewStore[T any, P recordOf[T]](db *gorm.DB, opts ...StoreOption) *Store[T, P] {
	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store[T, P]{
		db:       db,
		auth:     cfg.auth,
		metrics:  newStoreMetrics(),
		model:    reflect.TypeOf(*new(T)).Name(),
		newToken: NewToken,
	}
}

// GetByID fetches a record by primary key. Returns ErrNotFound when absent.
func (s *Store[T, P]) GetByID(ctx context.Context, id int64) (P, error) {
	start := time.Now()
	var rec T
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	s.metrics.observe(ctx, "get_by_id", s.model, start, err)
	if err != nil {
		var zero P
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s id=%d", ErrNotFound, s.model, id)
		}
		return zero, fmt.Errorf("get %s by id: %w", s.model, err)
	}
	return P(&rec), nil
}

// GetByToken fetches a record by its token. Returns ErrNotFound when absent.
func (s *Store[T, P]) GetByToken(ctx context.Context, token string) (P, error) {
	start := time.Now()
	var rec T
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&rec).Error
	s.metrics.observe(ctx, "get_by_token", s.model, start, err)
	if err != nil {
		var zero P
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, fmt.Errorf("%w: %s token=%s", ErrNotFound, s.model, token)
		}
		return zero, fmt.Errorf("get %s by token: %w", s.model, err)
	}
	return P(&rec), nil
}

// List returns records ordered by opts.Order (id ASC by default). A Limit of
// zero or less means unbounded.
func (s *Store[T, P]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	start := time.Now()

	q := s.db.WithContext(ctx).Model(new(T))
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	order := opts.Order
	if order == "" {
		order = "id ASC"
	}
	q = q.Order(order)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var recs []T
	err := q.Find(&recs).Error
	s.metrics.observe(ctx, "list", s.model, start, err)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.model, err)
	}
	return recs, nil
}

// Count returns the number of records, honoring opts.ActiveOnly only.
func (s *Store[T, P]) Count(ctx context.Context, opts ListOptions) (int64, error) {
	start := time.Now()

	q := s.db.WithContext(ctx).Model(new(T))
	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var n int64
	err := q.Count(&n).Error
	s.metrics.observe(ctx, "count", s.model, start, err)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.model, err)
	}
	return n, nil
}

// Query returns a *gorm.DB scoped to the model for queries the store methods
// don't cover. The caller owns everything from here on.
func (s *Store[T, P]) Query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(new(T))
}

// Save inserts the record, or updates it when the primary key is already set.
// A missing token is generated (and probed for collisions) first, and a
// PasswordBearer with a plaintext password gets it hashed in place.
func (s *Store[T, P]) Save(ctx context.Context, rec P, opts ...Option) error {
	cfg := buildConfig(opts)
	start := time.Now()
	err := s.save(ctx, s.db, rec, cfg)
	s.metrics.observe(ctx, "save", s.model, start, err)
	return err
}

func (s *Store[T, P]) save(ctx context.Context, db *gorm.DB, rec P, cfg opConfig) error {
	if err := s.authorize(ctx, cfg); err != nil {
		return err
	}
	if !cfg.skipToken {
		if err := s.ensureToken(ctx, db, rec); err != nil {
			return err
		}
	}
	if !cfg.skipPassword {
		if bearer, ok := any(rec).(PasswordBearer); ok {
			if err := hashBearer(bearer); err != nil {
				return fmt.Errorf("save %s: %w", s.model, err)
			}
		}
	}
	if err := db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("save %s: %w", s.model, err)
	}
	return nil
}

// BulkSave inserts all records in a single transaction, batched. Tokens and
// password hashing are applied per record, as in Save.
func (s *Store[T, P]) BulkSave(ctx context.Context, recs []P, opts ...Option) error {
	cfg := buildConfig(opts)
	start := time.Now()
	err := s.bulkSave(ctx, recs, cfg)
	s.metrics.observe(ctx, "bulk_save", s.model, start, err)
	return err
}

func (s *Store[T, P]) bulkSave(ctx context.Context, recs []P, cfg opConfig) error {
	if err := s.authorize(ctx, cfg); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if !cfg.skipToken {
				if err := s.ensureToken(ctx, tx, rec); err != nil {
					return err
				}
			}
			if !cfg.skipPassword {
				if bearer, ok := any(rec).(PasswordBearer); ok {
					if err := hashBearer(bearer); err != nil {
						return fmt.Errorf("bulk save %s: %w", s.model, err)
					}
				}
			}
		}
		if err := tx.CreateInBatches(recs, bulkBatchSize).Error; err != nil {
			return fmt.Errorf("bulk save %s: %w", s.model, err)
		}
		return nil
	})
}

// Update applies a partial field map to the record. Immutable columns (id,
// token, created_at) are silently dropped; updated_at is refreshed by GORM.
// The in-memory record is updated alongside the row.
func (s *Store[T, P]) Update(ctx context.Context, rec P, fields map[string]any, opts ...Option) error {
	cfg := buildConfig(opts)
	start := time.Now()
	err := s.update(ctx, rec, fields, cfg)
	s.metrics.observe(ctx, "update", s.model, start, err)
	return err
}

func (s *Store[T, P]) update(ctx context.Context, rec P, fields map[string]any, cfg opConfig) error {
	if err := s.authorize(ctx, cfg); err != nil {
		return err
	}
	if rec.RecordID() == 0 {
		return fmt.Errorf("%w: update %s without id", ErrNotFound, s.model)
	}

	clean := make(map[string]any, len(fields))
	for col, val := range fields {
		if _, immutable := immutableColumns[col]; immutable {
			continue
		}
		clean[col] = val
	}
	if len(clean) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(rec).Updates(clean).Error; err != nil {
		return fmt.Errorf("update %s: %w", s.model, err)
	}
	return nil
}

// Delete soft-deletes the record by clearing is_active. The row stays put.
func (s *Store[T, P]) Delete(ctx context.Context, rec P, opts ...Option) error {
	cfg := buildConfig(opts)
	start := time.Now()
	err := s.delete(ctx, rec, cfg)
	s.metrics.observe(ctx, "delete", s.model, start, err)
	return err
}

func (s *Store[T, P]) delete(ctx context.Context, rec P, cfg opConfig) error {
	if err := s.authorize(ctx, cfg); err != nil {
		return err
	}
	if rec.RecordID() == 0 {
		return fmt.Errorf("%w: delete %s without id", ErrNotFound, s.model)
	}
	if err := s.db.WithContext(ctx).Model(rec).Update("is_active", false).Error; err != nil {
		return fmt.Errorf("soft delete %s: %w", s.model, err)
	}
	rec.deactivate()
	return nil
}

// Purge removes the row permanently.
func (s *Store[T, P]) Purge(ctx context.Context, rec P, opts ...Option) error {
	cfg := buildConfig(opts)
	start := time.Now()
	err := s.purge(ctx, rec, cfg)
	s.metrics.observe(ctx, "purge", s.model, start, err)
	return err
}

func (s *Store[T, P]) purge(ctx context.Context, rec P, cfg opConfig) error {
	if err := s.authorize(ctx, cfg); err != nil {
		return err
	}
	if rec.RecordID() == 0 {
		return fmt.Errorf("%w: purge %s without id", ErrNotFound, s.model)
	}
	if err := s.db.WithContext(ctx).Delete(rec).Error; err != nil {
		return fmt.Errorf("purge %s: %w", s.model, err)
	}
	return nil
}

// CheckPassword reports whether plain matches the record's stored hash.
// Always false for models that are not PasswordBearers.
func (s *Store[T, P]) CheckPassword(rec P, plain string) bool {
	bearer, ok := any(rec).(PasswordBearer)
	if !ok {
		return false
	}
	return CheckPassword(bearer.Password(), plain)
}

func (s *Store[T, P]) authorize(ctx context.Context, cfg opConfig) error {
	if cfg.skipAuth || s.auth == nil {
		return nil
	}
	if err := s.auth.Authorize(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthorized, err)
	}
	return nil
}

// ensureToken fills an empty token and regenerates until it is unique. The
// probe excludes the record itself so re-saving keeps the existing token.
func (s *Store[T, P]) ensureToken(ctx context.Context, db *gorm.DB, rec P) error {
	if rec.RecordToken() == "" {
		rec.setToken(s.newToken())
	}
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		taken, err := s.tokenTaken(ctx, db, rec)
		if err != nil {
			return err
		}
		if !taken {
			return nil
		}
		rec.setToken(s.newToken())
	}
	return fmt.Errorf("%w: %s", ErrTokenCollision, s.model)
}

func (s *Store[T, P]) tokenTaken(ctx context.Context, db *gorm.DB, rec P) (bool, error) {
	var other T
	err := db.WithContext(ctx).
		Select("id").
		Where("token = ?", rec.RecordToken()).
		First(&other).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe %s token: %w", s.model, err)
	}
	return P(&other).RecordID() != rec.RecordID(), nil
}
