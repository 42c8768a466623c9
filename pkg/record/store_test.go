package record

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thebtf/recordkit/pkg/recorddb"
)

// Widget is a plain test model.
type Widget struct {
	BaseModel
	Name string `gorm:"size:80;not null"`
	Qty  int    `gorm:"default:0"`
}

// Account is a test model carrying a password column.
type Account struct {
	BaseModel
	Email  string `gorm:"size:120;uniqueIndex;not null"`
	Secret string `gorm:"size:100;column:password"`
}

func (a *Account) Password() string     { return a.Secret }
func (a *Account) SetPassword(v string) { a.Secret = v }

// testDB creates a temporary SQLite database with the given models migrated.
func testDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	db, err := recorddb.Open(recorddb.Config{
		Driver:   recorddb.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, recorddb.Migrate(db.Gorm(), models))
	return db.Gorm()
}

func testWidgetStore(t *testing.T, opts ...StoreOption) *Store[Widget, *Widget] {
	t.Helper()
	return NewStore[Widget, *Widget](testDB(t, &Widget{}), opts...)
}

func TestStore_SaveCreate(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil", Qty: 3}
	require.NoError(t, store.Save(ctx, w))

	assert.Greater(t, w.ID, int64(0))
	assert.Len(t, w.Token, TokenLength)
	assert.False(t, w.CreatedAt.IsZero())
	assert.False(t, w.UpdatedAt.IsZero())

	got, err := store.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "anvil", got.Name)
	assert.Equal(t, 3, got.Qty)
	assert.True(t, got.IsActive)
	assert.Equal(t, w.Token, got.Token)
}

func TestStore_SaveUpdateKeepsToken(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, w))
	token := w.Token

	w.Name = "hammer"
	require.NoError(t, store.Save(ctx, w))

	got, err := store.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "hammer", got.Name)
	assert.Equal(t, token, got.Token)
}

func TestStore_SaveWithoutToken(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	w.Token = "caller-supplied-token"
	require.NoError(t, store.Save(ctx, w, WithoutToken()))

	got, err := store.GetByToken(ctx, "caller-supplied-token")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestStore_SaveRegeneratesCollidingToken(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	first := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, first))

	// A record arriving with an already-persisted token gets a fresh one.
	second := &Widget{Name: "hammer"}
	second.Token = first.Token
	require.NoError(t, store.Save(ctx, second))

	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, second.Token, TokenLength)

	got, err := store.GetByToken(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestStore_SaveTokenCollisionExhausted(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	first := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, first))

	// A generator that can only ever reproduce the taken token.
	store.newToken = func() string { return first.Token }

	err := store.Save(ctx, &Widget{Name: "hammer"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenCollision)

	n, err := store.Count(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_GetByID_NotFound(t *testing.T) {
	store := testWidgetStore(t)

	_, err := store.GetByID(context.Background(), 99999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestStore_GetByToken(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, w))

	got, err := store.GetByToken(ctx, w.Token)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	_, err = store.GetByToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Save(ctx, &Widget{Name: name}))
	}

	// Unbounded
	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "a", all[0].Name)

	// Limit and offset
	page, err := store.List(ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Name)
	assert.Equal(t, "c", page[1].Name)

	// Custom order
	desc, err := store.List(ctx, ListOptions{Limit: 1, Order: "id DESC"})
	require.NoError(t, err)
	require.Len(t, desc, 1)
	assert.Equal(t, "d", desc[0].Name)
}

func TestStore_ListActiveOnly(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	keep := &Widget{Name: "keep"}
	drop := &Widget{Name: "drop"}
	require.NoError(t, store.Save(ctx, keep))
	require.NoError(t, store.Save(ctx, drop))
	require.NoError(t, store.Delete(ctx, drop))

	active, err := store.List(ctx, ListOptions{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "keep", active[0].Name)

	n, err := store.Count(ctx, ListOptions{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Count(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_Update(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil", Qty: 1}
	require.NoError(t, store.Save(ctx, w))
	id, token := w.ID, w.Token

	err := store.Update(ctx, w, map[string]any{
		"name":  "hammer",
		"qty":   7,
		"id":    int64(42),
		"token": "forged",
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hammer", got.Name)
	assert.Equal(t, 7, got.Qty)
	assert.Equal(t, token, got.Token, "token must be immutable")
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestStore_UpdateUnsaved(t *testing.T) {
	store := testWidgetStore(t)

	err := store.Update(context.Background(), &Widget{}, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateOnlyImmutableFields(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, w))

	// Everything stripped: a no-op, not an error.
	require.NoError(t, store.Update(ctx, w, map[string]any{"id": 9, "token": "x"}))

	got, err := store.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "anvil", got.Name)
}

func TestStore_SoftDelete(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, w))
	require.NoError(t, store.Delete(ctx, w))
	assert.False(t, w.IsActive)

	// The row stays addressable.
	got, err := store.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestStore_Purge(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, w))
	require.NoError(t, store.Purge(ctx, w))

	_, err := store.GetByID(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_BulkSave(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	recs := []*Widget{
		{Name: "a"},
		{Name: "b"},
		{Name: "c"},
	}
	require.NoError(t, store.BulkSave(ctx, recs))

	tokens := map[string]struct{}{}
	for _, w := range recs {
		assert.Greater(t, w.ID, int64(0))
		assert.Len(t, w.Token, TokenLength)
		tokens[w.Token] = struct{}{}
	}
	assert.Len(t, tokens, 3, "tokens must be unique")

	n, err := store.Count(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_BulkSaveAtomic(t *testing.T) {
	db := testDB(t, &Account{})
	store := NewStore[Account, *Account](db)
	ctx := context.Background()

	recs := []*Account{
		{Email: "a@example.com", Secret: "pw"},
		{Email: "a@example.com", Secret: "pw"}, // duplicate email
	}
	err := store.BulkSave(ctx, recs)
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))

	// The transaction rolled back: no partial insert.
	n, err := store.Count(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStore_BulkSaveEmpty(t *testing.T) {
	store := testWidgetStore(t)
	require.NoError(t, store.BulkSave(context.Background(), nil))
}

func TestStore_Authorizer(t *testing.T) {
	denied := errors.New("caller unknown")
	store := testWidgetStore(t, WithAuthorizer(AuthorizerFunc(func(ctx context.Context) error {
		return denied
	})))
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	err := store.Save(ctx, w)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// SkipAuth bypasses the gate.
	require.NoError(t, store.Save(ctx, w, SkipAuth()))

	// Reads are never gated.
	_, err = store.GetByID(ctx, w.ID)
	require.NoError(t, err)

	// All mutating operations are gated.
	assert.ErrorIs(t, store.Update(ctx, w, map[string]any{"name": "x"}), ErrNotAuthorized)
	assert.ErrorIs(t, store.Delete(ctx, w), ErrNotAuthorized)
	assert.ErrorIs(t, store.Purge(ctx, w), ErrNotAuthorized)
	assert.ErrorIs(t, store.BulkSave(ctx, []*Widget{{Name: "y"}}), ErrNotAuthorized)
}

func TestStore_SaveHashesPassword(t *testing.T) {
	db := testDB(t, &Account{})
	store := NewStore[Account, *Account](db)
	ctx := context.Background()

	acc := &Account{Email: "a@example.com", Secret: "hunter2"}
	require.NoError(t, store.Save(ctx, acc))

	assert.NotEqual(t, "hunter2", acc.Secret)
	assert.True(t, looksHashed(acc.Secret))
	assert.True(t, store.CheckPassword(acc, "hunter2"))
	assert.False(t, store.CheckPassword(acc, "wrong"))

	// A second save must not re-hash the stored hash.
	hash := acc.Secret
	require.NoError(t, store.Save(ctx, acc))
	assert.Equal(t, hash, acc.Secret)
}

func TestStore_SaveWithoutPasswordHash(t *testing.T) {
	db := testDB(t, &Account{})
	store := NewStore[Account, *Account](db)
	ctx := context.Background()

	acc := &Account{Email: "a@example.com", Secret: "pre-hashed-elsewhere"}
	require.NoError(t, store.Save(ctx, acc, WithoutPasswordHash()))
	assert.Equal(t, "pre-hashed-elsewhere", acc.Secret)
}

func TestStore_CheckPasswordNonBearer(t *testing.T) {
	store := testWidgetStore(t)
	assert.False(t, store.CheckPassword(&Widget{}, "anything"))
}

func TestStore_Query(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Widget{Name: "anvil", Qty: 5}))
	require.NoError(t, store.Save(ctx, &Widget{Name: "hammer", Qty: 1}))

	var heavy []Widget
	err := store.Query(ctx).Where("qty > ?", 2).Find(&heavy).Error
	require.NoError(t, err)
	require.Len(t, heavy, 1)
	assert.Equal(t, "anvil", heavy[0].Name)
}
