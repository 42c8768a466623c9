package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseModel_ImplementsRecord(t *testing.T) {
	var _ Record = (*Widget)(nil)
	var _ Record = (*Account)(nil)

	w := &Widget{}
	assert.Equal(t, int64(0), w.RecordID())
	assert.Empty(t, w.RecordToken())

	w.setToken("abc")
	assert.Equal(t, "abc", w.RecordToken())

	w.IsActive = true
	w.deactivate()
	assert.False(t, w.IsActive)
}

func TestBaseModel_BeforeCreateFillsToken(t *testing.T) {
	db := testDB(t, &Widget{})

	// Created directly through GORM, bypassing the store: the hook still
	// assigns a token so the not-null constraint holds.
	w := &Widget{Name: "anvil"}
	require.NoError(t, db.Create(w).Error)
	assert.Len(t, w.Token, TokenLength)
	assert.True(t, w.IsActive)

	var got Widget
	require.NoError(t, db.First(&got, "id = ?", w.ID).Error)
	assert.Equal(t, w.Token, got.Token)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
	assert.True(t, got.IsActive)
}

func TestBaseModel_CreatedAtBeforeUpdatedAt(t *testing.T) {
	store := testWidgetStore(t)
	ctx := context.Background()

	w := &Widget{Name: "anvil"}
	require.NoError(t, store.Save(ctx, w))
	require.NoError(t, store.Update(ctx, w, map[string]any{"name": "hammer"}))

	got, err := store.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}
