package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	want := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123, loc), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.Equal(t, want.ID, got.ID)
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, token := range []string{
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`{"t":"2026-03-01T10:00:00Z"}`)),
	} {
		_, err = ParseCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestTrimBuildsNextCursor(t *testing.T) {
	rows := []int{1, 2, 3}
	id := uuid.New()
	page := Trim(rows, 2, func(v int) Cursor { return Cursor{ID: id, CreatedAt: time.Unix(int64(v), 0)} })
	assert.Equal(t, []int{1, 2}, page.Items)

	next, err := ParseCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.CreatedAt.Unix())

	page = Trim(rows, 10, func(int) Cursor { return Cursor{} })
	assert.Len(t, page.Items, 3)
	assert.Empty(t, page.NextCursor)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, MaxLimit, NormalizeLimit(500))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}
