package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
)

func TestFindByIDsPreloadsVariants(t *testing.T) {
	f := dbtest.NewFixture(t)
	repo := NewRepository(f.DB)

	found, err := repo.FindByIDs(context.Background(), []uuid.UUID{f.Product.ID, f.Parent.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 2)

	parent := found[f.Parent.ID]
	require.Len(t, parent.Variants, 1)
	assert.Equal(t, f.Variant.ID, parent.Variants[0].ID)
	assert.Empty(t, found[f.Product.ID].Variants)
}

func TestFindByIDsEmpty(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	found, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
