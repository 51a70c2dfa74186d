package marketplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/powerlister/internal/model"
)

func TestDefaultRegistryCatalog(t *testing.T) {
	reg := DefaultRegistry(Options{})

	all := reg.All()
	ids := make([]string, 0, len(all))
	for _, d := range all {
		ids = append(ids, d.ID)
		assert.NotNil(t, d.Lister, d.ID)
	}
	assert.Equal(t, []string{EBay, Facebook, Mercari, Poshmark, Depop}, ids)

	for _, id := range []string{EBay, Facebook} {
		d, ok := reg.FindByID(id)
		require.True(t, ok)
		assert.True(t, d.HasAPI, id)
		assert.True(t, d.SetupRequired, id)
	}
	for _, id := range []string{Mercari, Poshmark, Depop} {
		d, ok := reg.FindByID(id)
		require.True(t, ok)
		assert.False(t, d.HasAPI, id)
		assert.False(t, d.SetupRequired, id)
	}
}

func TestFindByIDUnknown(t *testing.T) {
	_, ok := DefaultRegistry(Options{}).FindByID("etsy")
	assert.False(t, ok)
}

func TestAllReturnsCopy(t *testing.T) {
	reg := DefaultRegistry(Options{})
	all := reg.All()
	all[0].Name = "changed"

	d, _ := reg.FindByID(EBay)
	assert.Equal(t, "eBay", d.Name)
}

func TestNewRegistryIgnoresDuplicates(t *testing.T) {
	reg := NewRegistry(
		Definition{ID: "a", Name: "first"},
		Definition{ID: "a", Name: "second"},
	)
	require.Len(t, reg.All(), 1)
	d, _ := reg.FindByID("a")
	assert.Equal(t, "first", d.Name)
}

func TestUnavailableMarketplaces(t *testing.T) {
	reg := DefaultRegistry(Options{})
	d, _ := reg.FindByID(Mercari)
	ctx := context.Background()

	post, err := d.Lister.PostItem(ctx, model.Item{Title: "x"})
	require.NoError(t, err)
	assert.False(t, post.Success)
	assert.Equal(t, MsgAPINotAvailable, post.Error)
	assert.Empty(t, post.ListingID)

	res, err := d.Lister.UnlistItem(ctx, model.Item{})
	require.NoError(t, err)
	assert.Equal(t, Result{Error: MsgAPINotAvailable}, res)

	res, _ = d.Lister.UpdateItem(ctx, "id", nil)
	assert.False(t, res.Success)
	res, _ = d.Lister.RemoveItem(ctx, "id")
	assert.False(t, res.Success)
}

func TestScaled(t *testing.T) {
	assert.Equal(t, int64(0), int64(scaled(1500, 0)))
	assert.Equal(t, int64(750), int64(scaled(1500, 0.5)))
}
