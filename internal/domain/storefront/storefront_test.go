package storefront

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorefront(t *testing.T) {
	t.Run("valid storefront starts unpublished", func(t *testing.T) {
		tenantID := uuid.New()

		sf, err := NewStorefront(tenantID, "mama-nkechi-stores", "Mama Nkechi Stores")
		require.NoError(t, err)

		assert.Equal(t, tenantID, sf.TenantID)
		assert.Equal(t, "mama-nkechi-stores", sf.Slug)
		assert.Equal(t, "Mama Nkechi Stores", sf.DisplayName)
		assert.Equal(t, "NGN", sf.Currency)
		assert.False(t, sf.Published)
		assert.Nil(t, sf.PublishedAt)
	})

	t.Run("slug is normalized to lowercase", func(t *testing.T) {
		sf, err := NewStorefront(uuid.New(), "  Mama-Nkechi-Stores ", "Mama Nkechi Stores")
		require.NoError(t, err)
		assert.Equal(t, "mama-nkechi-stores", sf.Slug)
	})

	t.Run("invalid slugs rejected", func(t *testing.T) {
		for _, slug := range []string{"", "ab", "-leading", "trailing-", "has space", "has_underscore", "UPPER!"} {
			_, err := NewStorefront(uuid.New(), slug, "Shop")
			assert.Error(t, err, "slug %q should be rejected", slug)
		}
	})

	t.Run("empty display name rejected", func(t *testing.T) {
		_, err := NewStorefront(uuid.New(), "my-shop", "  ")
		assert.Error(t, err)
	})
}

func TestStorefrontPublish(t *testing.T) {
	t.Run("publish and unpublish toggle", func(t *testing.T) {
		sf, err := NewStorefront(uuid.New(), "my-shop", "My Shop")
		require.NoError(t, err)

		require.NoError(t, sf.Publish())
		assert.True(t, sf.Published)
		require.NotNil(t, sf.PublishedAt)

		assert.Error(t, sf.Publish())

		require.NoError(t, sf.Unpublish())
		assert.False(t, sf.Published)

		assert.Error(t, sf.Unpublish())
	})
}

func TestStorefrontSettings(t *testing.T) {
	t.Run("currency must be three letters", func(t *testing.T) {
		sf, err := NewStorefront(uuid.New(), "my-shop", "My Shop")
		require.NoError(t, err)

		require.NoError(t, sf.SetCurrency("usd"))
		assert.Equal(t, "USD", sf.Currency)

		assert.Error(t, sf.SetCurrency("naira"))
	})

	t.Run("theme round trips through driver value", func(t *testing.T) {
		theme := ThemeSettings{PrimaryColor: "#0f766e", LogoURL: "https://cdn.example.com/logo.png"}

		value, err := theme.Value()
		require.NoError(t, err)

		var restored ThemeSettings
		require.NoError(t, restored.Scan(value))
		assert.Equal(t, theme, restored)
	})

	t.Run("fulfillment location is optional", func(t *testing.T) {
		sf, err := NewStorefront(uuid.New(), "my-shop", "My Shop")
		require.NoError(t, err)
		assert.Nil(t, sf.LocationID)

		locationID := uuid.New()
		sf.SetFulfillmentLocation(&locationID)
		require.NotNil(t, sf.LocationID)
		assert.Equal(t, locationID, *sf.LocationID)
	})
}

func TestProductListing(t *testing.T) {
	t.Run("listing defaults to catalog price", func(t *testing.T) {
		listing, err := NewProductListing(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, err)

		assert.True(t, listing.Visible)
		assert.Nil(t, listing.PriceOverride)

		catalogPrice := decimal.NewFromInt(2500)
		assert.True(t, listing.EffectivePrice(catalogPrice).Equal(catalogPrice))
	})

	t.Run("price override wins over catalog price", func(t *testing.T) {
		listing, err := NewProductListing(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, err)

		require.NoError(t, listing.SetPriceOverride(decimal.NewFromInt(1999)))
		assert.True(t, listing.EffectivePrice(decimal.NewFromInt(2500)).Equal(decimal.NewFromInt(1999)))

		listing.ClearPriceOverride()
		assert.True(t, listing.EffectivePrice(decimal.NewFromInt(2500)).Equal(decimal.NewFromInt(2500)))
	})

	t.Run("negative override rejected", func(t *testing.T) {
		listing, err := NewProductListing(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.Error(t, listing.SetPriceOverride(decimal.NewFromInt(-1)))
	})

	t.Run("visibility and position", func(t *testing.T) {
		listing, err := NewProductListing(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, err)

		listing.Hide()
		assert.False(t, listing.Visible)
		listing.Show()
		assert.True(t, listing.Visible)

		require.NoError(t, listing.SetPosition(3))
		assert.Equal(t, 3, listing.Position)
		assert.Error(t, listing.SetPosition(-1))
	})
}
