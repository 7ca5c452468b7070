package service_test

import (
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestCachedCatalog_ReadThrough() {
	item := s.seedItem("Physics Form 3", "640.00", "0", true, true)

	first, err := s.CachedCatalog.FindBySKU(s.Ctx, item.SKU)
	s.Require().NoError(err)
	s.Require().True(decimal.RequireFromString("640").Equal(first.Price))

	// a direct row change is invisible while the cached entry lives
	_, err = s.DbPool.Exec(s.Ctx,
		`UPDATE items SET price = 999, discounted_price = 999 WHERE sku = $1`, item.SKU,
	)
	s.Require().NoError(err)

	cached, err := s.CachedCatalog.FindBySKU(s.Ctx, item.SKU)
	s.Require().NoError(err)
	s.Require().True(first.Price.Equal(cached.Price))
}

func (s *IntegrationTestSuite) TestCachedCatalog_SaveInvalidates() {
	item := s.seedItem("Home Science Form 1", "380.00", "0", true, true)

	warm, err := s.CachedCatalog.FindBySKU(s.Ctx, item.SKU)
	s.Require().NoError(err)
	s.Require().True(decimal.RequireFromString("380").Equal(warm.Price))

	item.Price = decimal.RequireFromString("420.00")
	s.Require().NoError(s.CachedCatalog.Save(s.Ctx, item))

	fresh, err := s.CachedCatalog.FindBySKU(s.Ctx, item.SKU)
	s.Require().NoError(err)
	s.Require().True(decimal.RequireFromString("420").Equal(fresh.Price))
}
