package pipeline

import "github.com/steuerkern/engine/internal/models"

// categorizeRealization stamps rgl.TaxCategory from the asset category it
// was realized against, per spec.md §4.7's category table, including the
// §23 EStG speculation-period split for PRIVATE_SALE_ASSET.
func categorizeRealization(rgl *models.RealizedGainLoss, category models.AssetCategory) {
	switch category {
	case models.CategoryStock:
		rgl.TaxCategory = models.TaxCategoryStock
	case models.CategoryOption, models.CategoryCFD:
		rgl.TaxCategory = models.TaxCategoryDerivative
	case models.CategoryInvestmentFund:
		rgl.TaxCategory = models.TaxCategoryFund
	case models.CategoryPrivateSaleAsset:
		if rgl.IsWithinSpeculationPeriod {
			rgl.TaxCategory = models.TaxCategorySection23Taxable
		} else {
			rgl.TaxCategory = models.TaxCategorySection23Exempt
		}
	default:
		rgl.TaxCategory = models.TaxCategoryOtherKAP
	}
}
