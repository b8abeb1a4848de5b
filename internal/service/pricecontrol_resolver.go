package service

import "github.com/demarchi-food/pricecontrol-api/internal/domain"

// Resolve returns the contractually correct reference price for one sold
// variant under one customer's rule list. It is total and deterministic:
// absence of data degrades to the product's catalog price, never to an error.
//
// Precedence, highest first:
//  1. fixed variant-level entry on the customer's rule list
//  2. fixed template-level entry on the customer's rule list
//  3. the rule list's global entry, followed one hop into its base list
//     (variant entry, then template entry)
//  4. the product's catalog price
//
// Formulas are never evaluated as arithmetic; a global formula is only
// followed to locate its base list. This mirrors the two-hop depth of the
// upstream rule data and is treated as given business policy.
func (idx *Indices) Resolve(ruleListID, variantID, templateID int64, product domain.Product) domain.ResolvedPrice {
	if entry, ok := idx.variantRules[ruleKey{ruleListID, variantID}]; ok && entry.ComputeMode == domain.ComputeModeFixed {
		return domain.ResolvedPrice{
			Price:      entry.FixedPrice,
			Tier:       domain.TierFixed,
			Provenance: idx.ruleListNames[ruleListID],
		}
	}

	if entry, ok := idx.templateRules[ruleKey{ruleListID, templateID}]; ok && entry.ComputeMode == domain.ComputeModeFixed {
		return domain.ResolvedPrice{
			Price:      entry.FixedPrice,
			Tier:       domain.TierFixed,
			Provenance: idx.ruleListNames[ruleListID],
		}
	}

	global, ok := idx.globalRules[ruleListID]
	if !ok {
		return domain.ResolvedPrice{
			Price:      product.ListPrice,
			Tier:       domain.TierProductFallback,
			Provenance: domain.CatalogPriceLabel,
		}
	}

	if !global.BaseIsRuleList || global.BaseRuleListID == 0 {
		// A plain discount formula with no reference list: the number comes
		// from the catalog.
		return domain.ResolvedPrice{
			Price:      product.ListPrice,
			Tier:       domain.TierBaseList,
			Provenance: domain.CatalogPriceLabel,
		}
	}

	baseID := global.BaseRuleListID
	if entry, ok := idx.baseVariantRules[ruleKey{baseID, variantID}]; ok && entry.ComputeMode == domain.ComputeModeFixed {
		return domain.ResolvedPrice{
			Price:      entry.FixedPrice,
			Tier:       domain.TierBaseList,
			Provenance: idx.baseListNames[baseID],
		}
	}
	if entry, ok := idx.baseTemplateRules[ruleKey{baseID, templateID}]; ok && entry.ComputeMode == domain.ComputeModeFixed {
		return domain.ResolvedPrice{
			Price:      entry.FixedPrice,
			Tier:       domain.TierBaseList,
			Provenance: idx.baseListNames[baseID],
		}
	}

	// The base list holds no entry for this product: the value falls back to
	// the catalog price while the provenance keeps the base list's name.
	// Intentional, so auditors can see which list was consulted; flagged for
	// product-owner review rather than changed here.
	return domain.ResolvedPrice{
		Price:      product.ListPrice,
		Tier:       domain.TierBaseList,
		Provenance: idx.baseListNames[baseID],
	}
}
