package service

import "github.com/demarchi-food/pricecontrol-api/internal/domain"

// ruleKey joins a rule list to a variant or template id.
type ruleKey struct {
	ruleListID int64
	productID  int64
}

// Indices are the O(1) lookup structures one analysis run resolves prices
// against. They are built once per request from the bulk snapshot and passed
// around by reference; nothing mutates them after construction.
type Indices struct {
	orderByID         map[int64]domain.Order
	productByID       map[int64]domain.Product
	templateByVariant map[int64]int64
	variantRules      map[ruleKey]domain.RuleListEntry
	templateRules     map[ruleKey]domain.RuleListEntry
	globalRules       map[int64]domain.RuleListEntry
	baseVariantRules  map[ruleKey]domain.RuleListEntry
	baseTemplateRules map[ruleKey]domain.RuleListEntry
	ruleListNames     map[int64]string
	baseListNames     map[int64]string
}

// BuildIndices turns a bulk snapshot into its lookup structures.
// Pure function of its input; no remote access.
func BuildIndices(snap *Snapshot) *Indices {
	idx := &Indices{
		orderByID:         make(map[int64]domain.Order, len(snap.Orders)),
		productByID:       make(map[int64]domain.Product, len(snap.Products)),
		templateByVariant: make(map[int64]int64, len(snap.Products)),
		variantRules:      make(map[ruleKey]domain.RuleListEntry),
		templateRules:     make(map[ruleKey]domain.RuleListEntry),
		globalRules:       make(map[int64]domain.RuleListEntry),
		baseVariantRules:  make(map[ruleKey]domain.RuleListEntry),
		baseTemplateRules: make(map[ruleKey]domain.RuleListEntry),
		ruleListNames:     make(map[int64]string, len(snap.RuleLists)),
		baseListNames:     make(map[int64]string, len(snap.BaseRuleLists)),
	}

	for _, order := range snap.Orders {
		idx.orderByID[order.ID] = order
	}
	for _, product := range snap.Products {
		idx.productByID[product.ID] = product
		idx.templateByVariant[product.ID] = product.TemplateID
	}
	for _, list := range snap.RuleLists {
		idx.ruleListNames[list.ID] = list.Name
	}
	for _, list := range snap.BaseRuleLists {
		idx.baseListNames[list.ID] = list.Name
	}

	indexScopedEntries(snap.Entries, idx.variantRules, idx.templateRules)
	indexScopedEntries(snap.BaseEntries, idx.baseVariantRules, idx.baseTemplateRules)

	for _, entry := range snap.GlobalEntries {
		if entry.Scope != domain.RuleScopeGlobal {
			continue
		}
		// The upstream occasionally holds several global entries per rule
		// list; the first one fetched wins, matching the historical behavior
		// the audit figures are reconciled against.
		if _, exists := idx.globalRules[entry.RuleListID]; !exists {
			idx.globalRules[entry.RuleListID] = entry
		}
	}

	return idx
}

func indexScopedEntries(entries []domain.RuleListEntry, variantRules, templateRules map[ruleKey]domain.RuleListEntry) {
	for _, entry := range entries {
		switch entry.Scope {
		case domain.RuleScopeVariant:
			if entry.VariantID != 0 {
				variantRules[ruleKey{entry.RuleListID, entry.VariantID}] = entry
			}
		case domain.RuleScopeTemplate:
			if entry.TemplateID != 0 {
				templateRules[ruleKey{entry.RuleListID, entry.TemplateID}] = entry
			}
		}
	}
}

// Order returns the order for an id, if present in the snapshot.
func (idx *Indices) Order(id int64) (domain.Order, bool) {
	o, ok := idx.orderByID[id]
	return o, ok
}

// Product returns the product for a variant id, if present in the snapshot.
func (idx *Indices) Product(id int64) (domain.Product, bool) {
	p, ok := idx.productByID[id]
	return p, ok
}
