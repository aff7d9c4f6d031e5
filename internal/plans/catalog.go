package plans

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/dariovega/vidora-backend/pkg/config"
	"github.com/dariovega/vidora-backend/pkg/enums"
)

// Plan describes what a Creem product id is worth in credits.
type Plan struct {
	ProductID string             `json:"product_id" validate:"required"`
	Name      string             `json:"name"`
	Credits   int64              `json:"credits" validate:"gte=0"`
	GroupID   string             `json:"group_id"`
	Category  enums.PlanCategory `json:"category" validate:"required"`
}

// IsRecurring reports whether the plan bills on a subscription cycle.
func (p Plan) IsRecurring() bool {
	return p.Category == enums.PlanCategorySubscription
}

// Catalog is the read-only mapping consulted by webhook handlers to size
// credit grants. Loaded once at startup; never mutated afterwards.
type Catalog struct {
	byProduct map[string]Plan
}

// Load builds the catalog from config. Inline JSON wins over a file path;
// with neither set an empty catalog is returned (handlers then fall back to
// metadata-declared credit amounts for one-time purchases).
func Load(cfg config.CatalogConfig) (*Catalog, error) {
	var raw []byte
	switch {
	case cfg.JSON != "":
		raw = []byte(cfg.JSON)
	case cfg.Path != "":
		b, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("read plan catalog %q: %w", cfg.Path, err)
		}
		raw = b
	default:
		return &Catalog{byProduct: map[string]Plan{}}, nil
	}

	var entries []Plan
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}
	return New(entries)
}

// New builds a catalog from explicit entries, validating each one.
func New(entries []Plan) (*Catalog, error) {
	validate := validator.New()
	byProduct := make(map[string]Plan, len(entries))
	for i, entry := range entries {
		if err := validate.Struct(entry); err != nil {
			return nil, fmt.Errorf("plan catalog entry %d: %w", i, err)
		}
		if !entry.Category.IsValid() {
			return nil, fmt.Errorf("plan catalog entry %d: invalid category %q", i, entry.Category)
		}
		if _, exists := byProduct[entry.ProductID]; exists {
			return nil, fmt.Errorf("plan catalog entry %d: duplicate product id %q", i, entry.ProductID)
		}
		byProduct[entry.ProductID] = entry
	}
	return &Catalog{byProduct: byProduct}, nil
}

// Find returns the plan for a product id.
func (c *Catalog) Find(productID string) (Plan, bool) {
	if c == nil || productID == "" {
		return Plan{}, false
	}
	plan, ok := c.byProduct[productID]
	return plan, ok
}

// Len reports how many products the catalog maps.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byProduct)
}
