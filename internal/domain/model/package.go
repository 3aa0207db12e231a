package model

import "wallet-ledger-service/internal/domain"

// CreditPackage is a purchasable bundle of virtual credits with a fixed price
// in integral currency units (VND).
type CreditPackage struct {
	ID           string
	Name         string
	Price        int64 // bank-transfer amount, VND
	Credits      int64 // base credits
	BonusCredits int64
	Discount     string // display label, e.g. "-17%"
	Description  string
	Popular      bool
}

// TotalCredits is the amount actually granted on a paid order.
func (p *CreditPackage) TotalCredits() int64 { return p.Credits + p.BonusCredits }

// The catalog is fixed; packages are identified by a stable ID that clients send
// to the order-creation endpoint.
var packages = []CreditPackage{
	{
		ID:          "credits_starter",
		Name:        "Starter",
		Price:       19000,
		Credits:     200,
		Description: "Entry bundle",
	},
	{
		ID:           "credits_popular",
		Name:         "Popular",
		Price:        79000,
		Credits:      800,
		BonusCredits: 200,
		Discount:     "-17%",
		Description:  "Most chosen bundle",
		Popular:      true,
	},
	{
		ID:           "credits_pro",
		Name:         "Pro",
		Price:        199000,
		Credits:      1500,
		BonusCredits: 1000,
		Discount:     "-16%",
		Description:  "Best value",
	},
	{
		ID:           "credits_premium",
		Name:         "Premium",
		Price:        399000,
		Credits:      3000,
		BonusCredits: 3000,
		Discount:     "-29%",
		Description:  "Maximum savings",
	},
}

// Packages returns the full catalog in display order.
func Packages() []CreditPackage {
	out := make([]CreditPackage, len(packages))
	copy(out, packages)
	return out
}

// FindPackage resolves a package ID against the catalog.
func FindPackage(id string) (*CreditPackage, error) {
	for i := range packages {
		if packages[i].ID == id {
			cp := packages[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrInvalidPackage
}
