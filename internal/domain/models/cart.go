package models

// CartMedicine is the part of a medicine record a cart line needs for display and totals.
type CartMedicine struct {
	ID                   string   `json:"_id" bson:"_id"`
	Name                 string   `json:"name" bson:"name"`
	Price                *float64 `json:"price,omitempty" bson:"price,omitempty"`
	Category             string   `json:"category,omitempty" bson:"category,omitempty"`
	PharmacyID           string   `json:"pharmacy,omitempty" bson:"pharmacy,omitempty"`
	Dosage               string   `json:"dosage,omitempty" bson:"dosage,omitempty"`
	RequiresPrescription bool     `json:"requiresPrescription,omitempty" bson:"requires_prescription,omitempty"`
}

// SnapshotOf builds the cart snapshot of a medicine.
func SnapshotOf(m Medicine) CartMedicine {
	price := m.Price
	return CartMedicine{
		ID:                   m.ID,
		Name:                 m.Name,
		Price:                &price,
		Category:             m.Category,
		PharmacyID:           m.PharmacyID,
		Dosage:               m.Dosage,
		RequiresPrescription: m.RequiresPrescription,
	}
}

// UnitPrice returns the price, or 0 when the snapshot carries none.
func (c CartMedicine) UnitPrice() float64 {
	if c.Price == nil {
		return 0
	}
	return *c.Price
}

// CartLine is one cart entry. Quantity is always >= 1 for stored lines.
type CartLine struct {
	Medicine CartMedicine `json:"medicine" bson:"medicine"`
	Quantity int          `json:"quantity" bson:"quantity"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() float64 {
	return l.Medicine.UnitPrice() * float64(l.Quantity)
}

// CheckoutResult describes the hand-off from the cart to the payment flow.
type CheckoutResult struct {
	Next       string     `json:"next"`
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"totalItems"`
	TotalPrice float64    `json:"totalPrice"`
}
