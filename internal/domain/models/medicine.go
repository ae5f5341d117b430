package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks identifiers minted by this service while the medicine API was unavailable.
const LocalIDPrefix = "local-"

// Medicine mirrors a medicine record served by the remote medicine API.
type Medicine struct {
	ID                   string     `json:"_id" bson:"_id"`
	Name                 string     `json:"name" bson:"name" validate:"notblank"`
	Description          string     `json:"description,omitempty" bson:"description,omitempty"`
	Price                float64    `json:"price" bson:"price" validate:"gte=0"`
	Stock                int        `json:"stock" bson:"stock" validate:"gte=0"`
	Category             string     `json:"category" bson:"category"`
	PharmacyID           string     `json:"pharmacy" bson:"pharmacy"`
	Manufacturer         string     `json:"manufacturer,omitempty" bson:"manufacturer,omitempty"`
	Dosage               string     `json:"dosage,omitempty" bson:"dosage,omitempty"`
	ExpiryDate           *time.Time `json:"expiryDate,omitempty" bson:"expiry_date,omitempty"`
	Instructions         string     `json:"instructions,omitempty" bson:"instructions,omitempty"`
	SideEffects          []string   `json:"sideEffects,omitempty" bson:"side_effects,omitempty"`
	RequiresPrescription bool       `json:"requiresPrescription" bson:"requires_prescription"`
	CreatedAt            time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updated_at"`

	// LocalOnly is set on records synthesized or merged locally and never acknowledged by the API.
	LocalOnly bool `json:"localOnly,omitempty" bson:"local_only,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with m.
func (m Medicine) Clone() Medicine {
	cp := m
	if m.SideEffects != nil {
		cp.SideEffects = append([]string(nil), m.SideEffects...)
	}
	if m.ExpiryDate != nil {
		expiry := *m.ExpiryDate
		cp.ExpiryDate = &expiry
	}
	return cp
}

// MedicineInput is the payload used to create a medicine.
type MedicineInput struct {
	Name                 string     `json:"name" validate:"required,notblank"`
	Description          string     `json:"description,omitempty"`
	Price                float64    `json:"price" validate:"gte=0"`
	Stock                int        `json:"stock" validate:"gte=0"`
	Category             string     `json:"category" validate:"required,notblank"`
	PharmacyID           string     `json:"pharmacy" validate:"required,notblank"`
	Manufacturer         string     `json:"manufacturer,omitempty"`
	Dosage               string     `json:"dosage,omitempty"`
	ExpiryDate           *time.Time `json:"expiryDate,omitempty"`
	Instructions         string     `json:"instructions,omitempty"`
	SideEffects          []string   `json:"sideEffects,omitempty"`
	RequiresPrescription bool       `json:"requiresPrescription"`
}

// ToMedicine materializes the input as a record with the given identity and timestamps.
func (in MedicineInput) ToMedicine(id string, now time.Time) Medicine {
	return Medicine{
		ID:                   id,
		Name:                 in.Name,
		Description:          in.Description,
		Price:                in.Price,
		Stock:                in.Stock,
		Category:             in.Category,
		PharmacyID:           in.PharmacyID,
		Manufacturer:         in.Manufacturer,
		Dosage:               in.Dosage,
		ExpiryDate:           in.ExpiryDate,
		Instructions:         in.Instructions,
		SideEffects:          in.SideEffects,
		RequiresPrescription: in.RequiresPrescription,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// MedicineUpdate is a partial update; nil fields are left untouched.
type MedicineUpdate struct {
	Name                 *string    `json:"name,omitempty" validate:"omitempty,notblank"`
	Description          *string    `json:"description,omitempty"`
	Price                *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock                *int       `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Category             *string    `json:"category,omitempty" validate:"omitempty,notblank"`
	Manufacturer         *string    `json:"manufacturer,omitempty"`
	Dosage               *string    `json:"dosage,omitempty"`
	ExpiryDate           *time.Time `json:"expiryDate,omitempty"`
	Instructions         *string    `json:"instructions,omitempty"`
	SideEffects          []string   `json:"sideEffects,omitempty"`
	RequiresPrescription *bool      `json:"requiresPrescription,omitempty"`
}

// Apply merges the non-nil fields of u into a copy of m.
func (u MedicineUpdate) Apply(m Medicine) Medicine {
	out := m.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.Price != nil {
		out.Price = *u.Price
	}
	if u.Stock != nil {
		out.Stock = *u.Stock
	}
	if u.Category != nil {
		out.Category = *u.Category
	}
	if u.Manufacturer != nil {
		out.Manufacturer = *u.Manufacturer
	}
	if u.Dosage != nil {
		out.Dosage = *u.Dosage
	}
	if u.ExpiryDate != nil {
		expiry := *u.ExpiryDate
		out.ExpiryDate = &expiry
	}
	if u.Instructions != nil {
		out.Instructions = *u.Instructions
	}
	if u.SideEffects != nil {
		out.SideEffects = append([]string(nil), u.SideEffects...)
	}
	if u.RequiresPrescription != nil {
		out.RequiresPrescription = *u.RequiresPrescription
	}
	return out
}

// MedicineFilters narrows a medicine listing. Zero values are not sent.
type MedicineFilters struct {
	Category   string   `json:"category,omitempty" form:"category"`
	MinPrice   *float64 `json:"minPrice,omitempty" form:"minPrice"`
	MaxPrice   *float64 `json:"maxPrice,omitempty" form:"maxPrice"`
	InStock    *bool    `json:"inStock,omitempty" form:"inStock"`
	Search     string   `json:"search,omitempty" form:"search"`
	PharmacyID string   `json:"pharmacy,omitempty" form:"pharmacy"`
	Page       int      `json:"page,omitempty" form:"page"`
}

// Query encodes the filters as API query parameters.
func (f MedicineFilters) Query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MinPrice != nil {
		q.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.InStock != nil {
		q.Set("inStock", strconv.FormatBool(*f.InStock))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.PharmacyID != "" {
		q.Set("pharmacy", f.PharmacyID)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

// MedicinePage is the list payload returned by the medicine API.
type MedicinePage struct {
	Medicines  []Medicine `json:"medicines"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
}

// NewLocalID mints a time-derived identifier that cannot collide with server identifiers.
func NewLocalID(now time.Time) string {
	return fmt.Sprintf("%s%d-%s", LocalIDPrefix, now.UnixMilli(), uuid.NewString()[:8])
}

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}
