package catalog

import (
	"time"

	"github.com/mamadbah2/pharmacy/internal/domain/models"
)

// DemoPharmacyID owns every record of the demo dataset.
const DemoPharmacyID = "demo-pharmacy"

var demoStamp = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// DemoMedicines returns the fixed dataset served when the medicine API rejects a listing.
func DemoMedicines() []models.Medicine {
	expiry := func(year int) *time.Time {
		t := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return []models.Medicine{
		{
			ID:           "demo-1",
			Name:         "Paracetamol 500mg",
			Description:  "Pain reliever and fever reducer",
			Price:        2.50,
			Stock:        120,
			Category:     "analgesic",
			PharmacyID:   DemoPharmacyID,
			Manufacturer: "Sanofi",
			Dosage:       "500mg",
			ExpiryDate:   expiry(2026),
			Instructions: "1 to 2 tablets every 6 hours, no more than 8 per day",
			SideEffects:  []string{"nausea", "rash"},
			CreatedAt:    demoStamp,
			UpdatedAt:    demoStamp,
		},
		{
			ID:                   "demo-2",
			Name:                 "Amoxicillin 250mg",
			Description:          "Broad spectrum antibiotic",
			Price:                8.75,
			Stock:                45,
			Category:             "antibiotic",
			PharmacyID:           DemoPharmacyID,
			Manufacturer:         "GSK",
			Dosage:               "250mg",
			ExpiryDate:           expiry(2025),
			Instructions:         "1 capsule every 8 hours for 7 days",
			SideEffects:          []string{"diarrhea", "allergic reaction"},
			RequiresPrescription: true,
			CreatedAt:            demoStamp,
			UpdatedAt:            demoStamp,
		},
		{
			ID:           "demo-3",
			Name:         "Vitamin C 1000mg",
			Description:  "Immune system support",
			Price:        5.00,
			Stock:        200,
			Category:     "vitamins",
			PharmacyID:   DemoPharmacyID,
			Manufacturer: "Bayer",
			Dosage:       "1000mg",
			ExpiryDate:   expiry(2027),
			Instructions: "1 effervescent tablet per day",
			CreatedAt:    demoStamp,
			UpdatedAt:    demoStamp,
		},
		{
			ID:           "demo-4",
			Name:         "Ibuprofen 400mg",
			Description:  "Anti-inflammatory pain reliever",
			Price:        3.20,
			Stock:        0,
			Category:     "analgesic",
			PharmacyID:   DemoPharmacyID,
			Manufacturer: "Pfizer",
			Dosage:       "400mg",
			ExpiryDate:   expiry(2026),
			Instructions: "1 tablet every 8 hours with food",
			SideEffects:  []string{"stomach upset", "dizziness"},
			CreatedAt:    demoStamp,
			UpdatedAt:    demoStamp,
		},
	}
}
