package models

import "time"

// InventoryReport is the aggregated stock picture stored in MongoDB and exported to Sheets.
type InventoryReport struct {
	GeneratedAt   time.Time `bson:"generated_at" json:"generatedAt"`
	Medicines     int       `bson:"medicines" json:"medicines"`
	TotalUnits    int       `bson:"total_units" json:"totalUnits"`
	StockValue    float64   `bson:"stock_value" json:"stockValue"`
	LowStock      []string  `bson:"low_stock" json:"lowStock"`
	OutOfStock    []string  `bson:"out_of_stock" json:"outOfStock"`
	LocalOnly     int       `bson:"local_only" json:"localOnly"`
	DemoData      bool      `bson:"demo_data" json:"demoData"`
	LowStockLimit int       `bson:"low_stock_limit" json:"lowStockLimit"`
}
