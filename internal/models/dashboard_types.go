package models

// DashboardStats is the admin overview.
type DashboardStats struct {
	Revenue        float64          `json:"revenue"` // non-cancelled orders
	PaidRevenue    float64          `json:"paidRevenue"`
	OrdersByStatus map[string]int   `json:"ordersByStatus"`
	Customers      int              `json:"customers"`
	LowStockCount  int              `json:"lowStockCount"`
	LowStock       []LowStockEntry  `json:"lowStock"`
	TopProducts    []TopProductStat `json:"topProducts"`
}

type LowStockEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

type TopProductStat struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	UnitsSold int     `json:"unitsSold"`
	Revenue   float64 `json:"revenue"`
}
