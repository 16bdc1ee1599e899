package domain

// OrderSummary is an order as listed by the backend.
type OrderSummary struct {
	ID           int64  `json:"id"`
	CreatedAt    string `json:"created_at"`
	DeliveryDate string `json:"delivery_date"`
	Status       string `json:"status"`
	Total        int64  `json:"total"`
}

// OrderLine is a line of an order detail.
type OrderLine struct {
	ProductName string `json:"product_name"`
	FabricName  string `json:"fabric_name,omitempty"`
	Size        string `json:"size,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

// OrderDetail is a single order with its lines.
type OrderDetail struct {
	OrderSummary
	Items []OrderLine `json:"items"`
}

// OrderRequestLine is one cart line submitted at checkout.
type OrderRequestLine struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderRequest is the order-creation payload built from the cart.
type OrderRequest struct {
	SchoolID int64              `json:"school_id"`
	Items    []OrderRequestLine `json:"items"`
	Total    int64              `json:"total"`
}

// NewOrderRequest builds an order request from a cart snapshot.
func NewOrderRequest(schoolID int64, items Lines) OrderRequest {
	lines := make([]OrderRequestLine, len(items))
	for i, it := range items {
		lines[i] = OrderRequestLine{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return OrderRequest{SchoolID: schoolID, Items: lines, Total: items.Total()}
}

// DashboardSummary aggregates orders for the admin dashboard.
type DashboardSummary struct {
	TotalOrders  int            `json:"total_orders"`
	ByStatus     map[string]int `json:"by_status"`
	Revenue      int64          `json:"revenue"`
	PendingCount int            `json:"pending_count"`
}

// SummarizeOrders counts orders per display label and sums revenue over
// orders with a known, non-cancelled status.
func SummarizeOrders(orders []OrderSummary) DashboardSummary {
	sum := DashboardSummary{
		TotalOrders: len(orders),
		ByStatus:    make(map[string]int),
	}
	for _, o := range orders {
		st, known := ParseStatus(o.Status)
		sum.ByStatus[statusDisplays[st].Label]++
		if st == StatusPending {
			sum.PendingCount++
		}
		if known && st != StatusCancelled {
			sum.Revenue += o.Total
		}
	}
	return sum
}
