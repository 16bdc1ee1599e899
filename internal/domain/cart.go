package domain

import "strings"

// CartStorageKey is the storage key holding the serialized cart.
const CartStorageKey = "cart_items"

// LineItem represents a single row in the cart. (ProductID, Size) is unique
// within a cart; an empty Size denotes a sizeless product.
type LineItem struct {
	ProductID    int64  `json:"product_id"`
	Size         string `json:"size,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	CategoryName string `json:"category_name,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	FabricName   string `json:"fabric_name,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

// Subtotal returns unit price times quantity in minor units.
func (l LineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Matches reports whether the line is keyed by the given product and size.
func (l LineItem) Matches(productID int64, size string) bool {
	return l.ProductID == productID && l.Size == size
}

// ProductSnapshot holds the product fields copied into a line item at
// add-time. The price is not re-fetched afterwards.
type ProductSnapshot struct {
	ProductID    int64
	UnitPrice    int64
	CategoryName string
	ModelName    string
	FabricName   string
	ImageURL     string
}

// NewLineItem builds a line item from a snapshot.
func NewLineItem(p ProductSnapshot, quantity int, size string) LineItem {
	return LineItem{
		ProductID:    p.ProductID,
		Size:         size,
		Quantity:     quantity,
		UnitPrice:    p.UnitPrice,
		CategoryName: p.CategoryName,
		ModelName:    p.ModelName,
		FabricName:   p.FabricName,
		ImageURL:     p.ImageURL,
	}
}

// Lines is an ordered list of cart lines.
type Lines []LineItem

// Total calculates the total price of all lines (in minor units).
func (ls Lines) Total() int64 {
	var total int64
	for _, l := range ls {
		total += l.Subtotal()
	}
	return total
}

// Quantity returns the number of units across all lines.
func (ls Lines) Quantity() int {
	var n int
	for _, l := range ls {
		n += l.Quantity
	}
	return n
}

// Index returns the position of the line keyed by (productID, size), or -1.
func (ls Lines) Index(productID int64, size string) int {
	for i := range ls {
		if ls[i].Matches(productID, size) {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with ls.
func (ls Lines) Clone() Lines {
	if ls == nil {
		return Lines{}
	}
	out := make(Lines, len(ls))
	copy(out, ls)
	return out
}

// NormalizeSize trims a size variant. Sizes are otherwise matched exactly.
func NormalizeSize(size string) string {
	return strings.TrimSpace(size)
}
