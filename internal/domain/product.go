package domain

// SizeStock is the stock available for one size of a product.
type SizeStock struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// Product is a catalog product as returned by the backend.
type Product struct {
	ID           int64       `json:"id"`
	CategoryName string      `json:"category_name"`
	ModelName    string      `json:"model_name"`
	FabricName   string      `json:"fabric_name"`
	ImageURL     string      `json:"image_url,omitempty"`
	Price        int64       `json:"price"`
	Stock        int         `json:"stock"`
	Sizes        []SizeStock `json:"sizes,omitempty"`
}

// HasSizes reports whether a size must be chosen before adding to the cart.
func (p *Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// StockFor returns the stock for size. Sizeless products use Stock and only
// accept the empty size.
func (p *Product) StockFor(size string) (int, bool) {
	if !p.HasSizes() {
		if size != "" {
			return 0, false
		}
		return p.Stock, true
	}
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

// Snapshot copies the fields a cart line keeps.
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:    p.ID,
		UnitPrice:    p.Price,
		CategoryName: p.CategoryName,
		ModelName:    p.ModelName,
		FabricName:   p.FabricName,
		ImageURL:     p.ImageURL,
	}
}
