package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
)

// ProductSource fetches catalog products.
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

// AddToCartInput is a request to put a product in the cart.
type AddToCartInput struct {
	ProductID int64
	Size      string
	Quantity  int
}

// CatalogService validates product choices against stock before they reach
// the cart.
type CatalogService struct {
	products   ProductSource
	cart       *CartStore
	maxPerItem int
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service. maxPerItem <= 0 disables the
// per-line cap.
func NewCatalogService(products ProductSource, cart *CartStore, maxPerItem int, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products:   products,
		cart:       cart,
		maxPerItem: maxPerItem,
		logger:     logger,
	}
}

// Product fetches a product.
func (s *CatalogService) Product(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// AddToCart checks that the requested quantity plus what is already in the
// cart fits the stock of the chosen size, then adds it.
func (s *CatalogService) AddToCart(ctx context.Context, in AddToCartInput) (domain.Lines, error) {
	if in.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	size := domain.NormalizeSize(in.Size)

	product, err := s.Product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	if product.HasSizes() && size == "" {
		return nil, apperrors.InvalidInput("choose a size for this product")
	}
	stock, ok := product.StockFor(size)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("size %q is not available for this product", size))
	}

	inCart := s.cart.ProductQuantity(product.ID, size)
	wanted := inCart + in.Quantity
	if wanted > stock {
		left := max(stock-inCart, 0)
		return nil, apperrors.Conflict(fmt.Sprintf("only %d more in stock", left))
	}
	if s.maxPerItem > 0 && wanted > s.maxPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d units per item", s.maxPerItem))
	}

	s.cart.AddItem(product.Snapshot(), in.Quantity, size)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.Int64("product_id", product.ID),
		slog.String("size", size),
		slog.Int("quantity", in.Quantity),
	)
	return s.cart.Items(), nil
}
