package backend

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/utafrali/schoolwear/internal/domain"
)

// money decodes a decimal amount sent as a JSON number or string into minor
// units and encodes minor units as a two-decimal JSON number.
type money int64

func (m *money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = 0
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = money(domain.MoneyFromDecimal(d))
	return nil
}

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(domain.FormatMoney(int64(m))), nil
}

type sizeDTO struct {
	Size  string `json:"tamanho"`
	Stock int    `json:"stock"`
}

type productDTO struct {
	ID       int64     `json:"id"`
	Category string    `json:"categoria"`
	Model    string    `json:"modelo"`
	Fabric   string    `json:"tecido"`
	Image    string    `json:"imagem"`
	Price    money     `json:"preco"`
	Stock    int       `json:"stock"`
	Sizes    []sizeDTO `json:"tamanhos"`
}

func (p *productDTO) toDomain() *domain.Product {
	out := &domain.Product{
		ID:           p.ID,
		CategoryName: p.Category,
		ModelName:    p.Model,
		FabricName:   p.Fabric,
		ImageURL:     p.Image,
		Price:        int64(p.Price),
		Stock:        p.Stock,
	}
	for _, s := range p.Sizes {
		out.Sizes = append(out.Sizes, domain.SizeStock{Size: domain.NormalizeSize(s.Size), Stock: s.Stock})
	}
	return out
}

type orderLineDTO struct {
	Product   string `json:"produto"`
	Fabric    string `json:"tecido"`
	Size      string `json:"tamanho"`
	Quantity  int    `json:"quantidade"`
	UnitPrice money  `json:"preco_unitario"`
	Subtotal  money  `json:"subtotal"`
}

type orderDTO struct {
	ID           int64          `json:"id"`
	CreatedAt    string         `json:"data_encomenda"`
	DeliveryDate string         `json:"data_entrega"`
	Status       string         `json:"estado"`
	Total        money          `json:"total"`
	Items        []orderLineDTO `json:"itens"`
}

func (o *orderDTO) summary() domain.OrderSummary {
	return domain.OrderSummary{
		ID:           o.ID,
		CreatedAt:    o.CreatedAt,
		DeliveryDate: o.DeliveryDate,
		Status:       o.Status,
		Total:        int64(o.Total),
	}
}

func (o *orderDTO) detail() *domain.OrderDetail {
	d := &domain.OrderDetail{OrderSummary: o.summary(), Items: make([]domain.OrderLine, 0, len(o.Items))}
	for _, it := range o.Items {
		line := domain.OrderLine{
			ProductName: it.Product,
			FabricName:  it.Fabric,
			Size:        it.Size,
			Quantity:    it.Quantity,
			UnitPrice:   int64(it.UnitPrice),
			LineTotal:   int64(it.Subtotal),
		}
		if line.LineTotal == 0 {
			line.LineTotal = line.UnitPrice * int64(line.Quantity)
		}
		d.Items = append(d.Items, line)
	}
	return d
}

type createOrderLineDTO struct {
	ProductID int64  `json:"produto_id"`
	Size      string `json:"tamanho,omitempty"`
	Quantity  int    `json:"quantidade"`
	UnitPrice money  `json:"preco_unitario"`
}

type createOrderDTO struct {
	SchoolID int64                `json:"escola_id"`
	Items    []createOrderLineDTO `json:"itens"`
	Total    money                `json:"total"`
}

func newCreateOrderDTO(req domain.OrderRequest) createOrderDTO {
	out := createOrderDTO{
		SchoolID: req.SchoolID,
		Items:    make([]createOrderLineDTO, len(req.Items)),
		Total:    money(req.Total),
	}
	for i, it := range req.Items {
		out.Items[i] = createOrderLineDTO{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
		}
	}
	return out
}

type createdOrderDTO struct {
	ID int64 `json:"id"`
}

type profileDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"nome"`
	Email    string `json:"email"`
	SchoolID *int64 `json:"escola_id"`
}

func (p *profileDTO) toDomain() *domain.Profile {
	out := &domain.Profile{ID: p.ID, Name: p.Name, Email: p.Email}
	if p.SchoolID != nil {
		out.SchoolID = *p.SchoolID
	}
	return out
}

var _ json.Marshaler = money(0)
