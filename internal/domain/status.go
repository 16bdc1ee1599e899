package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// OrderStatus is the canonical order status.
type OrderStatus string

// Canonical order statuses. Processing has no status of its own: it is
// displayed and treated as Confirmed.
const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	StatusUndefined OrderStatus = "undefined"
)

// StatusDisplay is the presentation tuple for an order status.
type StatusDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var statusDisplays = map[OrderStatus]StatusDisplay{
	StatusPending:   {Label: "Pending", Color: "#F59E0B", Icon: "clock"},
	StatusConfirmed: {Label: "Confirmed", Color: "#3B82F6", Icon: "check-circle"},
	StatusShipped:   {Label: "Shipped", Color: "#8B5CF6", Icon: "truck"},
	StatusDelivered: {Label: "Delivered", Color: "#10B981", Icon: "package"},
	StatusCancelled: {Label: "Cancelled", Color: "#EF4444", Icon: "x-circle"},
	StatusUndefined: {Label: "Undefined", Color: "#6B7280", Icon: "help-circle"},
}

// statusAliases maps normalized raw spellings, Portuguese and English, to
// canonical statuses.
var statusAliases = map[string]OrderStatus{
	"pendente":    StatusPending,
	"pending":     StatusPending,
	"confirmada":  StatusConfirmed,
	"confirmado":  StatusConfirmed,
	"confirmed":   StatusConfirmed,
	"processando": StatusConfirmed,
	"processing":  StatusConfirmed,
	"enviada":     StatusShipped,
	"enviado":     StatusShipped,
	"shipped":     StatusShipped,
	"entregue":    StatusDelivered,
	"delivered":   StatusDelivered,
	"cancelada":   StatusCancelled,
	"cancelado":   StatusCancelled,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
}

// normalizeStatus trims, lowercases and strips diacritics.
func normalizeStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// ParseStatus resolves a raw backend status. Unknown values yield
// StatusUndefined and false.
func ParseStatus(raw string) (OrderStatus, bool) {
	st, ok := statusAliases[normalizeStatus(raw)]
	if !ok {
		return StatusUndefined, false
	}
	return st, true
}

// FormatStatus maps a raw status to its display tuple. It never fails.
func FormatStatus(raw string) StatusDisplay {
	st, _ := ParseStatus(raw)
	return statusDisplays[st]
}

// IsCancellable reports whether an order in the raw status may be cancelled.
func IsCancellable(raw string) bool {
	st, _ := ParseStatus(raw)
	return st == StatusPending || st == StatusConfirmed
}
