package projection

import "github.com/example/farm2home/internal/domain/order"

// StatusInfo is the display descriptor for an order status
type StatusInfo struct {
	Status          order.Status `json:"status"`
	Label           string       `json:"label"`
	Icon            string       `json:"icon"`
	Color           string       `json:"color"`
	ProgressPercent int          `json:"progress_percent"`
}

var statusTable = map[order.Status]StatusInfo{
	order.StatusConfirmed:      {order.StatusConfirmed, "Order Confirmed", "✅", "#667eea", 25},
	order.StatusProcessing:     {order.StatusProcessing, "Processing", "🔄", "#f093fb", 50},
	order.StatusShipped:        {order.StatusShipped, "Shipped", "🚚", "#4facfe", 75},
	order.StatusOutForDelivery: {order.StatusOutForDelivery, "Out for Delivery", "📦", "#43e97b", 90},
	order.StatusDelivered:      {order.StatusDelivered, "Delivered", "🎉", "#28a745", 100},
	order.StatusCancelled:      {order.StatusCancelled, "Cancelled", "❌", "#dc3545", 0},
}

// Describe maps a status to its descriptor. Unknown statuses get the
// confirmed entry.
func Describe(s order.Status) StatusInfo {
	if info, ok := statusTable[s]; ok {
		return info
	}
	return statusTable[order.StatusConfirmed]
}
