package order

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	Statuses  []Status `json:"statuses,omitempty"`
	TodayOnly bool     `json:"todayOnly,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}
