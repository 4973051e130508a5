package types

// IndicatorType names one tracked piece of exchange state.
type IndicatorType string

const (
	IndicatorTypeTicker     IndicatorType = "ticker"
	IndicatorTypeOrderBook  IndicatorType = "order_book"
	IndicatorTypeOpenOrders IndicatorType = "open_orders"
)

// IndicatorTypes returns every tracked indicator, in refresh order.
func IndicatorTypes() []IndicatorType {
	return []IndicatorType{
		IndicatorTypeTicker,
		IndicatorTypeOrderBook,
		IndicatorTypeOpenOrders,
	}
}
