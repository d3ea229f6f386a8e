package square

import (
	"context"
	"iter"
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"
	sqoption "github.com/square/square-go-sdk/option"

	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

const ordersPageSize = 500

// OrderPages lazily walks completed orders created in [start, end) at one
// location, oldest first.
func (c *Client) OrderPages(ctx context.Context, accessToken, locationID string, start, end time.Time) iter.Seq2[[]Order, error] {
	return Pages(ctx, func(ctx context.Context, cursor string) (Page[Order], error) {
		return c.searchOrders(ctx, accessToken, locationID, start, end, cursor)
	})
}

// FetchTransactions returns every completed order created in [start, end).
func (c *Client) FetchTransactions(ctx context.Context, accessToken, locationID string, start, end time.Time) ([]Order, error) {
	if strings.TrimSpace(locationID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDataIntegrity, "square location id is required")
	}
	orders, err := Collect(c.OrderPages(ctx, accessToken, locationID, start, end))
	if err != nil {
		return nil, err
	}
	c.log(ctx, "response", "search_orders", map[string]any{
		"location_id": locationID,
		"order_count": len(orders),
	})
	return orders, nil
}

func ordersQuery(locationID string, start, end time.Time) *sq.SearchOrdersRequest {
	return &sq.SearchOrdersRequest{
		LocationIDs: []string{locationID},
		Query: &sq.SearchOrdersQuery{
			Filter: &sq.SearchOrdersFilter{
				DateTimeFilter: &sq.SearchOrdersDateTimeFilter{
					CreatedAt: &sq.TimeRange{
						StartAt: sq.String(start.UTC().Format(time.RFC3339)),
						EndAt:   sq.String(end.UTC().Format(time.RFC3339)),
					},
				},
				StateFilter: &sq.SearchOrdersStateFilter{
					States: []sq.OrderState{sq.OrderStateCompleted},
				},
			},
			Sort: &sq.SearchOrdersSort{
				SortField: sq.SearchOrdersSortFieldCreatedAt,
				SortOrder: sq.SortOrderAsc.Ptr(),
			},
		},
		Limit: sq.Int(ordersPageSize),
	}
}

func (c *Client) searchOrders(ctx context.Context, accessToken, locationID string, start, end time.Time, cursor string) (Page[Order], error) {
	req := ordersQuery(locationID, start, end)
	if cursor != "" {
		req.Cursor = sq.String(cursor)
	}

	c.log(ctx, "request", "search_orders", map[string]any{
		"location_id": locationID,
		"has_cursor":  cursor != "",
	})

	resp, err := c.sdk.Orders.Search(ctx, req, sqoption.WithToken(accessToken))
	if err != nil {
		c.log(ctx, "error", "search_orders", map[string]any{"error": err.Error()})
		return Page[Order]{}, c.mapSquareError(err, "search_orders")
	}

	page := Page[Order]{Cursor: strings.TrimSpace(stringValue(resp.GetCursor()))}
	for _, o := range resp.GetOrders() {
		order, ok := orderFromSDK(o)
		if !ok {
			c.log(ctx, "response", "search_orders", map[string]any{
				"skipped_order": stringValue(o.GetID()),
				"created_at":    stringValue(o.GetCreatedAt()),
			})
			continue
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

// orderFromSDK keeps the fields the sync reads. Orders without an id or a
// parseable created_at are dropped.
func orderFromSDK(o *sq.Order) (Order, bool) {
	if o == nil || stringValue(o.GetID()) == "" {
		return Order{}, false
	}
	createdAt, err := time.Parse(time.RFC3339, stringValue(o.GetCreatedAt()))
	if err != nil {
		return Order{}, false
	}
	order := Order{
		ID:         stringValue(o.GetID()),
		LocationID: o.GetLocationID(),
		CreatedAt:  createdAt,
		TotalMoney: moneyFromSDK(o.GetTotalMoney()),
	}
	if state := o.GetState(); state != nil {
		order.State = string(*state)
	}
	for _, li := range o.GetLineItems() {
		if li == nil {
			continue
		}
		order.LineItems = append(order.LineItems, LineItem{
			Name:              stringValue(li.GetName()),
			Quantity:          li.GetQuantity(),
			VariationName:     stringValue(li.GetVariationName()),
			CatalogObjectType: extraString(li.GetExtraProperties(), "catalog_object_type"),
			GrossSalesMoney:   moneyFromSDK(li.GetGrossSalesMoney()),
		})
	}
	for _, t := range o.GetTenders() {
		if t == nil {
			continue
		}
		// employee_id is a legacy tender field the typed SDK model does not
		// declare, so it arrives with the extra properties.
		order.Tenders = append(order.Tenders, Tender{
			ID:         stringValue(t.GetID()),
			Type:       string(t.GetType()),
			EmployeeID: extraString(t.GetExtraProperties(), "employee_id"),
		})
	}
	return order, true
}

func moneyFromSDK(m *sq.Money) *Money {
	if m == nil {
		return nil
	}
	out := &Money{Amount: m.GetAmount()}
	if cur := m.GetCurrency(); cur != nil {
		out.Currency = string(*cur)
	}
	return out
}

func extraString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
