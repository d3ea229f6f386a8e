package square

import "time"

// Money is an amount in the smallest currency unit.
type Money struct {
	Amount   *int64
	Currency string
}

// AmountOrZero treats a missing amount as zero.
func (m *Money) AmountOrZero() int64 {
	if m == nil || m.Amount == nil {
		return 0
	}
	return *m.Amount
}

// Order is the subset of a Square order the sync reads.
type Order struct {
	ID         string
	LocationID string
	State      string
	CreatedAt  time.Time
	TotalMoney *Money
	LineItems  []LineItem
	Tenders    []Tender
}

// FirstTenderEmployeeID returns the employee on the first tender, if any.
func (o Order) FirstTenderEmployeeID() string {
	if len(o.Tenders) == 0 {
		return ""
	}
	return o.Tenders[0].EmployeeID
}

type LineItem struct {
	Name              string
	Quantity          string
	VariationName     string
	CatalogObjectType string
	GrossSalesMoney   *Money
}

type Tender struct {
	ID         string
	Type       string
	EmployeeID string
}

// TeamMember is an active Square staff record.
type TeamMember struct {
	ID         string
	GivenName  string
	FamilyName string
}

// TokenGrant is the result of an OAuth code exchange or refresh.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	MerchantID   string
	ExpiresAt    time.Time
}
