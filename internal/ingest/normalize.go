package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

const (
	unknownItemName = "Unknown Item"
	otherCategory   = "Other"
)

// StaffIndex maps a Square employee id to the owning user's staff row id.
type StaffIndex map[string]uuid.UUID

// NormalizeOrder maps one Square order into a transaction row and its line
// items. IDs and timestamps are left for the store to fill.
func NormalizeOrder(userID uuid.UUID, order square.Order, loc *time.Location, staff StaffIndex) (models.Transaction, []models.TransactionItem) {
	if loc == nil {
		loc = time.UTC
	}
	local := order.CreatedAt.In(loc)

	items := make([]models.TransactionItem, 0, len(order.LineItems))
	itemCount := 0
	for _, li := range order.LineItems {
		qty := ParseQuantity(li.Quantity)
		itemCount += qty
		items = append(items, models.TransactionItem{
			ItemName:    itemName(li),
			Category:    itemCategory(li),
			Quantity:    qty,
			GrossAmount: nonNegative(li.GrossSalesMoney.AmountOrZero()),
		})
	}

	txn := models.Transaction{
		UserID:              userID,
		SquareTransactionID: order.ID,
		Date:                LocalDate(local),
		Hour:                local.Hour(),
		TotalAmount:         nonNegative(order.TotalMoney.AmountOrZero()),
		ItemCount:           itemCount,
	}
	if empID := order.FirstTenderEmployeeID(); empID != "" {
		if id, ok := staff[empID]; ok {
			txn.StaffID = &id
		}
	}
	return txn, items
}

// ParseQuantity takes the integer part of a Square quantity string. Values
// that do not parse or are not positive count as one unit.
func ParseQuantity(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	n := int(math.Trunc(f))
	if n <= 0 {
		return 1
	}
	return n
}

// LocalDate strips the clock from t, keeping its calendar date as UTC midnight.
func LocalDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StaffName joins the given and family names.
func StaffName(tm square.TeamMember) string {
	return strings.TrimSpace(strings.TrimSpace(tm.GivenName) + " " + strings.TrimSpace(tm.FamilyName))
}

func itemName(li square.LineItem) string {
	if name := strings.TrimSpace(li.Name); name != "" {
		return name
	}
	return unknownItemName
}

func itemCategory(li square.LineItem) string {
	if v := strings.TrimSpace(li.VariationName); v != "" {
		return v
	}
	if v := strings.TrimSpace(li.CatalogObjectType); v != "" {
		return v
	}
	return otherCategory
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
