package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/dbtest"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

func newTestService(t *testing.T, s store) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: s, Logger: logger.Nop()})
	require.NoError(t, err)
	return svc
}

func sampleOrders() []square.Order {
	at := time.Date(2025, 3, 2, 20, 0, 0, 0, time.UTC)
	return []square.Order{
		{ID: "A", CreatedAt: at, TotalMoney: money(1000), Tenders: []square.Tender{{EmployeeID: "E1"}},
			LineItems: []square.LineItem{{Name: "IPA", Quantity: "2", GrossSalesMoney: money(1000)}}},
		{ID: "B", CreatedAt: at.Add(time.Hour), TotalMoney: money(2500),
			LineItems: []square.LineItem{{Name: "Burger", Quantity: "1", GrossSalesMoney: money(2500)}}},
	}
}

func countRows(t *testing.T, db *gorm.DB, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestIngestIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	svc := newTestService(t, NewStore(db))
	user := models.User{ID: uuid.New()}
	members := []square.TeamMember{{ID: "E1", GivenName: "Sam", FamilyName: "Lee"}}
	ctx := context.Background()

	first, err := svc.Ingest(ctx, user, sampleOrders(), members)
	require.NoError(t, err)
	assert.Equal(t, Result{Staff: 1, Processed: 2}, first)

	// rerun with a renamed employee and a changed total
	members[0].GivenName = "Samuel"
	orders := sampleOrders()
	orders[1].TotalMoney = money(2600)
	_, err = svc.Ingest(ctx, user, orders, members)
	require.NoError(t, err)

	assert.EqualValues(t, 1, countRows(t, db, &models.StaffMember{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.Transaction{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.TransactionItem{}))

	var staff models.StaffMember
	require.NoError(t, db.First(&staff).Error)
	assert.Equal(t, "Samuel Lee", staff.Name)

	var b models.Transaction
	require.NoError(t, db.Where("square_transaction_id = ?", "B").First(&b).Error)
	assert.EqualValues(t, 2600, b.TotalAmount)

	var a models.Transaction
	require.NoError(t, db.Where("square_transaction_id = ?", "A").First(&a).Error)
	require.NotNil(t, a.StaffID)
	assert.Equal(t, staff.ID, *a.StaffID)
}

func TestIngestSameNameLineItemsOverwrite(t *testing.T) {
	db := dbtest.Open(t)
	svc := newTestService(t, NewStore(db))
	user := models.User{ID: uuid.New()}

	order := square.Order{
		ID: "DUP", CreatedAt: time.Date(2025, 3, 2, 20, 0, 0, 0, time.UTC), TotalMoney: money(1800),
		LineItems: []square.LineItem{
			{Name: "IPA", Quantity: "2", VariationName: "Pint", GrossSalesMoney: money(1400)},
			{Name: "IPA", Quantity: "1", VariationName: "Half", GrossSalesMoney: money(400)},
		},
	}
	_, err := svc.Ingest(context.Background(), user, []square.Order{order}, nil)
	require.NoError(t, err)

	var items []models.TransactionItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1, "same-name line items collapse to one row")
	assert.Equal(t, 1, items[0].Quantity, "last item wins; quantities are not summed")
	assert.EqualValues(t, 400, items[0].GrossAmount)
	assert.Equal(t, "Half", items[0].Category)

	var txn models.Transaction
	require.NoError(t, db.First(&txn).Error)
	assert.Equal(t, 3, txn.ItemCount, "item_count still counts every line item")
}

func TestIngestResolvesStaffPerUserOnly(t *testing.T) {
	db := dbtest.Open(t)
	svc := newTestService(t, NewStore(db))
	ctx := context.Background()
	owner := models.User{ID: uuid.New()}
	other := models.User{ID: uuid.New()}

	_, err := svc.Ingest(ctx, other, nil, []square.TeamMember{{ID: "E1", GivenName: "Other"}})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, owner, sampleOrders()[:1], nil)
	require.NoError(t, err)

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&txn).Error)
	assert.Nil(t, txn.StaffID)
	assert.EqualValues(t, 0, countRows(t, db, &models.Transaction{}, "user_id = ?", other.ID))
}

type flakyStore struct {
	*Store
	failOrder string
}

func (f flakyStore) UpsertTransaction(ctx context.Context, txn models.Transaction, items []models.TransactionItem) (uuid.UUID, error) {
	if txn.SquareTransactionID == f.failOrder {
		return uuid.Nil, errors.New("constraint violated")
	}
	return f.Store.UpsertTransaction(ctx, txn, items)
}

func TestIngestCollectsPerOrderFailures(t *testing.T) {
	db := dbtest.Open(t)
	svc := newTestService(t, flakyStore{Store: NewStore(db), failOrder: "A"})

	orders := append(sampleOrders(), square.Order{CreatedAt: time.Now()})
	res, err := svc.Ingest(context.Background(), models.User{ID: uuid.New()}, orders, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Failed)
	require.Error(t, res.Err)
	assert.Len(t, multierr.Errors(res.Err), 2)
	assert.Contains(t, res.Err.Error(), "order A")
	assert.EqualValues(t, 1, countRows(t, db, &models.Transaction{}))
}
