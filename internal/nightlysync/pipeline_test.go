package nightlysync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tavernbuddy/tavernbuddy-backend/internal/ingest"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/tokens"
	"github.com/tavernbuddy/tavernbuddy-backend/internal/users"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/config"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/dbtest"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/square"
)

// squareStub answers like Square for three merchants. Every merchant sells
// orders with the same ids; refreshing "refresh-2" is rejected.
func squareStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth2/token":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "refresh-2", body["refresh_token"])
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED","detail":"refresh token revoked"}]}`))
		case "/v2/team-members/search":
			_, _ = w.Write([]byte(`{"team_members":[{"id":"E1","given_name":"Sam","family_name":"Barker"}]}`))
		case "/v2/orders/search":
			assert.NotEqual(t, "Bearer access-2", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"orders":[
				{"id":"ord-1","location_id":"L","created_at":"2025-03-02T19:00:00Z","total_money":{"amount":1800,"currency":"USD"},
				 "line_items":[{"name":"IPA","quantity":"2","gross_sales_money":{"amount":1800,"currency":"USD"}}],
				 "tenders":[{"id":"t1","type":"CARD","employee_id":"E1"}]},
				{"id":"ord-2","location_id":"L","created_at":"2025-03-02T22:30:00Z","total_money":{"amount":900,"currency":"USD"},
				 "line_items":[{"name":"Fries","quantity":"1","gross_sales_money":{"amount":900,"currency":"USD"}}]}
			]}`))
		default:
			t.Errorf("unexpected square call %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestRunNightlySyncPersistsHealthyAccountsWhenOneRefreshFails(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	srv := squareStub(t)
	defer srv.Close()

	sq, err := square.NewClient(ctx, config.SquareConfig{
		ApplicationID:     "sq0idp-test",
		ApplicationSecret: "secret",
		BaseURL:           srv.URL,
	}, logger.Nop())
	require.NoError(t, err)

	userRepo := users.NewRepository(db)
	connRepo := tokens.NewRepository(db, nil)
	owners := make([]models.User, 3)
	for i := range owners {
		n := i + 1
		active := enums.SubscriptionStatusActive
		owners[i] = models.User{Email: fmt.Sprintf("owner%d@bar.test", n), SubscriptionStatus: &active}
		require.NoError(t, userRepo.Create(ctx, &owners[i]))

		location := fmt.Sprintf("L-%d", n)
		expires := time.Now().Add(24 * time.Hour)
		if n == 2 {
			expires = time.Now().Add(-time.Hour)
		}
		require.NoError(t, connRepo.UpsertWithTx(db, &models.SquareConnection{
			UserID:       owners[i].ID,
			AccessToken:  fmt.Sprintf("access-%d", n),
			RefreshToken: fmt.Sprintf("refresh-%d", n),
			MerchantID:   fmt.Sprintf("M-%d", n),
			LocationID:   &location,
			ExpiresAt:    expires,
		}))
	}

	manager, err := tokens.NewManager(tokens.ManagerParams{Connections: connRepo, Refresher: sq, Logger: logger.Nop()})
	require.NoError(t, err)
	ing, err := ingest.NewService(ingest.ServiceParams{Store: ingest.NewStore(db), Logger: logger.Nop()})
	require.NoError(t, err)
	svc := newTestService(t, ServiceParams{
		Connections: connRepo,
		Users:       userRepo,
		Tokens:      manager,
		Fetcher:     sq,
		Ingester:    ing,
	})

	// a rerun must not duplicate rows
	for run := 1; run <= 2; run++ {
		summary := svc.RunNightlySync(ctx)
		assert.Equal(t, Summary{Succeeded: 2, Failed: 1, Total: 3}, summary, "run %d", run)
	}

	assert.EqualValues(t, 2, countTransactions(t, db, owners[0]))
	assert.EqualValues(t, 0, countTransactions(t, db, owners[1]))
	assert.EqualValues(t, 2, countTransactions(t, db, owners[2]))

	for _, owner := range []models.User{owners[0], owners[2]} {
		var txn models.Transaction
		require.NoError(t, db.Where("user_id = ? AND square_transaction_id = ?", owner.ID, "ord-1").First(&txn).Error)
		assert.EqualValues(t, 1800, txn.TotalAmount)
		assert.Equal(t, 2, txn.ItemCount)
		require.NotNil(t, txn.StaffID)

		var staff models.StaffMember
		require.NoError(t, db.Where("id = ?", *txn.StaffID).First(&staff).Error)
		assert.Equal(t, owner.ID, staff.UserID)
		assert.Equal(t, "Sam Barker", staff.Name)
	}

	// the failed refresh leaves the stored grant untouched
	conn, err := connRepo.FindByUserID(ctx, owners[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", conn.AccessToken)
	assert.Equal(t, "refresh-2", conn.RefreshToken)
}

func countTransactions(t *testing.T, db *gorm.DB, owner models.User) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", owner.ID).Count(&n).Error)
	return n
}
