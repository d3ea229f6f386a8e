package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/dbtest"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/enums"
	pkgerrors "github.com/tavernbuddy/tavernbuddy-backend/pkg/errors"
)

func statusPtr(s enums.SubscriptionStatus) *enums.SubscriptionStatus { return &s }

func strPtr(s string) *string { return &s }

func TestCreateAndFind(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	u := &models.User{Email: "  Owner@Bar.com "}
	require.NoError(t, r.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, enums.PlanNone, u.Plan)

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@bar.com", got.Email)

	_, err = r.FindByID(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListReportable(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seed := []*models.User{
		{Email: "active@x.com", Plan: enums.PlanPro, SubscriptionStatus: statusPtr(enums.SubscriptionStatusActive), CreatedAt: base},
		{Email: "trial@x.com", Plan: enums.PlanStarter, SubscriptionStatus: statusPtr(enums.SubscriptionStatusTrialing), CreatedAt: base.Add(time.Hour)},
		{Email: "canceled@x.com", Plan: enums.PlanPro, SubscriptionStatus: statusPtr(enums.SubscriptionStatusCanceled), CreatedAt: base},
		{Email: "noplan@x.com", Plan: enums.PlanNone, SubscriptionStatus: statusPtr(enums.SubscriptionStatusActive), CreatedAt: base},
		{Email: "nostatus@x.com", Plan: enums.PlanPro, CreatedAt: base},
	}
	for _, u := range seed {
		require.NoError(t, r.Create(ctx, u))
	}

	got, err := r.ListReportable(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "active@x.com", got[0].Email)
	assert.Equal(t, "trial@x.com", got[1].Email)
}

func TestSetSquareConnectedWithTx(t *testing.T) {
	db := dbtest.Open(t)
	r := NewRepository(db)
	ctx := context.Background()

	u := &models.User{Email: "a@x.com"}
	require.NoError(t, r.Create(ctx, u))
	require.NoError(t, r.SetSquareConnectedWithTx(db, u.ID, true))

	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.SquareConnected)

	err = r.SetSquareConnectedWithTx(db, uuid.New(), true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfile(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	name := "The Rusty Tap"
	u := &models.User{Email: "a@x.com", BarName: &name}
	require.NoError(t, r.Create(ctx, u))

	got, err := r.UpdateProfile(ctx, u.ID, ProfileUpdate{
		Location: strPtr(" Austin, TX "),
		Timezone: strPtr("America/Chicago"),
	})
	require.NoError(t, err)
	require.NotNil(t, got.BarName)
	assert.Equal(t, "The Rusty Tap", *got.BarName)
	require.NotNil(t, got.BarLocation)
	assert.Equal(t, "Austin, TX", *got.BarLocation)
	assert.Equal(t, "America/Chicago", got.Location().String())

	got, err = r.UpdateProfile(ctx, u.ID, ProfileUpdate{BarName: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, got.BarName)
	assert.Equal(t, "Your Bar", got.DisplayBarName())
	require.NotNil(t, got.Timezone)
	assert.Equal(t, "America/Chicago", *got.Timezone)
}

func TestUpdateProfileRejectsBadInput(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	u := &models.User{Email: "a@x.com"}
	require.NoError(t, r.Create(ctx, u))

	for _, tz := range []string{"Mars/Olympus", "Local", "local"} {
		_, err := r.UpdateProfile(ctx, u.ID, ProfileUpdate{Timezone: strPtr(tz)})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), tz)
	}
	got, err := r.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Timezone)

	_, err = r.UpdateProfile(ctx, uuid.New(), ProfileUpdate{BarName: strPtr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindByIDs(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	a := &models.User{Email: "a@x.com"}
	b := &models.User{Email: "b@x.com"}
	require.NoError(t, r.Create(ctx, a))
	require.NoError(t, r.Create(ctx, b))

	got, err := r.FindByIDs(ctx, []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a@x.com", got[a.ID].Email)

	empty, err := r.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
