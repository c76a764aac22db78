package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services/servicestest"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSeedOnlyFillsEmptyCatalogue(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t, servicestest.WithoutPlans())

	n, err := s.Pricing.Seed(ctx, models.DefaultPlans)
	require.NoError(t, err)
	require.Equal(t, len(models.DefaultPlans), n)

	n, err = s.Pricing.Seed(ctx, models.DefaultPlans)
	require.NoError(t, err)
	require.Zero(t, n)

	plans := s.Pricing.List(ctx)
	require.True(t, plans.OK())
	require.Len(t, plans.Data, len(models.DefaultPlans))
	require.Equal(t, "free", plans.Data[0].Name)
}

func TestListEmptyCatalogue(t *testing.T) {
	s := servicestest.New(t, servicestest.WithoutPlans())

	plans := s.Pricing.List(context.Background())
	require.Equal(t, http.StatusOK, plans.Status)
	require.Empty(t, plans.Data)
}

func TestRegisterProvisionsDefaultPlan(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")
	require.NotNil(t, alice.Plan)

	alloc := s.Pricing.Allocation(ctx, alice.ID)
	require.True(t, alloc.OK())
	require.Equal(t, 5*models.GiB, alloc.Data.MaxSize)
	require.Zero(t, alloc.Data.UsedSize)
	require.Equal(t, *alice.Plan, alloc.Data.Instance)
}

func TestRegisterWithoutPlansSkipsAllocation(t *testing.T) {
	s := servicestest.New(t, servicestest.WithoutPlans())
	alice, _ := s.Register(t, "alice@example.com")
	require.Nil(t, alice.Plan)

	alloc := s.Pricing.Allocation(context.Background(), alice.ID)
	require.Equal(t, http.StatusNotFound, alloc.Status)
}

func TestChangePlanKeepsUsage(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")
	upload(t, s, alice.ID, "a.txt", "abcd")

	plans := s.Pricing.List(ctx)
	require.True(t, plans.OK())
	var pro models.PricingPlan
	for _, p := range plans.Data {
		if p.Name == "pro" {
			pro = p
		}
	}
	require.False(t, pro.ID.IsZero())

	alloc := s.Pricing.ChangePlan(ctx, alice.ID, pro.ID)
	require.True(t, alloc.OK(), alloc.Message)
	require.Equal(t, 100*models.GiB, alloc.Data.MaxSize)
	require.EqualValues(t, 4, alloc.Data.UsedSize)
	require.Equal(t, pro.ID, alloc.Data.Instance)

	user := s.Users.FindOne(ctx, bson.M{"_id": alice.ID})
	require.True(t, user.OK())
	require.Equal(t, pro.ID, *user.Data.Plan)
}

func TestChangePlanUnknownPlan(t *testing.T) {
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")

	alloc := s.Pricing.ChangePlan(context.Background(), alice.ID, primitive.NewObjectID())
	require.Equal(t, http.StatusNotFound, alloc.Status)
}
