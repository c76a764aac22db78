package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// PricingService serves the plan catalogue and the per-user storage
// allocations that reference it.
type PricingService struct {
	plans       *db.Repository[models.PricingPlan]
	storage     *db.Repository[models.StorageAllocation]
	users       *db.Repository[models.User]
	defaultPlan string
	now         func() time.Time
}

func NewPricingService(
	plans *db.Repository[models.PricingPlan],
	storage *db.Repository[models.StorageAllocation],
	users *db.Repository[models.User],
	defaultPlan string,
) *PricingService {
	return &PricingService{plans: plans, storage: storage, users: users, defaultPlan: defaultPlan, now: time.Now}
}

// Seed inserts plans when the catalogue is empty and returns how many were
// written.
func (s *PricingService) Seed(ctx context.Context, plans []models.PricingPlan) (int, error) {
	count := s.plans.Count(ctx, bson.M{})
	if !count.OK() {
		return 0, fmt.Errorf("failed to count pricing plans: %w", count.Err())
	}
	if count.Data > 0 {
		return 0, nil
	}

	seeded := 0
	for _, plan := range plans {
		res := s.plans.Create(ctx, &plan)
		switch res.Status {
		case http.StatusOK:
			seeded++
		case http.StatusConflict:
			// seeded concurrently by another instance
		default:
			return seeded, fmt.Errorf("failed to seed plan %q: %w", plan.Name, res.Err())
		}
	}
	return seeded, nil
}

// List returns the whole catalogue sorted by price.
func (s *PricingService) List(ctx context.Context) db.Result[[]models.PricingPlan] {
	res := s.plans.FindMany(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "value", Value: 1}}))
	if res.Status == http.StatusNotFound {
		return db.OK([]models.PricingPlan{})
	}
	return res
}

// Allocation returns the storage allocation of user.
func (s *PricingService) Allocation(ctx context.Context, user primitive.ObjectID) db.Result[*models.StorageAllocation] {
	return s.storage.FindOne(ctx, bson.M{"user": user})
}

// Provision gives a new user an allocation on the default plan. Failures
// are logged; registration does not depend on them.
func (s *PricingService) Provision(ctx context.Context, user *models.User) {
	plan := s.plans.FindOne(ctx, bson.M{"name": s.defaultPlan})
	if !plan.OK() {
		zap.L().Warn("Default plan unavailable, skipping storage allocation",
			zap.String("plan", s.defaultPlan),
			zap.Int("status", plan.Status),
		)
		return
	}

	res := s.assign(ctx, user.ID, plan.Data)
	if !res.OK() {
		zap.L().Warn("Failed to provision storage", zap.String("user", user.ID.Hex()), zap.Int("status", res.Status))
		return
	}
	user.Plan = &plan.Data.ID
}

// ChangePlan moves user to plan and returns the updated allocation.
func (s *PricingService) ChangePlan(ctx context.Context, user, plan primitive.ObjectID) db.Result[*models.StorageAllocation] {
	found := s.plans.FindOne(ctx, bson.M{"_id": plan})
	if !found.OK() {
		return db.Convert[*models.StorageAllocation](found)
	}

	if res := s.assign(ctx, user, found.Data); !res.OK() {
		return db.Convert[*models.StorageAllocation](res)
	}
	return s.Allocation(ctx, user)
}

func (s *PricingService) assign(ctx context.Context, user primitive.ObjectID, plan *models.PricingPlan) db.Result[*db.UpdateResult] {
	alloc := s.storage.Upsert(ctx, bson.M{"user": user}, bson.M{
		"$set": bson.M{
			"max_size": plan.Storage,
			"instance": plan.ID,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"used_size":  int64(0),
			"created_at": s.now(),
		},
	})
	if !alloc.OK() {
		return alloc
	}
	return s.users.UpdateOne(ctx, bson.M{"_id": user}, bson.M{"plan": plan.ID})
}

// AdjustUsage adds delta bytes to the used size of user. A user without an
// allocation is left alone.
func (s *PricingService) AdjustUsage(ctx context.Context, user primitive.ObjectID, delta int64) {
	if delta == 0 {
		return
	}
	res := s.storage.UpdateOne(ctx, bson.M{"user": user}, bson.M{"$inc": bson.M{"used_size": delta}})
	if !res.OK() && res.Status != http.StatusNotFound {
		zap.L().Warn("Failed to update storage usage", zap.String("user", user.Hex()), zap.Int("status", res.Status))
	}
}
