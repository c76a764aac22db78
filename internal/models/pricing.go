package models

import (
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	GiB int64 = 1 << 30
	TiB int64 = 1 << 40
)

type PricingPlan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Value       float64            `bson:"value" json:"value" validate:"gte=0"`
	Description string             `bson:"description" json:"description" validate:"required"`
	Storage     int64              `bson:"storage" json:"storage" validate:"gt=0"`
	Features    []string           `bson:"features" json:"features"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

func (PricingPlan) CollectionName() db.CollectionName { return db.Pricing }

func (p *PricingPlan) BeforeCreate(now time.Time) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = now
}

// DefaultPlans is the reference data seeded into an empty pricing collection.
var DefaultPlans = []PricingPlan{
	{
		Name:        "free",
		Value:       0,
		Description: "Personal storage to get started",
		Storage:     5 * GiB,
		Features:    []string{"5 GB storage", "Share links"},
	},
	{
		Name:        "pro",
		Value:       4.99,
		Description: "More room for power users",
		Storage:     100 * GiB,
		Features:    []string{"100 GB storage", "Share links", "Sharing with other users"},
	},
	{
		Name:        "business",
		Value:       19.99,
		Description: "Storage for teams",
		Storage:     1 * TiB,
		Features:    []string{"1 TB storage", "Share links", "Sharing with other users", "Admin accounts"},
	},
}

// StorageAllocation tracks a user's quota. UsedSize is not capped by MaxSize.
type StorageAllocation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	MaxSize   int64              `bson:"max_size" json:"max_size" validate:"gte=0"`
	UsedSize  int64              `bson:"used_size" json:"used_size" validate:"gte=0"`
	Instance  primitive.ObjectID `bson:"instance" json:"instance" validate:"required"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (StorageAllocation) CollectionName() db.CollectionName { return db.Storage }

func (s *StorageAllocation) BeforeCreate(now time.Time) {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	s.CreatedAt = now
}
