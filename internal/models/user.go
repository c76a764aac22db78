package models

import (
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleRoot  Role = "root"
)

type User struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FirstName string              `bson:"first_name" json:"first_name" validate:"required"`
	LastName  string              `bson:"last_name" json:"last_name" validate:"required"`
	Email     string              `bson:"email" json:"email" validate:"required,email"`
	Password  string              `bson:"password" json:"-" validate:"required"`
	Role      Role                `bson:"role" json:"role" validate:"oneof=user admin root"`
	Plan      *primitive.ObjectID `bson:"plan,omitempty" json:"plan,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

func (User) CollectionName() db.CollectionName { return db.Users }

func (u *User) BeforeCreate(now time.Time) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now
}

// RootClaimID is the fixed id of the bootstrap document whose insertion
// decides which registration becomes the root account.
const RootClaimID = "root_account"

// BootstrapClaim is a one-shot marker; the unique _id makes inserting it a
// compare-and-swap.
type BootstrapClaim struct {
	ID        string    `bson:"_id" json:"id" validate:"required"`
	ClaimedAt time.Time `bson:"claimed_at" json:"claimed_at"`
}

func (BootstrapClaim) CollectionName() db.CollectionName { return db.Bootstrap }

func (b *BootstrapClaim) BeforeCreate(now time.Time) {
	b.ClaimedAt = now
}
