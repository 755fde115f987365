package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a registered principal. PasswordHash is the bcrypt hash and never
// leaves the process.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	FullName     string    `bun:"full_name" json:"fullName"`
	Role         string    `bun:"role,notnull" json:"role"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
