package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleAdmin       = "admin"
	RoleEditor      = "editor"
	RoleServiceRole = "service_role"
)

type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	ID           string    `bun:"id,pk" json:"id"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	FullName     string    `bun:"full_name" json:"full_name"`
	Role         string    `bun:"role,notnull" json:"role"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	CreatedAt    time.Time `bun:"created_at" json:"created_at"`
}
