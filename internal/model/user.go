package model

import (
	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	FamilyID uuid.UUID `json:"family_id" db:"family_id"`
	Name     string    `json:"name" db:"name"`
	Email    string    `json:"email" db:"email"`
}

// Scope identifies whose data an operation sees. Accounts, templates, debts and
// projections are shared by the family; UserID is the acting member.
type Scope struct {
	UserID   uuid.UUID
	FamilyID uuid.UUID
}
