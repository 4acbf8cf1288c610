package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"        json:"username"`
	Email        *string   `gorm:"uniqueIndex"                 json:"email,omitempty"`
	Name         string    `gorm:"not null;default:''"         json:"name"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Role         string    `gorm:"not null;default:'user'"     json:"role"`
	IsActive     bool      `gorm:"not null;default:true"       json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
