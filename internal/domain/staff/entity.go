// internal/domain/staff/entity.go
package staff

import (
	"fmt"
	"strings"
	"time"

	"github.com/your-org/fruitbox/internal/pkg/auth"
	"gorm.io/gorm"
)

// Account is an admin or delivery partner login
type Account struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name         string         `gorm:"size:150" json:"name"`
	PasswordHash string         `gorm:"not null;size:255" json:"-"`
	Role         auth.Role      `gorm:"not null;size:20" json:"role"`
	IsActive     bool           `gorm:"default:true" json:"isActive"`
	LastLoginAt  *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Account) TableName() string {
	return "staff_accounts"
}

// BeforeCreate hook lowercases the email
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	return nil
}

// Subject is the token subject for a staff account
func (a *Account) Subject() string {
	return fmt.Sprintf("staff-%d", a.ID)
}
