// internal/domain/customer/entity.go
package customer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a storefront shopper. IDs are issued by the auth provider or
// generated here for guest checkouts.
type Customer struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"not null;size:150" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Phone        string         `gorm:"size:20" json:"phone"`
	AddressLine1 string         `gorm:"size:255" json:"addressLine1"`
	AddressLine2 string         `gorm:"size:255" json:"addressLine2"`
	City         string         `gorm:"size:100" json:"city"`
	State        string         `gorm:"size:100" json:"state"`
	Pincode      string         `gorm:"size:10" json:"pincode"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate assigns an id when the caller did not and lowercases the email
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return nil
}

// Details is the delivery snapshot submitted with an order
type Details struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	AddressLine1 string `json:"addressLine1" binding:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	Pincode      string `json:"pincode" binding:"required"`
}

// Snapshot returns the customer's stored contact details
func (c *Customer) Snapshot() Details {
	return Details{
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		AddressLine1: c.AddressLine1,
		AddressLine2: c.AddressLine2,
		City:         c.City,
		State:        c.State,
		Pincode:      c.Pincode,
	}
}
