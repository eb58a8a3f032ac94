// internal/domain/subscription/service.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/metrics"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrDayNotFound       = errors.New("delivery day not found")
	ErrDayNotDeliverable = errors.New("day is not a delivery day")
	ErrForbidden         = errors.New("only delivery partners and admins can update deliveries")
	ErrInvalidTransition = errors.New("invalid delivery status transition")
)

// Actor identifies who is changing a delivery day
type Actor struct {
	ID   string
	Role auth.Role
}

// Service owns subscription calendars
type Service struct {
	db       *gorm.DB
	config   *config.Config
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	location *time.Location
}

// NewService creates a new subscription service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		logger:   logger,
		metrics:  m,
		location: cfg.DeliveryLocation(),
	}
}

// CreateForOrder creates one subscription per subscription line of a paid
// order. It is idempotent per order item and runs inside the caller's tx.
func (s *Service) CreateForOrder(ctx context.Context, tx *gorm.DB, ord *order.Order, paidAt time.Time) ([]Subscription, error) {
	if tx == nil {
		tx = s.db
	}
	tx = tx.WithContext(ctx)

	start := WindowStart(paidAt, s.location)
	holidays := s.config.HolidaySet()

	var created []Subscription
	for _, item := range ord.Items {
		if !item.IsSubscription {
			continue
		}

		var count int64
		if err := tx.Model(&Subscription{}).Where("order_item_id = ?", item.ID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check subscription: %w", err)
		}
		if count > 0 {
			continue
		}

		days := Generate(start, s.config.Subscription.Days, holidays)
		if len(days) == 0 {
			return nil, fmt.Errorf("subscription window is empty")
		}
		deliverable := 0
		for _, d := range days {
			if d.Deliverable() {
				deliverable++
			}
		}

		sub := Subscription{
			OrderID:     ord.ID,
			OrderItemID: item.ID,
			CustomerID:  ord.CustomerID,
			ProductID:   item.ProductID,
			ProductType: item.ProductType,
			PackName:    item.Name,
			StartDate:   days[0].Date,
			EndDate:     days[len(days)-1].Date,
			TotalDays:   deliverable,
			Status:      StatusActive,
			Days:        days,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"subscription_id": sub.ID,
			"order_id":        ord.ID,
			"start":           sub.StartDate,
			"deliveries":      deliverable,
		}).Info("subscription scheduled")
		created = append(created, sub)
	}
	return created, nil
}

// Calendar returns a subscription with its days in date order
func (s *Service) Calendar(ctx context.Context, id uint) (*Subscription, error) {
	var sub Subscription
	err := s.db.WithContext(ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC")
		}).
		Where("id = ?", id).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// ListForCustomer returns a customer's subscriptions, newest first
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]Subscription, error) {
	var subs []Subscription
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Delivery is one stop on a partner's route for a given date
type Delivery struct {
	SubscriptionID uint      `json:"subscriptionId"`
	CustomerID     uuid.UUID `json:"customerId"`
	PackName       string    `json:"packName"`
	Date           string    `json:"date"`
	DayNumber      int       `json:"dayNumber"`
	Status         DayStatus `json:"status"`
}

// DeliveriesOn lists the deliverable days scheduled for date across active subscriptions
func (s *Service) DeliveriesOn(ctx context.Context, date string) ([]Delivery, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q", date)
	}

	var out []Delivery
	err := s.db.WithContext(ctx).
		Table("subscription_days AS d").
		Select("d.subscription_id, s.customer_id, s.pack_name, d.date, d.day_number, d.status").
		Joins("JOIN subscriptions AS s ON s.id = d.subscription_id AND s.deleted_at IS NULL").
		Where("d.date = ? AND d.status <> ? AND s.status = ?", date, DayNA, StatusActive).
		Order("d.subscription_id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	return out, nil
}

// UpdateStatus moves one delivery day forward. NA days never change.
func (s *Service) UpdateStatus(ctx context.Context, subID uint, date string, status DayStatus, actor Actor) (*DeliveryDay, error) {
	if actor.Role != auth.RolePartner && actor.Role != auth.RoleAdmin {
		return nil, ErrForbidden
	}
	if status != DayOutForDelivery && status != DayDelivered {
		return nil, ErrInvalidTransition
	}

	var day DeliveryDay
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub Subscription
		if err := tx.Where("id = ?", subID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		if err := tx.Where("subscription_id = ? AND date = ?", subID, date).First(&day).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDayNotFound
			}
			return fmt.Errorf("failed to load delivery day: %w", err)
		}

		if !day.Deliverable() {
			return ErrDayNotDeliverable
		}
		if !canTransition(day.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, day.Status, status)
		}

		updates := map[string]interface{}{
			"status":     status,
			"updated_by": actor.ID,
		}
		if status == DayDelivered {
			updates["delivered_at"] = time.Now().UTC()
		}
		if err := tx.Model(&day).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update delivery day: %w", err)
		}

		if status == DayDelivered {
			return s.completeIfDone(tx, &sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DeliveryMarked(string(status))
	s.logger.WithFields(logrus.Fields{
		"subscription_id": subID,
		"date":            date,
		"status":          status,
		"actor":           actor.ID,
	}).Info("delivery day updated")

	if err := s.db.WithContext(ctx).First(&day, day.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload delivery day: %w", err)
	}
	return &day, nil
}

func (s *Service) completeIfDone(tx *gorm.DB, sub *Subscription) error {
	var remaining int64
	err := tx.Model(&DeliveryDay{}).
		Where("subscription_id = ? AND status IN ?", sub.ID, []DayStatus{DayPending, DayOutForDelivery}).
		Count(&remaining).Error
	if err != nil {
		return fmt.Errorf("failed to count remaining deliveries: %w", err)
	}
	if remaining > 0 {
		return nil
	}
	return tx.Model(sub).Update("status", StatusCompleted).Error
}
