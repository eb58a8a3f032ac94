// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/domain/coupon"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/domain/staff"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/producttype"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&product.Product{},
		&coupon.Coupon{},
		&customer.Customer{},
		&staff.Account{},

		&order.Order{},
		&order.OrderItem{},
		&order.Payment{},
		&order.OrderStatusHistory{},

		&subscription.Subscription{},
		&subscription.DeliveryDay{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes gorm tags cannot express
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_active_sort ON products(is_active, type, sort_order)",

		"CREATE INDEX IF NOT EXISTS idx_orders_customer_created ON orders(customer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",

		"CREATE INDEX IF NOT EXISTS idx_payments_order_status ON payments(order_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_subscriptions_customer_status ON subscriptions(customer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_subscription_days_date_status ON subscription_days(date, status)",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("failed to create index")
			failed++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("database indexes ensured")
	return nil
}

// SeedInitialData inserts a starter catalog, coupons and staff logins
func (m *Migration) SeedInitialData() error {
	m.logger.Info("seeding initial data")

	if err := m.seedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	if err := m.seedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}
	if err := m.seedStaff(); err != nil {
		return fmt.Errorf("failed to seed staff: %w", err)
	}

	m.logger.Info("initial data seeded")
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// SeedProducts is the starter catalog. Fruit ids start at 1, bowls at 101 and
// refreshments at 201; packs reuse low ids under their own type.
func SeedProducts() []product.Product {
	return []product.Product{
		{ID: 1, Type: producttype.Fruit, Name: "Alphonso Mango", Price: price("120"), OriginalPrice: pricePtr("150"), Image: "/images/mango.jpg", IsActive: true, SortOrder: 1},
		{ID: 2, Type: producttype.Fruit, Name: "Kiwi (3 pcs)", Price: price("90"), Image: "/images/kiwi.jpg", IsActive: true, SortOrder: 2},
		{ID: 3, Type: producttype.Fruit, Name: "Pomegranate", Price: price("110"), Image: "/images/pomegranate.jpg", IsActive: true, SortOrder: 3},
		{ID: 4, Type: producttype.Fruit, Name: "Dragon Fruit", Price: price("180"), Image: "/images/dragonfruit.jpg", IsActive: true, SortOrder: 4},

		{ID: 1, Type: producttype.Pack, Name: "Morning Fruit Pack", Description: "Seasonal cut fruit delivered every morning for 30 days", Price: price("1499"), OriginalPrice: pricePtr("1799"), IsSubscription: true, IsActive: true, SortOrder: 1},
		{ID: 2, Type: producttype.Pack, Name: "Family Fruit Pack", Description: "Four servings a day for 30 days", Price: price("4999"), IsSubscription: true, IsActive: true, SortOrder: 2},

		{ID: 101, Type: producttype.Bowl, Name: "Tropical Bowl", Price: price("199"), Image: "/images/tropical-bowl.jpg", IsActive: true, SortOrder: 1},
		{ID: 102, Type: producttype.Bowl, Name: "Berry Protein Bowl", Price: price("249"), Image: "/images/berry-bowl.jpg", IsActive: true, SortOrder: 2},

		{ID: 201, Type: producttype.Refreshment, Name: "Watermelon Cooler", Price: price("79"), Image: "/images/watermelon-cooler.jpg", IsActive: true, SortOrder: 1},
		{ID: 202, Type: producttype.Refreshment, Name: "Tender Coconut", Price: price("69"), Image: "/images/coconut.jpg", IsActive: true, SortOrder: 2},
	}
}

func (m *Migration) seedCatalog() error {
	for _, p := range SeedProducts() {
		var existing product.Product
		err := m.db.Where("id = ? AND type = ?", p.ID, p.Type).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := m.db.Create(&p).Error; err != nil {
			return err
		}
		m.logger.WithFields(logrus.Fields{"id": p.ID, "type": p.Type}).Debug("seeded product")
	}
	return nil
}

func (m *Migration) seedCoupons() error {
	coupons := []coupon.Coupon{
		{Code: "SAVE10", Description: "10% off your order", DiscountType: coupon.DiscountPercentage, DiscountValue: price("10"), IsActive: true},
		{Code: "BOWL50", Description: "Rs 50 off bowls", DiscountType: coupon.DiscountFlat, DiscountValue: price("50"), ApplicableProductIDs: []uint{101, 102}, IsActive: true},
		{Code: "PACK20", Description: "20% off packs, up to Rs 500", DiscountType: coupon.DiscountPercentage, DiscountValue: price("20"), MaxDiscountAmount: pricePtr("500"), MinOrderAmount: price("1000"), IsActive: true},
	}

	for _, c := range coupons {
		var count int64
		if err := m.db.Model(&coupon.Coupon{}).Where("code = ?", c.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := m.db.Create(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) seedStaff() error {
	accounts := []struct {
		email    string
		name     string
		password string
		role     auth.Role
	}{
		{"admin@fruitbox.local", "Admin", "admin1234", auth.RoleAdmin},
		{"partner@fruitbox.local", "Delivery Partner", "partner1234", auth.RolePartner},
	}

	for _, a := range accounts {
		var count int64
		if err := m.db.Model(&staff.Account{}).Where("email = ?", a.email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := m.db.Create(&staff.Account{
			Email:        a.email,
			Name:         a.name,
			PasswordHash: string(hash),
			Role:         a.role,
			IsActive:     true,
		}).Error; err != nil {
			return err
		}
		m.logger.WithFields(logrus.Fields{"email": a.email, "role": a.role}).Info("seeded staff account")
	}
	return nil
}

// GetTableInfo logs row counts for every migrated table
func (m *Migration) GetTableInfo() {
	for _, model := range Models() {
		var count int64
		if err := m.db.Model(model).Count(&count).Error; err != nil {
			m.logger.WithError(err).Warnf("failed to count %T", model)
			continue
		}
		m.logger.WithField("rows", count).Debugf("table %T", model)
	}
}
