// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fruitbox/internal/config"
	"github.com/your-org/fruitbox/internal/domain/analytics"
	"github.com/your-org/fruitbox/internal/domain/coupon"
	"github.com/your-org/fruitbox/internal/domain/customer"
	"github.com/your-org/fruitbox/internal/domain/order"
	"github.com/your-org/fruitbox/internal/domain/payment"
	"github.com/your-org/fruitbox/internal/domain/product"
	"github.com/your-org/fruitbox/internal/domain/staff"
	"github.com/your-org/fruitbox/internal/domain/subscription"
	"github.com/your-org/fruitbox/internal/interfaces/http/handlers"
	"github.com/your-org/fruitbox/internal/interfaces/http/middleware"
	"github.com/your-org/fruitbox/internal/pkg/auth"
	"github.com/your-org/fruitbox/internal/pkg/email"
	"github.com/your-org/fruitbox/internal/pkg/metrics"
	"github.com/your-org/fruitbox/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Services wires every domain service the API exposes
type Services struct {
	Products      *product.Service
	Coupons       *coupon.Service
	Customers     *customer.Service
	Orders        *order.Service
	Payments      *payment.Service
	Subscriptions *subscription.Service
	Staff         *staff.Service
	Invoices      *pdf.Service
	Analytics     *analytics.Service
}

// NewServices builds the domain services on top of one database and Razorpay client
func NewServices(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) *Services {
	products := product.NewService(db, redisClient, cfg, logger)
	coupons := coupon.NewService(db, products, logger)
	razorpay := payment.NewRazorpayService(cfg, logger)
	subscriptions := subscription.NewService(db, cfg, logger, m)
	mailer := email.NewService(cfg, logger)

	return &Services{
		Products:      products,
		Coupons:       coupons,
		Customers:     customer.NewService(db, logger),
		Orders:        order.NewService(db, products, coupons, razorpay, cfg, logger, m).WithNotifier(mailer),
		Payments:      payment.NewService(db, razorpay, coupons, subscriptions, logger, m).WithNotifier(mailer),
		Subscriptions: subscriptions,
		Staff:         staff.NewService(db, cfg, logger),
		Invoices:      pdf.NewService(cfg),
		Analytics:     analytics.NewService(db, cfg),
	}
}

// SetupRoutes registers every API route on rg
func SetupRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) {
	SetupCatalogRoutes(rg, svc, logger, m)
	SetupOrderRoutes(rg, svc, cfg, logger)
	SetupPaymentRoutes(rg, svc, logger)
	SetupCustomerRoutes(rg, svc, cfg, logger)
	SetupStaffRoutes(rg, svc, logger)
	SetupPartnerRoutes(rg, svc, cfg, logger)
	SetupAdminRoutes(rg, svc, cfg, logger, m)
}

// SetupCatalogRoutes sets up the public product and coupon routes
func SetupCatalogRoutes(rg *gin.RouterGroup, svc *Services, logger *logrus.Logger, m *metrics.Metrics) {
	productHandler := handlers.NewProductHandler(svc.Products, logger)
	couponHandler := handlers.NewCouponHandler(svc.Coupons, logger, m)

	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:type/:id", productHandler.GetProduct)
	}

	rg.POST("/coupon/validate", couponHandler.ValidateCoupon)
}

// SetupOrderRoutes sets up order routes; all require a token
func SetupOrderRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	orderHandler := handlers.NewOrderHandler(svc.Orders, logger)
	invoiceHandler := handlers.NewInvoiceHandler(svc.Orders, svc.Invoices, logger)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("/create-secure", orderHandler.CreateSecureOrder)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/invoice", invoiceHandler.GetInvoice)
	}
}

// SetupPaymentRoutes sets up checkout verification and gateway webhooks
func SetupPaymentRoutes(rg *gin.RouterGroup, svc *Services, logger *logrus.Logger) {
	paymentHandler := handlers.NewPaymentHandler(svc.Payments, logger)

	// the signature is the credential on both routes
	rg.POST("/payment/verify-secure", paymentHandler.VerifySecure)
	rg.POST("/webhooks/razorpay", paymentHandler.RazorpayWebhook)
}

// SetupCustomerRoutes sets up customer profile, order history and calendar routes
func SetupCustomerRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	customerHandler := handlers.NewCustomerHandler(svc.Customers, logger)
	orderHandler := handlers.NewOrderHandler(svc.Orders, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(svc.Subscriptions, cfg.DeliveryLocation(), logger)

	customers := rg.Group("/customers")
	customers.Use(middleware.AuthMiddleware(cfg))
	{
		customers.POST("", customerHandler.CreateCustomer)
		customers.GET("/:id", customerHandler.GetCustomer)
		customers.PUT("/:id", customerHandler.UpdateCustomer)
		customers.DELETE("/:id", customerHandler.DeleteCustomer)
		customers.GET("/:id/orders", orderHandler.GetCustomerOrders)
		customers.GET("/:id/subscriptions", subscriptionHandler.GetCustomerSubscriptions)
	}

	subscriptions := rg.Group("/subscriptions")
	subscriptions.Use(middleware.AuthMiddleware(cfg))
	{
		subscriptions.GET("/:id/calendar", subscriptionHandler.GetCalendar)
	}
}

// SetupStaffRoutes sets up staff authentication
func SetupStaffRoutes(rg *gin.RouterGroup, svc *Services, logger *logrus.Logger) {
	staffHandler := handlers.NewStaffHandler(svc.Staff, logger)
	rg.POST("/auth/staff/login", staffHandler.Login)
}

// SetupPartnerRoutes sets up the delivery-partner console routes
func SetupPartnerRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger) {
	subscriptionHandler := handlers.NewSubscriptionHandler(svc.Subscriptions, cfg.DeliveryLocation(), logger)

	partner := rg.Group("/partner")
	partner.Use(middleware.AuthMiddleware(cfg))
	partner.Use(middleware.RequireRole(auth.RolePartner, auth.RoleAdmin))
	{
		partner.GET("/deliveries", subscriptionHandler.GetDeliveries)
		partner.PATCH("/subscriptions/:id/days/:date", subscriptionHandler.UpdateDay)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, svc *Services, cfg *config.Config, logger *logrus.Logger, m *metrics.Metrics) {
	productHandler := handlers.NewProductHandler(svc.Products, logger)
	couponHandler := handlers.NewCouponHandler(svc.Coupons, logger, m)
	orderHandler := handlers.NewOrderHandler(svc.Orders, logger)
	staffHandler := handlers.NewStaffHandler(svc.Staff, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics, logger)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	{
		products := admin.Group("/products")
		{
			products.POST("", productHandler.CreateProduct)
			products.PUT("/:type/:id", productHandler.UpdateProduct)
		}

		coupons := admin.Group("/coupons")
		{
			coupons.GET("", couponHandler.ListCoupons)
			coupons.POST("", couponHandler.CreateCoupon)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", orderHandler.ListOrders)
			orders.PATCH("/:id/status", orderHandler.UpdateOrderStatus)
		}

		accounts := admin.Group("/staff")
		{
			accounts.GET("", staffHandler.ListStaff)
			accounts.POST("", staffHandler.CreateStaff)
		}

		reports := admin.Group("/analytics")
		{
			reports.GET("/dashboard", analyticsHandler.GetDashboard)
			reports.GET("/sales", analyticsHandler.GetSalesReport)
		}
	}
}
