package api

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog    *service.CatalogService
	cart       *service.CartService
	checkout   *service.CheckoutService
	admin      *service.AdminService
	adminToken string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	admin *service.AdminService,
	adminToken string,
) *Handler {
	return &Handler{
		catalog:    catalog,
		cart:       cart,
		checkout:   checkout,
		admin:      admin,
		adminToken: adminToken,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/items", h.listItems)
		v1.GET("/items/:slug", h.getItem)
		v1.GET("/categories", h.listCategories)

		authed := v1.Group("", RequireUser())
		{
			authed.GET("/cart", h.cartSummary)
			authed.POST("/cart/:slug", h.addToCart)
			authed.DELETE("/cart/:slug", h.removeFromCart)
			authed.POST("/cart/:slug/decrement", h.decrementCartItem)
			authed.GET("/checkout", h.checkoutView)
			authed.POST("/checkout", h.submitCheckout)
			authed.GET("/orders", h.orderHistory)
		}
	}

	admin := router.Group("/admin", RequireAdmin(h.adminToken))
	{
		admin.GET("/orders", h.adminListOrders)
		admin.POST("/orders/delivery", h.adminDeliveryCommand)
		admin.POST("/items", h.adminCreateItem)
		admin.PUT("/items/:slug", h.adminUpdateItem)
		admin.POST("/items/:slug/images", h.adminAddItemImage)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listItems handles the storefront listing: ?search= filters titles, ?q=
// filters category names, ?page= selects the page.
func (h *Handler) listItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.catalog.ListItems(c.Request.Context(),
		c.Query("search"), c.Query("q"), page)
	if err != nil {
		respondError(c, err, "/")
		return
	}
	c.JSON(http.StatusOK, result)
}

// getItem handles item detail by slug
func (h *Handler) getItem(c *gin.Context) {
	detail, err := h.catalog.GetItem(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err, "/")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// listCategories handles the category list
func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// cartSummary handles the open-order summary
func (h *Handler) cartSummary(c *gin.Context) {
	view, err := h.cart.CartSummary(c.Request.Context(), UserID(c))
	if err != nil {
		respondError(c, err, "/")
		return
	}
	c.JSON(http.StatusOK, view)
}

// addToCart handles add-to-cart by slug
func (h *Handler) addToCart(c *gin.Context) {
	line, err := h.cart.AddToCart(c.Request.Context(), UserID(c), c.Param("slug"))
	if err != nil {
		respondError(c, err, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notice": "This item was added to your cart.",
		"line":   line,
	})
}

// removeFromCart handles remove-from-cart by slug
func (h *Handler) removeFromCart(c *gin.Context) {
	slug := c.Param("slug")
	if err := h.cart.RemoveFromCart(c.Request.Context(), UserID(c), slug); err != nil {
		respondError(c, err, "/api/v1/items/"+slug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notice": "This item was removed from your cart.",
	})
}

// decrementCartItem handles lowering a line's quantity by one
func (h *Handler) decrementCartItem(c *gin.Context) {
	slug := c.Param("slug")
	line, err := h.cart.DecrementCartItem(c.Request.Context(), UserID(c), slug)
	if err != nil {
		respondError(c, err, "/api/v1/items/"+slug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notice": "This item quantity was updated.",
		"line":   line,
	})
}

// checkoutView handles the checkout form view-model
func (h *Handler) checkoutView(c *gin.Context) {
	vm, err := h.checkout.CheckoutView(c.Request.Context(), UserID(c))
	if err != nil {
		respondError(c, err, "/api/v1/cart")
		return
	}
	c.JSON(http.StatusOK, vm)
}

// submitCheckout handles checkout submission
func (h *Handler) submitCheckout(c *gin.Context) {
	var form service.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), UserID(c), &form)
	if err != nil {
		respondError(c, err, "/api/v1/checkout")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notice":  "Your order was successful!",
		"order":   result.Order,
		"payment": result.Payment,
	})
}

// orderHistory handles the user's placed orders
func (h *Handler) orderHistory(c *gin.Context) {
	orders, err := h.checkout.OrderHistory(c.Request.Context(), UserID(c))
	if err != nil {
		respondError(c, err, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// adminListOrders lists orders with optional ordered/being_delivered/received
// boolean filters.
func (h *Handler) adminListOrders(c *gin.Context) {
	orders, err := h.admin.ListOrders(c.Request.Context(),
		boolQuery(c, "ordered"),
		boolQuery(c, "being_delivered"),
		boolQuery(c, "received"))
	if err != nil {
		respondError(c, err, "/admin/orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type deliveryCommandRequest struct {
	Command  string  `json:"command" binding:"required"`
	OrderIDs []int64 `json:"order_ids" binding:"required,min=1"`
}

// adminDeliveryCommand applies one bulk delivery command
func (h *Handler) adminDeliveryCommand(c *gin.Context) {
	var req deliveryCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.admin.ApplyDeliveryCommand(c.Request.Context(), req.Command, req.OrderIDs)
	if err != nil {
		respondError(c, err, "/admin/orders")
		return
	}
	c.JSON(http.StatusOK, result)
}

type itemRequest struct {
	Title         string           `json:"title" binding:"required"`
	Price         decimal.Decimal  `json:"price" binding:"required"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	CategoryID    *int64           `json:"category_id,omitempty"`
	Description   string           `json:"description"`
}

func (r *itemRequest) apply(item *models.Item) {
	item.Title = r.Title
	item.Price = r.Price
	item.DiscountPrice = decimal.NullDecimal{}
	if r.DiscountPrice != nil {
		item.DiscountPrice = decimal.NullDecimal{Decimal: *r.DiscountPrice, Valid: true}
	}
	item.CategoryID = r.CategoryID
	item.Description = r.Description
}

// adminCreateItem creates a catalog item
func (h *Handler) adminCreateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var item models.Item
	req.apply(&item)
	created, err := h.admin.CreateItem(c.Request.Context(), &item)
	if err != nil {
		respondError(c, err, "/admin/orders")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// adminUpdateItem edits an item located by slug
func (h *Handler) adminUpdateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	item, err := h.admin.UpdateItem(c.Request.Context(), c.Param("slug"), req.apply)
	if err != nil {
		respondError(c, err, "/admin/orders")
		return
	}
	c.JSON(http.StatusOK, item)
}

type itemImageRequest struct {
	URL string `json:"url" binding:"required"`
}

// adminAddItemImage attaches an image to an item
func (h *Handler) adminAddItemImage(c *gin.Context) {
	var req itemImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	image, err := h.admin.AddItemImage(c.Request.Context(), c.Param("slug"), req.URL)
	if err != nil {
		respondError(c, err, "/admin/orders")
		return
	}
	c.JSON(http.StatusCreated, image)
}

func boolQuery(c *gin.Context, name string) *bool {
	val, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
