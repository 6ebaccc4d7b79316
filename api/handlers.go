package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"gofalre.io/storefront"
	"gofalre.io/storefront/auth"
	"gofalre.io/storefront/checkout"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/product"
)

type credentialsRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	BusinessName string `json:"business_name"`
}

func (s *Server) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, token, err := s.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.BusinessName)
	if errors.Is(err, auth.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "identity": identity})
}

func (s *Server) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity, token, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "identity": identity})
}

// Logout clears the customer's cart before closing the session.
func (s *Server) Logout(c *gin.Context) {
	identity := currentIdentity(c)
	s.svc.ClearCart(c.Request.Context(), identity.ID)

	if err := s.auth.SignOut(c.Request.Context(), bearerToken(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListProducts(c *gin.Context) {
	limit := queryUint(c, "limit", 0)
	offset := queryUint(c, "offset", 0)

	products, err := s.svc.ListProducts(c.Request.Context(), currentIdentity(c), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) GetProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	productModel, err := s.svc.GetProduct(c.Request.Context(), productID)
	if errors.Is(err, product.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": productModel})
}

func (s *Server) GetCart(c *gin.Context) {
	identity := currentIdentity(c)
	items := s.svc.GetCart(c.Request.Context(), identity.ID)
	quantity, total := s.svc.CartSummary(c.Request.Context(), identity.ID)

	c.JSON(http.StatusOK, gin.H{
		"items":          items,
		"total_quantity": quantity,
		"total_price":    total,
	})
}

type addCartItemRequest struct {
	Item     models.CartItem `json:"item" binding:"required"`
	Quantity uint64          `json:"quantity"`
}

func (s *Server) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := currentIdentity(c)
	if err := s.svc.AddItemToCart(c.Request.Context(), identity.ID, req.Item, req.Quantity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

type updateQuantityRequest struct {
	Quantity uint64 `json:"quantity"`
}

func (s *Server) UpdateCartItem(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := currentIdentity(c)
	s.svc.UpdateCartItemQuantity(c.Request.Context(), identity.ID, productID, req.Quantity)
	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveCartItem(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	identity := currentIdentity(c)
	s.svc.RemoveItemFromCart(c.Request.Context(), identity.ID, productID)
	c.Status(http.StatusNoContent)
}

// SubmitCheckout accepts a multipart form: payment_type plus an optional
// check_image file for manual payments.
func (s *Server) SubmitCheckout(c *gin.Context) {
	identity := currentIdentity(c)
	method := enum.PaymentType(c.PostForm("payment_type"))
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown payment type: %s", method)})
		return
	}

	var deposit *checkout.CheckDeposit
	if file, err := c.FormFile("check_image"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read check image"})
			return
		}
		defer f.Close()
		deposit = &checkout.CheckDeposit{FileName: file.Filename, Content: f}
	}

	outcome, err := s.svc.Checkout(c.Request.Context(), identity, method, deposit)
	if err != nil {
		c.JSON(checkoutStatus(err), gin.H{"error": err.Error(), "outcome": outcome})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func checkoutStatus(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) ListOrders(c *gin.Context) {
	identity := currentIdentity(c)
	orders, err := s.svc.ListOrders(c.Request.Context(), identity.ID,
		queryUint(c, "limit", 0), queryUint(c, "offset", 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	orderModel, err := s.svc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	identity := currentIdentity(c)
	if orderModel.UserID != identity.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": orderModel})
}

// HandleStripeWebhook verifies the provider signature and republishes the
// event on the bus, where the worker pool picks it up.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read payload"})
		return
	}

	evt, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), s.webhookSecret)
	if err != nil {
		s.logger.Warn("Rejected webhook with bad signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	subject := fmt.Sprintf("%s.%s", storefront.PaymentEventSubjectPrefix, evt.Type)
	if err := s.natsConn.Publish(subject, payload); err != nil {
		s.logger.Error("Failed to publish payment event", zap.String("event_id", evt.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue event"})
		return
	}

	c.Status(http.StatusOK)
}

func queryUint(c *gin.Context, name string, fallback uint64) uint64 {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
