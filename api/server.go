// Package api exposes the storefront over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gofalre.io/storefront"
	"gofalre.io/storefront/auth"
	"gofalre.io/storefront/models"
)

const identityKey = "identity"

type Server struct {
	svc           storefront.Service
	auth          auth.Service
	natsConn      *nats.Conn
	webhookSecret string
	logger        *zap.Logger
}

func NewServer(svc storefront.Service, authSvc auth.Service, natsConn *nats.Conn, webhookSecret string, logger *zap.Logger) *Server {
	return &Server{
		svc:           svc,
		auth:          authSvc,
		natsConn:      natsConn,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/webhooks/stripe", s.HandleStripeWebhook)

	api := r.Group("/api")
	{
		api.POST("/auth/signup", s.SignUp)
		api.POST("/auth/login", s.Login)
		api.GET("/products", s.optionalIdentity(), s.ListProducts)
		api.GET("/products/:id", s.GetProduct)

		authed := api.Group("", s.requireIdentity())
		{
			authed.POST("/auth/logout", s.Logout)
			authed.GET("/cart", s.GetCart)
			authed.POST("/cart/items", s.AddCartItem)
			authed.PATCH("/cart/items/:id", s.UpdateCartItem)
			authed.DELETE("/cart/items/:id", s.RemoveCartItem)
			authed.POST("/checkout", s.SubmitCheckout)
			authed.GET("/orders", s.ListOrders)
			authed.GET("/orders/:id", s.GetOrder)
		}
	}

	return r
}

// requireIdentity resolves the bearer token into an identity or rejects the
// request.
func (s *Server) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := s.resolveIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// optionalIdentity resolves the bearer token when present; anonymous
// requests proceed without one.
func (s *Server) optionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity := s.resolveIdentity(c); identity != nil {
			c.Set(identityKey, identity)
		}
		c.Next()
	}
}

func (s *Server) resolveIdentity(c *gin.Context) *models.Identity {
	token := bearerToken(c)
	if token == "" {
		return nil
	}

	identity, err := s.auth.IdentityFromToken(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	return identity
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func currentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
