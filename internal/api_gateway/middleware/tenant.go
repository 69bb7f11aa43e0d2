package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TenantIDHeader is the HTTP header carrying the caller's tenant
	TenantIDHeader = "X-Tenant-ID"

	// TenantIDKey is the key used to store the tenant ID in the context
	TenantIDKey = "tenant_id"
)

// TenantID middleware requires a valid tenant UUID on every request it
// guards. There is no ambient default tenant; the caller always states one.
func TenantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "BAD_REQUEST",
					"message": "Missing " + TenantIDHeader + " header",
				},
			})
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "BAD_REQUEST",
					"message": "Invalid " + TenantIDHeader + " header",
				},
			})
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from the gin context if present
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(TenantIDKey); exists {
		if tenantID, ok := v.(uuid.UUID); ok {
			return tenantID, true
		}
	}
	return uuid.Nil, false
}
