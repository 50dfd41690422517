package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/newsforum/backend/internal/apierror"
	"github.com/emilythestrangee/newsforum/backend/internal/identity"
)

const identityKey = "identity"

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header and
// stores the verified caller for CurrentIdentity.
func AuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := identity.ParseAuthorization(c.GetHeader("Authorization"))
		if err != nil {
			apierror.Abort(c, err)
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			apierror.Abort(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// CurrentIdentity returns the caller verified by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	raw, exists := c.Get(identityKey)
	if !exists {
		return identity.Identity{}, false
	}
	id, ok := raw.(identity.Identity)
	return id, ok
}
