package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/florakart/florakart/internal/cart"
)

const cartTokenCookie = "cart_token"

// SessionMiddleware injects the session cart store and guarantees the
// request carries an opaque session token, issuing one in a cookie when
// the client has none. Clients may also pass the token explicitly in the
// X-Cart-Token header (the gateway redirect callback does this via the
// cookie the browser already holds).
func SessionMiddleware(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("cart_store", store)

		token := c.GetHeader("X-Cart-Token")
		if token == "" {
			if cookie, err := c.Cookie(cartTokenCookie); err == nil {
				token = cookie
			}
		}
		if _, err := uuid.Parse(token); err != nil {
			token = uuid.New().String()
			c.SetCookie(cartTokenCookie, token, 86400, "/", "", false, true)
		}
		c.Set("cart_token", token)
		c.Next()
	}
}

func GetCartStore(c *gin.Context) *cart.Store {
	store, exists := c.Get("cart_store")
	if !exists {
		return nil
	}
	return store.(*cart.Store)
}

func GetCartToken(c *gin.Context) string {
	token, exists := c.Get("cart_token")
	if !exists {
		return ""
	}
	return token.(string)
}
