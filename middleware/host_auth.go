package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Host tokens outlive the game retention window so a host device never
// loses control of a still-live game.
const hostTokenTTL = 30 * 24 * time.Hour

const hostGameIDKey = "host_game_id"

type hostClaims struct {
	GameID   uint   `json:"game_id"`
	GameCode string `json:"game_code"`
	jwt.RegisteredClaims
}

// NewHostToken issues the bearer token that authorizes host-only commands
// for one game.
func NewHostToken(secret string, gameID uint, gameCode string) (string, error) {
	claims := hostClaims{
		GameID:   gameID,
		GameCode: gameCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "host",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(hostTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// HostAuth guards host-only routes: the bearer token must be valid and
// minted for the game named in the :code path parameter.
func HostAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing host token"})
			return
		}

		claims := &hostClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid host token"})
			return
		}
		if !strings.EqualFold(claims.GameCode, c.Param("code")) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token is for a different game"})
			return
		}

		c.Set(hostGameIDKey, claims.GameID)
		c.Next()
	}
}

// HostGameID returns the game id the verified host token was minted for.
func HostGameID(c *gin.Context) uint {
	id, _ := c.Get(hostGameIDKey)
	gameID, _ := id.(uint)
	return gameID
}
