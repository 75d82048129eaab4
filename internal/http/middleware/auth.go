// README: Actor middleware; session auth is handled upstream of this core.
package middleware

import "github.com/gin-gonic/gin"

const (
	ActorRoleKey = "actorRole"
	ActorIDKey   = "actorID"
)

// Actor lifts the authenticated actor's role and id out of the headers the
// session layer injects. This core trusts them; it does not verify sessions.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ActorRoleKey, c.GetHeader("X-Actor-Role"))
		c.Set(ActorIDKey, c.GetHeader("X-Actor-Id"))
		c.Next()
	}
}
