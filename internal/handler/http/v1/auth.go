package v1

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/safety_dispatch/internal/config"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const actorContextKey = "actor"

// APIKeyAuthMiddleware - middleware для аутентификации по API-ключу
func APIKeyAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			// Проверяем также заголовок Authorization: Bearer
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		isValid := false
		for _, key := range cfg.APIKeys {
			if key == apiKey {
				isValid = true
				break
			}
		}

		if !isValid {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

// ActorMiddleware читает участника из заголовков X-Actor-ID и X-Actor-Role.
// Роль по умолчанию - reporter. Наличие участника проверяют сами изменяющие операции.
func ActorMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := models.Actor{
			ID:   strings.TrimSpace(c.GetHeader("X-Actor-ID")),
			Role: models.Role(strings.ToLower(strings.TrimSpace(c.GetHeader("X-Actor-Role")))),
		}
		if actor.Role == "" {
			actor.Role = models.RoleReporter
		}
		if !actor.Role.Valid() {
			log.WithField("role", actor.Role).Warn("Unknown actor role")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown actor role", "code": codeValidation})
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// actorFrom возвращает участника запроса; false, если X-Actor-ID не передан
func actorFrom(c *gin.Context) (models.Actor, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	if !ok || actor.ID == "" {
		return models.Actor{}, false
	}
	return actor, true
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

// RateLimitMiddleware ограничивает частоту запросов на одного участника (или IP без участника)
func RateLimitMiddleware(rps, burst int, log *logrus.Logger) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = rps
	}
	l := &rateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(rps),
		burst:     burst,
		ttl:       10 * time.Minute,
		lastSweep: time.Now(),
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		if actor, ok := actorFrom(c); ok {
			key = "actor:" + actor.ID
		}

		if !l.get(key).Allow() {
			log.WithField("key", key).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func (l *rateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}
