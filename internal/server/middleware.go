package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/notemart/internal/audit/auditcontext"
	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/auth/token"
	obscontext "github.com/smallbiznis/notemart/internal/observability/context"
	"github.com/smallbiznis/notemart/internal/ratelimit"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// RequestContext seeds the audit metadata of the request. It runs after the
// request logger so the request id is known.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditcontext.With(c.Request.Context(), auditcontext.Request{
			RequestID: obscontext.RequestIDFromContext(c.Request.Context()),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

func (s *Server) UserAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		principal, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalUser attaches the caller when a bearer token is sent. A token that
// does not verify is rejected rather than ignored.
func (s *Server) OptionalUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.Next()
			return
		}
		principal, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

func (s *Server) AdminAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		principal, err := s.authsvc.AuthenticateAdmin(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, principal *authdomain.Principal) {
	c.Set(contextPrincipalKey, principal)
	ctx := auditcontext.WithActor(c.Request.Context(), principal.Kind, principal.ID.String())
	ctx = obscontext.WithActor(ctx, principal.Kind, principal.ID.String())
	c.Request = c.Request.WithContext(ctx)
}

func principalFromContext(c *gin.Context) (*authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*authdomain.Principal)
	return principal, ok && principal != nil
}

func (s *Server) userIDFromContext(c *gin.Context) (snowflake.ID, bool) {
	principal, ok := principalFromContext(c)
	if !ok || principal.Kind != string(token.KindUser) {
		return 0, false
	}
	return principal.ID, true
}

// authorize checks the authenticated principal against the RBAC policy.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		subject := principal.Kind + ":" + principal.ID.String()
		if err := s.authzSvc.Authorize(c.Request.Context(), subject, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RateLimit charges one token per request from the client address. Limiter
// failures admit the request.
func (s *Server) RateLimit(policy ratelimit.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		res, err := s.limiter.Allow(c.Request.Context(), policy, c.ClientIP())
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("policy", string(policy)), zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			seconds := int(res.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), c.FullPath())
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
