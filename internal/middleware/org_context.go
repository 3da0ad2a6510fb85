package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gin 上下文键
const (
	OrgIDKey  = "org_id"
	UserIDKey = "user_id"
)

// HTTP 头常量
const (
	HeaderOrgID  = "X-Org-ID"
	HeaderUserID = "X-User-ID"
)

// OrgContextMiddleware 解析组织标识（X-Org-ID 头优先，其次 org_id 查询参数）写入 Gin 上下文。
// 缺失时返回 400。
func OrgContextMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		orgID := strings.TrimSpace(c.GetHeader(HeaderOrgID))
		if orgID == "" {
			orgID = strings.TrimSpace(c.Query("org_id"))
		}
		if orgID == "" {
			log.Warn("missing org id", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"code":    "INVALID_REQUEST",
				"message": "缺少组织标识 (X-Org-ID 或 org_id)",
			})
			return
		}

		c.Set(OrgIDKey, orgID)
		if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
			c.Set(UserIDKey, userID)
		}
		c.Next()
	}
}
