package controllers

import (
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
	"github.com/crmhub/docquery-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError 将服务层错误映射为HTTP响应
// AppError按其错误码映射状态码，其余错误统一500
func (c *BaseController) JSONAppError(err error) {
	appErr := apperrors.GetAppError(err)

	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Ctx.Request.RequestURI),
			zap.String("method", c.Ctx.Request.Method),
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
	}

	c.JSON(appErr.HTTPCode, map[string]interface{}{
		"success": false,
		"code":    appErr.Code,
		"error":   appErr.Message,
	})
}

// getTenantID 获取请求的租户标识
// 优先X-Tenant-Id header，其次tenant_id查询参数
func (c *BaseController) getTenantID() (string, bool) {
	tenantID := strings.TrimSpace(c.Ctx.Input.Header("X-Tenant-Id"))
	if tenantID == "" {
		tenantID = strings.TrimSpace(c.GetString("tenant_id"))
	}
	if tenantID == "" {
		c.JSONError(http.StatusBadRequest, "tenant identifier is required")
		return "", false
	}
	return tenantID, true
}

// getClientIP 获取客户端真实IP地址
func (c *BaseController) getClientIP() string {
	xForwardedFor := c.Ctx.Input.Header("X-Forwarded-For")
	if xForwardedFor != "" {
		// X-Forwarded-For可能包含多个IP，取第一个
		ips := strings.Split(xForwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	xRealIP := c.Ctx.Input.Header("X-Real-IP")
	if xRealIP != "" {
		return xRealIP
	}

	return c.Ctx.Input.IP()
}
