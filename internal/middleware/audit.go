package middleware

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

const maxAuditBody = 2000

// AuditLog records write operations (POST/PUT/DELETE) to system_logs.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		userID := GetUserID(c)
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		var uid *uint
		if userID > 0 {
			uid = &userID
		}
		var pid *uint
		if module == "Projects" {
			if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil {
				v := uint(id)
				pid = &v
			}
		}

		level := "info"
		if status >= 500 {
			level = "error"
		} else if status >= 400 {
			level = "warning"
		}

		services.LogProjectActivity(level, module, action,
			formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status),
			uid, pid, c.ClientIP(), c.Request.UserAgent(),
			map[string]interface{}{
				"method":     method,
				"path":       c.Request.URL.Path,
				"status":     status,
				"body":       bodySnippet,
				"request_id": c.GetString(logger.ContextRequestID),
				"audit":      true,
			})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// "/api/projects/:id" + "DELETE" gives ("Projects", "Delete"); a trailing
// verb segment names the action itself, so "/api/projects/:id/join" gives
// ("Projects", "Join").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.Trim(strings.TrimPrefix(fullPath, "/api/"), "/")
	parts := strings.Split(path, "/")

	module = parts[0]
	if module == "" {
		module = "unknown"
	}
	module = titleWords(strings.ReplaceAll(module, "-", " "))

	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if !strings.HasPrefix(last, ":") {
			return module, titleWords(last)
		}
	}

	switch method {
	case "POST":
		action = "Create"
	case "PUT":
		action = "Update"
	case "DELETE":
		action = "Delete"
	default:
		action = method
	}

	return module, action
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// formatAuditMessage creates a human-readable audit message.
func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	outcome := "Failed"
	if status >= 200 && status < 300 {
		outcome = "OK"
	}
	return "[Audit] " + username + " " + method + " " + path + " -> " + outcome
}

// maskSensitiveFields replaces sensitive values in JSON body
func maskSensitiveFields(body string) string {
	sensitiveKeys := []string{"password", "old_password", "new_password", "refresh_token", "token", "secret"}
	for _, key := range sensitiveKeys {
		body = maskJSONValue(body, key)
	}
	return body
}

// maskJSONValue does a best-effort mask of every JSON string value for key
func maskJSONValue(body, key string) string {
	needle := "\"" + key + "\""
	searchFrom := 0
	for {
		idx := strings.Index(strings.ToLower(body[searchFrom:]), needle)
		if idx == -1 {
			return body
		}
		idx += searchFrom

		colonIdx := strings.Index(body[idx+len(needle):], ":")
		if colonIdx == -1 {
			return body
		}
		valueStart := idx + len(needle) + colonIdx + 1

		for valueStart < len(body) && (body[valueStart] == ' ' || body[valueStart] == '\t') {
			valueStart++
		}
		if valueStart >= len(body) || body[valueStart] != '"' {
			searchFrom = idx + len(needle)
			continue
		}

		endQuote := strings.Index(body[valueStart+1:], "\"")
		if endQuote == -1 {
			return body
		}
		body = body[:valueStart+1] + "***" + body[valueStart+1+endQuote:]
		searchFrom = valueStart + 4
	}
}
