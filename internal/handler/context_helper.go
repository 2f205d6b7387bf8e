package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

func actionMeta(c *gin.Context) service.ActionMeta {
	return service.ActionMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func failedResult(err error) models.ActionResult {
	appErr := appErrors.FromError(err)
	return models.ActionResult{
		Message: appErr.Message,
		Code:    appErr.Code,
		Fields:  appErr.Fields,
		Status:  appErr.Status,
	}
}

func queryInt(c *gin.Context, key string, fields map[string]string) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		fields[key] = key + " must be a positive integer"
		return 0
	}
	return value
}

func queryBool(c *gin.Context, key string, fields map[string]string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		fields[key] = key + " must be true or false"
		return nil
	}
	return &value
}
