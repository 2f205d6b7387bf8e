package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type actionDispatcher interface {
	Dispatch(ctx context.Context, identity models.Identity, action dto.Action, meta service.ActionMeta) models.ActionResult
}

// ActionHandler accepts every form-encoded mutation on a single endpoint.
type ActionHandler struct {
	actions actionDispatcher
	cookie  middleware.SessionCookie
}

// NewActionHandler constructs an ActionHandler.
func NewActionHandler(actions actionDispatcher, cookie middleware.SessionCookie) *ActionHandler {
	return &ActionHandler{actions: actions, cookie: cookie}
}

// Submit godoc
// @Summary Submit a mutation intent
// @Description Form-encoded mutation. The intent field selects the operation; remaining fields are its payload.
// @Tags Actions
// @Accept x-www-form-urlencoded
// @Produce json
// @Param intent formData string true "Mutation intent"
// @Success 200 {object} response.Envelope{data=models.ActionResult}
// @Failure 400 {object} response.Envelope{data=models.ActionResult}
// @Failure 401 {object} response.Envelope{data=models.ActionResult}
// @Failure 404 {object} response.Envelope{data=models.ActionResult}
// @Failure 500 {object} response.Envelope{data=models.ActionResult}
// @Router /actions [post]
func (h *ActionHandler) Submit(c *gin.Context) {
	action, err := dto.ParseAction(c.PostForm("intent"), func(v interface{}) error {
		return c.ShouldBindWith(v, binding.Form)
	})
	if err != nil {
		result := failedResult(err)
		response.JSON(c, result.Status, result, nil)
		return
	}

	result := h.actions.Dispatch(c.Request.Context(), middleware.CurrentIdentity(c), action, actionMeta(c))
	switch {
	case result.Session != nil:
		h.cookie.Set(c, result.Session.Token)
	case result.ClearSession:
		h.cookie.Clear(c)
	}
	response.JSON(c, result.Status, result, nil)
}
