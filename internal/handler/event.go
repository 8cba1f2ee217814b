package handler

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"

	"CareCircle/internal/middleware"
	"CareCircle/internal/model/dto"
	"CareCircle/internal/service"
	"CareCircle/pkg/response"
)

// ListEvents 查询某档案一段日期内的用药事件
// GET /v1/events?senior_id=&from=&to=&status=
func ListEvents(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var q dto.ListEventsQuery
	if err := c.BindQuery(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Event().ListEvents(ctx, userID, q)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CompleteEvent 确认已服药
// POST /v1/events/:event_id/complete
func CompleteEvent(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.EventActionRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Event().CompleteEvent(ctx, userID, c.Param("event_id"), req.Notes); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"status": "taken"})
}

// SkipEvent 主动跳过本次用药，不产生漏服告警
// POST /v1/events/:event_id/skip
func SkipEvent(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.EventActionRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Event().SkipEvent(ctx, userID, c.Param("event_id"), req.Notes); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"status": "skipped"})
}
