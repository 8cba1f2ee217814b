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

// CreateSchedule 创建用药日程
// POST /v1/seniors/:senior_id/schedules
func CreateSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.CreateScheduleRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Schedule().CreateSchedule(ctx, userID, c.Param("senior_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// ListSchedules 列出某档案的全部日程
// GET /v1/seniors/:senior_id/schedules
func ListSchedules(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	result, err := service.Schedule().ListSchedules(ctx, userID, c.Param("senior_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// UpdateSchedule 更新日程，未来 pending 事件会按新定义重建
// PATCH /v1/schedules/:schedule_id
func UpdateSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Schedule().UpdateSchedule(ctx, userID, c.Param("schedule_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// DeactivateSchedule 停用日程并清理未来的 pending 事件
// DELETE /v1/schedules/:schedule_id
func DeactivateSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	if err := service.Schedule().DeactivateSchedule(ctx, userID, c.Param("schedule_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
