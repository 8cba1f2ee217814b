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

// ListAlerts 查询某档案的告警列表
// GET /v1/alerts?senior_id=&type=&acknowledged=&limit=
func ListAlerts(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var q dto.ListAlertsQuery
	if err := c.BindQuery(&q); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Alert().ListAlerts(ctx, userID, q)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// AcknowledgeAlert 确认告警，幂等
// POST /v1/alerts/:alert_id/ack
func AcknowledgeAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	result, err := service.Alert().AcknowledgeAlert(ctx, userID, c.Param("alert_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// RaiseAlert 手动上报设备事实（SOS 按钮、跌倒检测回调）
// POST /v1/seniors/:senior_id/alerts
func RaiseAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.RaiseAlertRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Alert().RaiseAlert(ctx, userID, c.Param("senior_id"), req); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"recorded": true})
}
