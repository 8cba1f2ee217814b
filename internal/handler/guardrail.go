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

// GetGuardrailPolicy 查询 AI 陪伴护栏策略，未配置时返回保守默认值
// GET /v1/seniors/:senior_id/guardrail
func GetGuardrailPolicy(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	result, err := service.Guardrail().GetPolicy(ctx, userID, c.Param("senior_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// PutGuardrailPolicy 全量替换护栏策略
// PUT /v1/seniors/:senior_id/guardrail
func PutGuardrailPolicy(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.PutPolicyRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Guardrail().PutPolicy(ctx, userID, c.Param("senior_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// EvaluateConversationTurn AI 陪伴对话一轮的护栏评估（premium）
// POST /v1/seniors/:senior_id/conversation/evaluate
func EvaluateConversationTurn(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, fmt.Errorf("user ID not found in context"))
		return
	}

	var req dto.EvaluateTurnRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Guardrail().EvaluateTurn(ctx, userID, c.Param("senior_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
