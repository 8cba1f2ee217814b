package sms

import (
	"context"
	"encoding/json"
	"fmt"

	"CareCircle/config"
)

// SendAlertSMS 发送紧急告警短信（critical 告警的推送兜底通道）
// phone: 照护者手机号
// seniorName: 老人称呼
// alertKind: 告警类型的展示文本
func SendAlertSMS(ctx context.Context, phone, seniorName, alertKind string) (*SendResponse, error) {
	cfg := config.Cfg

	signName := cfg.SMSSignName
	templateCode := cfg.SMSAlertTemplateCode
	if templateCode == "" {
		return nil, fmt.Errorf("SMS_ALERT_TEMPLATE_CODE is not configured")
	}

	templateParam := map[string]string{
		"name": seniorName,
		"kind": alertKind,
	}
	paramJSON, err := json.Marshal(templateParam)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template param: %w", err)
	}

	return SendSingle(ctx, phone, signName, templateCode, string(paramJSON))
}

// SendBatchAlertSMS 批量发送告警短信，所有手机号使用相同内容
func SendBatchAlertSMS(ctx context.Context, phones []string, seniorName, alertKind string) error {
	if len(phones) == 0 {
		return fmt.Errorf("phones list is empty")
	}

	cfg := config.Cfg
	signName := cfg.SMSSignName
	templateCode := cfg.SMSAlertTemplateCode
	if templateCode == "" {
		return fmt.Errorf("SMS_ALERT_TEMPLATE_CODE is not configured")
	}

	param := map[string]string{
		"name": seniorName,
		"kind": alertKind,
	}
	paramJSON, err := json.Marshal(param)
	if err != nil {
		return fmt.Errorf("failed to marshal template param: %w", err)
	}

	templateParams := make([]string, len(phones))
	for i := range templateParams {
		templateParams[i] = string(paramJSON)
	}

	return SendBatch(ctx, phones, signName, templateCode, templateParams)
}
