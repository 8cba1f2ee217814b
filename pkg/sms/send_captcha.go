package sms

import (
	"context"
	"encoding/json"
	"fmt"

	"CareCircle/config"
)

// SendCaptchaSMS 发送验证码短信
// phone: 手机号
// code: 验证码

func SendCaptchaSMS(ctx context.Context, phone, code string) error {
	cfg := config.Cfg

	signName := cfg.SMSSignName
	templateCode := cfg.SMSTemplateCode

	// 构建模板参数
	templateParam := map[string]string{
		"code": code,
	}
	paramJSON, err := json.Marshal(templateParam)
	if err != nil {
		return fmt.Errorf("failed to marshal template param: %w", err)
	}

	_, err = SendSingle(ctx, phone, signName, templateCode, string(paramJSON))
	return err
}
