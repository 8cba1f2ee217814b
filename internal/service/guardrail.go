package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"CareCircle/internal/engine"
	"CareCircle/internal/model"
	"CareCircle/internal/model/dto"
	pkgerrors "CareCircle/pkg/errors"
	"CareCircle/pkg/logger"
	"CareCircle/storage/database"
)

var (
	guardrailService *GuardrailService
	guardrailOnce    sync.Once
)

func Guardrail() *GuardrailService {
	guardrailOnce.Do(func() {
		guardrailService = &GuardrailService{}
	})
	return guardrailService
}

type GuardrailService struct{}

func (s *GuardrailService) GetPolicy(ctx context.Context, userID, seniorID string) (*dto.PolicyResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}

	policy, err := GormStore{}.GetGuardrailPolicy(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	resp := toPolicyResponse(policy, seniorID)
	return &resp, nil
}

// PutPolicy 全量替换策略，保存前校验所有枚举值
func (s *GuardrailService) PutPolicy(
	ctx context.Context,
	userID, seniorID string,
	req dto.PutPolicyRequest,
) (*dto.PolicyResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}

	autoNotify := true
	if req.AutoNotify != nil {
		autoNotify = *req.AutoNotify
	}

	policy := model.GuardrailPolicy{
		SeniorID:           profile.ID,
		BlockedTopics:      model.StringArray(req.BlockedTopics),
		AvoidanceStyle:     model.AvoidanceStyle(req.AvoidanceStyle),
		PrivacyMode:        model.PrivacyMode(req.PrivacyMode),
		EscalationTriggers: model.StringArray(req.EscalationTriggers),
		AutoNotify:         autoNotify,
	}
	if policy.BlockedTopics == nil {
		policy.BlockedTopics = model.StringArray{}
	}
	if policy.EscalationTriggers == nil {
		policy.EscalationTriggers = model.StringArray{}
	}

	if err := engine.ValidatePolicy(&policy); err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownRiskCategory):
			return nil, pkgerrors.RiskCategoryInvalid
		case errors.Is(err, engine.ErrUnknownAvoidanceStyle):
			return nil, pkgerrors.AvoidanceStyleInvalid
		case errors.Is(err, engine.ErrUnknownPrivacyMode):
			return nil, pkgerrors.PrivacyModeInvalid
		}
		return nil, err
	}

	err = database.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "senior_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"blocked_topics", "avoidance_style", "privacy_mode",
			"escalation_triggers", "auto_notify", "updated_at",
		}),
	}).Create(&policy).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save guardrail policy: %w", err)
	}

	logger.Logger.Info("Guardrail policy updated",
		zap.Int64("senior_id", profile.ID),
		zap.Int("blocked_topics", len(policy.BlockedTopics)),
		zap.Int("escalation_triggers", len(policy.EscalationTriggers)),
	)

	resp := toPolicyResponse(&policy, seniorID)
	return &resp, nil
}

// EvaluateTurn AI 陪伴对话一轮的护栏评估，premium 权益由引擎校验
func (s *GuardrailService) EvaluateTurn(
	ctx context.Context,
	userID, seniorID string,
	req dto.EvaluateTurnRequest,
) (*dto.EvaluateTurnResponse, error) {
	caregiver, err := resolveCaregiver(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := resolveOwnedSenior(ctx, caregiver.ID, seniorID)
	if err != nil {
		return nil, err
	}
	if !profile.Active {
		return nil, pkgerrors.SeniorInactive
	}

	risks := make([]model.RiskCategory, 0, len(req.RiskCategories))
	for _, r := range req.RiskCategories {
		cat := model.RiskCategory(r)
		if !model.KnownRiskCategories[cat] {
			return nil, pkgerrors.RiskCategoryInvalid
		}
		risks = append(risks, cat)
	}

	eval, err := Engine().EvaluateConversationTurn(ctx, profile.ID, engine.Turn{
		Text:           req.Text,
		RiskCategories: risks,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNotEntitled) {
			return nil, pkgerrors.PremiumRequired
		}
		return nil, err
	}

	resp := &dto.EvaluateTurnResponse{
		Decision:       "allow",
		Escalated:      eval.Escalate,
		CognitiveLevel: eval.CognitiveLevel,
		Tone:           string(eval.Tone),
	}
	if eval.Avoid {
		resp.Decision = "avoid"
		resp.AvoidInstruction = string(eval.AvoidInstruction)
		resp.MatchedTopic = eval.MatchedTopic
	}
	for _, r := range eval.EscalatedRisks {
		resp.EscalatedRisks = append(resp.EscalatedRisks, string(r))
	}

	return resp, nil
}

func toPolicyResponse(p *model.GuardrailPolicy, seniorID string) dto.PolicyResponse {
	return dto.PolicyResponse{
		SeniorID:           seniorID,
		BlockedTopics:      p.BlockedTopics,
		AvoidanceStyle:     string(p.AvoidanceStyle),
		PrivacyMode:        string(p.PrivacyMode),
		EscalationTriggers: p.EscalationTriggers,
		AutoNotify:         p.AutoNotify,
	}
}
