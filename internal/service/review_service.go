package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stratflow-go/internal/model"
	"stratflow-go/internal/repository"
	"stratflow-go/pkg/llm"
	"stratflow-go/pkg/log"
	"stratflow-go/pkg/metrics"
	"stratflow-go/pkg/token"
)

// 评审类型。
const (
	ReviewKindOKR = "okr"
	ReviewKindPAD = "pad"
)

const stopTokenTTL = time.Hour

// ReviewRequest 是一次 AI 评审的输入。OKR 评审使用 Objective/KeyResults，PAD 评审使用 Plan/Action/Deliverable。
type ReviewRequest struct {
	Kind        string   `json:"kind"`
	Objective   string   `json:"objective"`
	KeyResults  []string `json:"keyResults"`
	Plan        string   `json:"plan"`
	Action      string   `json:"action"`
	Deliverable string   `json:"deliverable"`
}

// Prompt 生成发给模型的提示词。
func (r ReviewRequest) Prompt() (string, error) {
	switch r.Kind {
	case ReviewKindOKR:
		if strings.TrimSpace(r.Objective) == "" {
			return "", validation("目标不能为空")
		}
		return fmt.Sprintf(`作为战略管理专家，请检查以下 OKR 的设置质量：
目标 (O): %s
关键结果 (KRs): %s

请根据 SMART 原则评估其"可衡量性"和"挑战性"，并给出具体的修改意见。
如果包含模糊词汇（如"努力"、"加强"），请明确指出。
返回 Markdown 格式。`, r.Objective, strings.Join(r.KeyResults, "; ")), nil
	case ReviewKindPAD:
		if strings.TrimSpace(r.Plan) == "" && strings.TrimSpace(r.Action) == "" && strings.TrimSpace(r.Deliverable) == "" {
			return "", validation("计划、行动、交付物不能同时为空")
		}
		return fmt.Sprintf(`请审核以下周度 PAD 工作计划：
计划 (Plan): %s
行动 (Action): %s
交付物 (Deliverable): %s

分析计划与交付物是否匹配，行动是否能支撑目标的达成。给出一条具体改进建议。`, r.Plan, r.Action, r.Deliverable), nil
	default:
		return "", validation("未知的评审类型: %s", r.Kind)
	}
}

func (r ReviewRequest) summary() string {
	if r.Kind == ReviewKindOKR {
		return r.Objective
	}
	return r.Plan
}

// ReviewService 接口定义了 AI 评审：一次性评审、WebSocket 流式评审以及评审历史。
type ReviewService interface {
	Review(ctx context.Context, actor *model.User, req ReviewRequest) (string, error)
	StreamReview(ctx context.Context, actor *model.User, req ReviewRequest, w llm.MessageWriter, shouldStop func() bool) error
	History(ctx context.Context, actor *model.User) ([]model.ReviewRecord, error)
	IssueStopToken(ctx context.Context, actor *model.User) (string, error)
	IsStopToken(ctx context.Context, actor *model.User, tok string) bool
}

type reviewService struct {
	llmClient  llm.Client
	reviewRepo repository.ReviewRepository
}

// NewReviewService 创建一个新的 ReviewService 实例。
func NewReviewService(llmClient llm.Client, reviewRepo repository.ReviewRepository) ReviewService {
	return &reviewService{llmClient: llmClient, reviewRepo: reviewRepo}
}

func (s *reviewService) Review(ctx context.Context, actor *model.User, req ReviewRequest) (string, error) {
	prompt, err := req.Prompt()
	if err != nil {
		return "", err
	}
	answer, err := s.llmClient.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil)
	metrics.ObserveAICall(req.Kind+"_review", err)
	if err != nil {
		log.Errorf("[ReviewService] AI 评审失败: %v", err)
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	s.remember(actor, req, answer)
	return answer, nil
}

// StreamReview 把模型回复以 {"chunk": "..."} 的形式逐块写入 w。
func (s *reviewService) StreamReview(ctx context.Context, actor *model.User, req ReviewRequest, w llm.MessageWriter, shouldStop func() bool) error {
	prompt, err := req.Prompt()
	if err != nil {
		return err
	}
	answer := &strings.Builder{}
	interceptor := &chunkWriter{target: w, answer: answer, shouldStop: shouldStop}
	err = s.llmClient.StreamChatMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, nil, interceptor)
	metrics.ObserveAICall(req.Kind+"_review_stream", err)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	if answer.Len() > 0 {
		s.remember(actor, req, answer.String())
	}
	return nil
}

// remember 保存评审记录。使用后台上下文，即使请求已被取消也保存已生成的回复。
func (s *reviewService) remember(actor *model.User, req ReviewRequest, answer string) {
	record := model.ReviewRecord{Kind: req.Kind, Input: req.summary(), Output: answer, Timestamp: time.Now().UnixMilli()}
	if err := s.reviewRepo.Append(context.Background(), actor.EntName, actor.ID, record); err != nil {
		log.Errorf("[ReviewService] 保存评审记录失败: %v", err)
	}
}

func (s *reviewService) History(ctx context.Context, actor *model.User) ([]model.ReviewRecord, error) {
	return s.reviewRepo.GetHistory(ctx, actor.EntName, actor.ID)
}

// IssueStopToken 签发一个停止流式评审的令牌，保存在 Redis 中以支持多实例部署。
func (s *reviewService) IssueStopToken(ctx context.Context, actor *model.User) (string, error) {
	tok := "WSS_STOP_CMD_" + token.GenerateRandomString(16)
	if err := s.reviewRepo.SaveStopToken(ctx, actor.EntName, actor.ID, tok, stopTokenTTL); err != nil {
		return "", err
	}
	return tok, nil
}

func (s *reviewService) IsStopToken(ctx context.Context, actor *model.User, tok string) bool {
	if tok == "" {
		return false
	}
	stored, err := s.reviewRepo.GetStopToken(ctx, actor.EntName, actor.ID)
	if err != nil {
		log.Warnf("[ReviewService] 读取停止令牌失败: %v", err)
		return false
	}
	return stored == tok
}

// chunkWriter 包装下游 writer，捕获完整回复并把每个分块封装为 JSON。
type chunkWriter struct {
	target     llm.MessageWriter
	answer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *chunkWriter) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.answer.Write(data)
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.target.WriteMessage(messageType, b)
}
