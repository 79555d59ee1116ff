package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"lingua_coach_backend/internal/config"
	"lingua_coach_backend/internal/model"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SummaryService 调用外部 AI 协作方，把会话的确定性模板小结
// 异步替换成一段更自然的点评。整个流程是尽力而为：
// 未配置、超时或出错都只记日志，会话里保留模板小结。
type SummaryService struct {
	cfg      config.AIConfig
	sessions SessionStore
	logger   *zap.Logger
	client   *http.Client
}

func NewSummaryService(cfg config.AIConfig, sessions SessionStore, logger *zap.Logger) *SummaryService {
	return &SummaryService{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Enabled 是否配置了 AI 协作方
func (s *SummaryService) Enabled() bool {
	return s.cfg.BaseURL != "" && s.cfg.Model != ""
}

// RefreshAsync 在后台生成并覆盖会话叙述，立即返回。
// 这是会话完成后唯一允许的补写路径。
func (s *SummaryService) RefreshAsync(sessionID uint) {
	if !s.Enabled() {
		return
	}
	go func() {
		if err := s.refresh(sessionID); err != nil {
			s.logger.Warn("AI 叙述生成失败，保留模板小结",
				zap.Uint("sessionId", sessionID), zap.Error(err))
		}
	}()
}

func (s *SummaryService) refresh(sessionID uint) error {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return err
	}
	result, err := session.DecodeResult()
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("session %d has no result", sessionID)
	}

	narrative, err := s.generate(result)
	if err != nil {
		return err
	}
	if narrative == "" {
		return fmt.Errorf("AI returned empty narrative")
	}

	result.Narrative = narrative
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.sessions.UpdateNarrative(sessionID, string(data))
}

func (s *SummaryService) generate(result *model.SessionResult) (string, error) {
	prompt := fmt.Sprintf(
		"你是一位温和的语言学习教练。学习者刚完成一次练习：语法正确率 %.0f%%，词汇正确率 %.0f%%，例句要点覆盖率 %.0f%%，综合 %d 星。"+
			"请用 2-3 句中文给出鼓励性的小结，指出最值得关注的一个环节。不要使用列表或标题。",
		result.GrammarAccuracy*100, result.VocabAccuracy*100, result.SentenceHitRate*100, result.Stars)

	reqBody := map[string]interface{}{
		"model": s.cfg.Model,
		"messages": []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", s.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", err
	}
	if completion.Error != nil {
		return "", fmt.Errorf("AI API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
