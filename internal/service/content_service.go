package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/repository"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const contentCacheTTL = 30 * time.Minute

// ContentService 在只读内容仓库外套一层 Redis 读穿缓存。
// 内容定义变更频率极低，缓存未命中或 Redis 故障都静默回退到数据库。
type ContentService struct {
	repo   *repository.ContentRepository
	redis  *redis.Client
	logger *zap.Logger
}

func NewContentService(repo *repository.ContentRepository, rdb *redis.Client, logger *zap.Logger) *ContentService {
	return &ContentService{repo: repo, redis: rdb, logger: logger}
}

// cached 按 key 读缓存，未命中时执行 load 并回填
func cached[T any](s *ContentService, key string, load func() (*T, error)) (*T, error) {
	if s.redis != nil {
		data, err := s.redis.Get(context.Background(), key).Bytes()
		if err == nil {
			var v T
			if json.Unmarshal(data, &v) == nil {
				return &v, nil
			}
		} else if err != redis.Nil {
			s.logger.Debug("内容缓存读取失败", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if data, err := json.Marshal(v); err == nil {
			s.redis.Set(context.Background(), key, data, contentCacheTTL)
		}
	}
	return v, nil
}

func cachedList[T any](s *ContentService, key string, load func() ([]T, error)) ([]T, error) {
	if s.redis != nil {
		data, err := s.redis.Get(context.Background(), key).Bytes()
		if err == nil {
			var v []T
			if json.Unmarshal(data, &v) == nil {
				return v, nil
			}
		} else if err != redis.Nil {
			s.logger.Debug("内容缓存读取失败", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := load()
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if data, err := json.Marshal(v); err == nil {
			s.redis.Set(context.Background(), key, data, contentCacheTTL)
		}
	}
	return v, nil
}

func (s *ContentService) Lesson(id uint) (*model.Lesson, error) {
	return cached(s, fmt.Sprintf("content:lesson:%d", id), func() (*model.Lesson, error) {
		return s.repo.FindLesson(id)
	})
}

// FirstLesson 主线第一课，首次学习的用户从这里开始
func (s *ContentService) FirstLesson() (*model.Lesson, error) {
	return cached(s, "content:first_lesson", func() (*model.Lesson, error) {
		return s.repo.FindFirstLesson()
	})
}

// NextLesson 主线上的下一课；没有下一课时返回 util.ErrNotFound
func (s *ContentService) NextLesson(after *model.Lesson) (*model.Lesson, error) {
	return cached(s, fmt.Sprintf("content:lesson_after:%d", after.Order), func() (*model.Lesson, error) {
		return s.repo.FindNextLesson(after)
	})
}

func (s *ContentService) GrammarPoint(id uint) (*model.GrammarPoint, error) {
	return cached(s, fmt.Sprintf("content:grammar_point:%d", id), func() (*model.GrammarPoint, error) {
		return s.repo.FindGrammarPoint(id)
	})
}

func (s *ContentService) GrammarPoints(lessonID uint) ([]model.GrammarPoint, error) {
	return cachedList(s, fmt.Sprintf("content:grammar_points:%d", lessonID), func() ([]model.GrammarPoint, error) {
		return s.repo.ListGrammarPoints(lessonID)
	})
}

func (s *ContentService) Drill(id uint) (*model.GrammarDrill, error) {
	return cached(s, fmt.Sprintf("content:drill:%d", id), func() (*model.GrammarDrill, error) {
		return s.repo.FindDrill(id)
	})
}

func (s *ContentService) Drills(grammarPointID uint, kind model.DrillKind) ([]model.GrammarDrill, error) {
	return cachedList(s, fmt.Sprintf("content:drills:%d:%s", grammarPointID, kind), func() ([]model.GrammarDrill, error) {
		return s.repo.ListDrills(grammarPointID, kind)
	})
}

func (s *ContentService) Vocab(id uint) (*model.VocabWord, error) {
	return cached(s, fmt.Sprintf("content:vocab:%d", id), func() (*model.VocabWord, error) {
		return s.repo.FindVocab(id)
	})
}

func (s *ContentService) VocabList(lessonID uint) ([]model.VocabWord, error) {
	return cachedList(s, fmt.Sprintf("content:vocab_list:%d", lessonID), func() ([]model.VocabWord, error) {
		return s.repo.ListVocab(lessonID)
	})
}

func (s *ContentService) Sentence(id uint) (*model.Sentence, error) {
	return cached(s, fmt.Sprintf("content:sentence:%d", id), func() (*model.Sentence, error) {
		return s.repo.FindSentence(id)
	})
}

func (s *ContentService) Sentences(grammarPointID uint) ([]model.Sentence, error) {
	return cachedList(s, fmt.Sprintf("content:sentences:%d", grammarPointID), func() ([]model.Sentence, error) {
		return s.repo.ListSentences(grammarPointID)
	})
}

func (s *ContentService) KeyPoints(sentenceID uint) ([]model.SentenceKeyPoint, error) {
	return cachedList(s, fmt.Sprintf("content:key_points:%d", sentenceID), func() ([]model.SentenceKeyPoint, error) {
		return s.repo.ListKeyPoints(sentenceID)
	})
}
