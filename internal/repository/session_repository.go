package repository

import (
	"context"
	"errors"
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const sessionOfDayKeyPrefix = "session_of_day:"

// SessionRepository 会话记录的读写。当日会话 ID 额外缓存在 Redis 中，
// 缓存只做加速，未命中或出错都会回退到数据库。
type SessionRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewSessionRepository(db *gorm.DB, rdb *redis.Client) *SessionRepository {
	return &SessionRepository{DB: db, Redis: rdb}
}

func (r *SessionRepository) FindByID(id uint) (*model.StudySession, error) {
	var session model.StudySession
	if err := r.DB.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %d: %w", id, util.ErrNotFound)
		}
		return nil, err
	}
	return &session, nil
}

// FindInProgress 查找某用户某日历日的进行中会话，不存在时返回 (nil, nil)
func (r *SessionRepository) FindInProgress(userID uint, date string) (*model.StudySession, error) {
	if id, ok := r.cachedSessionID(userID, date); ok {
		var session model.StudySession
		if err := r.DB.First(&session, id).Error; err == nil &&
			session.Status == model.SessionInProgress {
			return &session, nil
		}
	}

	var session model.StudySession
	err := r.DB.Where("user_id = ? AND session_date = ? AND status = ?",
		userID, date, model.SessionInProgress).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.cacheSessionID(userID, date, session.ID)
	return &session, nil
}

// FindCompleted 查找某用户某日历日已完成的会话，不存在时返回 (nil, nil)
func (r *SessionRepository) FindCompleted(userID uint, date string) (*model.StudySession, error) {
	var session model.StudySession
	err := r.DB.Where("user_id = ? AND session_date = ? AND status = ?",
		userID, date, model.SessionCompleted).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(session *model.StudySession) error {
	if err := r.DB.Create(session).Error; err != nil {
		return err
	}
	r.cacheSessionID(session.UserID, session.SessionDate, session.ID)
	return nil
}

func (r *SessionRepository) Save(session *model.StudySession) error {
	return r.DB.Save(session).Error
}

// UpdateNarrative 会话完成后唯一允许的补写：异步生成的叙述小结
func (r *SessionRepository) UpdateNarrative(id uint, result string) error {
	return r.DB.Model(&model.StudySession{}).Where("id = ?", id).
		Update("result", result).Error
}

// ListRecentCompleted 最近完成的会话，按日期倒序
func (r *SessionRepository) ListRecentCompleted(userID uint, limit int) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := r.DB.Where("user_id = ? AND status = ?", userID, model.SessionCompleted).
		Order("session_date desc").Limit(limit).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListRecentCompletedForLesson 针对某课程计划的最近完成会话，课程完成门槛用
func (r *SessionRepository) ListRecentCompletedForLesson(userID, lessonID uint, limit int) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := r.DB.Where("user_id = ? AND lesson_id = ? AND status = ?",
		userID, lessonID, model.SessionCompleted).
		Order("session_date desc").Limit(limit).Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) CountCompleted(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.StudySession{}).
		Where("user_id = ? AND status = ?", userID, model.SessionCompleted).Count(&count).Error
	return count, err
}

func (r *SessionRepository) CountWithStars(userID uint, stars int) (int64, error) {
	var count int64
	err := r.DB.Model(&model.StudySession{}).
		Where("user_id = ? AND status = ? AND stars = ?", userID, model.SessionCompleted, stars).
		Count(&count).Error
	return count, err
}

func (r *SessionRepository) cachedSessionID(userID uint, date string) (uint, bool) {
	if r.Redis == nil {
		return 0, false
	}
	key := fmt.Sprintf("%s%d:%s", sessionOfDayKeyPrefix, userID, date)
	var id uint
	if err := r.Redis.Get(context.Background(), key).Scan(&id); err != nil {
		return 0, false
	}
	return id, true
}

func (r *SessionRepository) cacheSessionID(userID uint, date string, id uint) {
	if r.Redis == nil {
		return
	}
	key := fmt.Sprintf("%s%d:%s", sessionOfDayKeyPrefix, userID, date)
	r.Redis.Set(context.Background(), key, id, 48*time.Hour)
}
