package repository

import (
	"errors"
	"lingua_coach_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

// MasteryRepository 语法掌握度与词汇强度两类状态行的读写。
// Get 系列在记录不存在时返回 (nil, nil)，由服务层惰性创建零值行。
type MasteryRepository struct {
	DB *gorm.DB
}

func NewMasteryRepository(db *gorm.DB) *MasteryRepository {
	return &MasteryRepository{DB: db}
}

func (r *MasteryRepository) GetGrammar(userID, grammarPointID uint) (*model.GrammarMastery, error) {
	var row model.GrammarMastery
	err := r.DB.Where("user_id = ? AND grammar_point_id = ?", userID, grammarPointID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *MasteryRepository) SaveGrammar(row *model.GrammarMastery) error {
	return r.DB.Save(row).Error
}

// ListGrammarFor 返回指定语法点集合中已有的掌握度行（缺失的视为掌握度 0）
func (r *MasteryRepository) ListGrammarFor(userID uint, grammarPointIDs []uint) ([]model.GrammarMastery, error) {
	if len(grammarPointIDs) == 0 {
		return nil, nil
	}
	var rows []model.GrammarMastery
	err := r.DB.Where("user_id = ? AND grammar_point_id IN ?", userID, grammarPointIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MasteryRepository) CountGrammarMastered(userID uint, threshold int) (int64, error) {
	var count int64
	err := r.DB.Model(&model.GrammarMastery{}).
		Where("user_id = ? AND mastery >= ?", userID, threshold).Count(&count).Error
	return count, err
}

func (r *MasteryRepository) ListDueGrammar(userID uint, now time.Time, limit int) ([]model.GrammarMastery, error) {
	var rows []model.GrammarMastery
	err := r.DB.Where("user_id = ? AND next_review_at IS NOT NULL AND next_review_at <= ?", userID, now).
		Order("mastery asc, next_review_at asc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MasteryRepository) GetVocab(userID, vocabWordID uint) (*model.VocabStrength, error) {
	var row model.VocabStrength
	err := r.DB.Where("user_id = ? AND vocab_word_id = ?", userID, vocabWordID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *MasteryRepository) SaveVocab(row *model.VocabStrength) error {
	return r.DB.Save(row).Error
}

func (r *MasteryRepository) CountVocabSeen(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.VocabStrength{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *MasteryRepository) CountVocabBlocking(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.VocabStrength{}).
		Where("user_id = ? AND is_blocking = ?", userID, true).Count(&count).Error
	return count, err
}

func (r *MasteryRepository) ListDueVocab(userID uint, now time.Time, limit int) ([]model.VocabStrength, error) {
	var rows []model.VocabStrength
	err := r.DB.Where("user_id = ? AND next_review_at IS NOT NULL AND next_review_at <= ?", userID, now).
		Order("strength asc, next_review_at asc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
