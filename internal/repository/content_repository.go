package repository

import (
	"errors"
	"fmt"
	"lingua_coach_backend/internal/model"
	"lingua_coach_backend/internal/util"

	"gorm.io/gorm"
)

// ContentRepository 只读的内容定义访问。
// 查找未命中统一映射为 util.ErrNotFound，调用方不需要感知 gorm。
type ContentRepository struct {
	DB *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{DB: db}
}

func notFound(kind string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, util.ErrNotFound)
	}
	return err
}

func (r *ContentRepository) FindLesson(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.First(&lesson, id).Error; err != nil {
		return nil, notFound("lesson", id, err)
	}
	return &lesson, nil
}

// FindFirstLesson 主线第一课（Order 最小），没有任何课程时返回 util.ErrNotFound
func (r *ContentRepository) FindFirstLesson() (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.Order("`order` asc").First(&lesson).Error; err != nil {
		return nil, notFound("first lesson", 0, err)
	}
	return &lesson, nil
}

// FindNextLesson 返回 Order 紧随其后的下一课，没有下一课时返回 util.ErrNotFound
func (r *ContentRepository) FindNextLesson(after *model.Lesson) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Where("`order` > ?", after.Order).Order("`order` asc").First(&lesson).Error
	if err != nil {
		return nil, notFound("lesson after", after.ID, err)
	}
	return &lesson, nil
}

func (r *ContentRepository) FindGrammarPoint(id uint) (*model.GrammarPoint, error) {
	var gp model.GrammarPoint
	if err := r.DB.First(&gp, id).Error; err != nil {
		return nil, notFound("grammar point", id, err)
	}
	return &gp, nil
}

// ListGrammarPoints 课程内按 Order 排序的语法点列表
func (r *ContentRepository) ListGrammarPoints(lessonID uint) ([]model.GrammarPoint, error) {
	var points []model.GrammarPoint
	err := r.DB.Where("lesson_id = ?", lessonID).Order("`order` asc").Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (r *ContentRepository) FindDrill(id uint) (*model.GrammarDrill, error) {
	var drill model.GrammarDrill
	if err := r.DB.First(&drill, id).Error; err != nil {
		return nil, notFound("drill", id, err)
	}
	return &drill, nil
}

func (r *ContentRepository) ListDrills(grammarPointID uint, kind model.DrillKind) ([]model.GrammarDrill, error) {
	var drills []model.GrammarDrill
	err := r.DB.Where("grammar_point_id = ? AND kind = ?", grammarPointID, kind).
		Order("id asc").Find(&drills).Error
	if err != nil {
		return nil, err
	}
	return drills, nil
}

func (r *ContentRepository) FindVocab(id uint) (*model.VocabWord, error) {
	var word model.VocabWord
	if err := r.DB.First(&word, id).Error; err != nil {
		return nil, notFound("vocab word", id, err)
	}
	return &word, nil
}

func (r *ContentRepository) ListVocab(lessonID uint) ([]model.VocabWord, error) {
	var words []model.VocabWord
	err := r.DB.Where("lesson_id = ?", lessonID).Order("id asc").Find(&words).Error
	if err != nil {
		return nil, err
	}
	return words, nil
}

func (r *ContentRepository) FindSentence(id uint) (*model.Sentence, error) {
	var sentence model.Sentence
	if err := r.DB.First(&sentence, id).Error; err != nil {
		return nil, notFound("sentence", id, err)
	}
	return &sentence, nil
}

func (r *ContentRepository) ListSentences(grammarPointID uint) ([]model.Sentence, error) {
	var sentences []model.Sentence
	err := r.DB.Where("grammar_point_id = ?", grammarPointID).Order("id asc").Find(&sentences).Error
	if err != nil {
		return nil, err
	}
	return sentences, nil
}

func (r *ContentRepository) ListKeyPoints(sentenceID uint) ([]model.SentenceKeyPoint, error) {
	var points []model.SentenceKeyPoint
	err := r.DB.Where("sentence_id = ?", sentenceID).Order("id asc").Find(&points).Error
	if err != nil {
		return nil, err
	}
	return points, nil
}
