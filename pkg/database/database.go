package database

import (
	"fmt"
	"lingua_coach_backend/internal/config"
	"lingua_coach_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 建立数据库连接。migrate 为真时执行 AutoMigrate 并在内容表为空时
// 写入演示课程；release 模式默认不迁移，需通过 --migrate 显式开启。
func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Lesson{},
		&model.GrammarPoint{},
		&model.GrammarDrill{},
		&model.VocabWord{},
		&model.Sentence{},
		&model.SentenceKeyPoint{},
		&model.GrammarMastery{},
		&model.VocabStrength{},
		&model.UserProgress{},
		&model.StudySession{},
		&model.AchievementUnlock{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedDemoContent(db)

	return db, nil
}

// seedDemoContent 课程表为空时写入一课演示内容，让新部署开箱即可学习
func seedDemoContent(db *gorm.DB) {
	var count int64
	db.Model(&model.Lesson{}).Count(&count)
	if count > 0 {
		return
	}

	lesson := model.Lesson{Title: "基础句型与助词", Level: 1, Order: 1}
	db.Create(&lesson)

	gpTopic := model.GrammarPoint{
		LessonID:    lesson.ID,
		Title:       "〜は〜です",
		Pattern:     "N は N です",
		Explanation: "は 标记话题，です 表示判断。最基础的名词谓语句。",
		Order:       1,
	}
	gpAlso := model.GrammarPoint{
		LessonID:    lesson.ID,
		Title:       "〜も",
		Pattern:     "N も",
		Explanation: "も 表示「也」，替换 は 出现在同一位置。",
		Order:       2,
	}
	db.Create(&gpTopic)
	db.Create(&gpAlso)

	drills := []model.GrammarDrill{
		{
			GrammarPointID: gpTopic.ID, Kind: model.DrillRecall,
			Prompt:        "「私__学生です」空格处应填入？",
			Options:       `["は","が","を","に"]`,
			CorrectOption: 0,
			Explanation:   "自我介绍句中 私 是话题，用 は 标记。",
		},
		{
			GrammarPointID: gpTopic.ID, Kind: model.DrillRecall,
			Prompt:        "下列哪句是正确的判断句？",
			Options:       `["これは本です","これ本はです","本これはです","ですこれは本"]`,
			CorrectOption: 0,
			Explanation:   "判断句语序为「话题 + は + 名词 + です」。",
		},
		{
			GrammarPointID: gpTopic.ID, Kind: model.DrillTransfer,
			Prompt:        "想表达「田中先生是老师」，应该说？",
			Options:       `["田中さんは先生です","田中さんが先生ます","田中さんを先生です","先生は田中さんします"]`,
			CorrectOption: 0,
			Explanation:   "话题「田中さん」+ は + 身份名词 + です。",
		},
		{
			GrammarPointID: gpAlso.ID, Kind: model.DrillRecall,
			Prompt:        "「私も学生です」中 も 的意思是？",
			Options:       `["也","是","的","在"]`,
			CorrectOption: 0,
			Explanation:   "も 表示「也」，直接替换 は 的位置。",
		},
		{
			GrammarPointID: gpAlso.ID, Kind: model.DrillTransfer,
			Prompt:        "接在「李さんは学生です」之后，表达「王さん也是学生」应该说？",
			Options:       `["王さんも学生です","王さんは学生も","も王さんは学生です","王さんです学生も"]`,
			CorrectOption: 0,
			Explanation:   "も 替换 は 出现在话题之后。",
		},
	}
	for i := range drills {
		db.Create(&drills[i])
	}

	words := []model.VocabWord{
		{LessonID: lesson.ID, Word: "学生", Reading: "がくせい", Meaning: "学生"},
		{LessonID: lesson.ID, Word: "先生", Reading: "せんせい", Meaning: "老师"},
		{LessonID: lesson.ID, Word: "本", Reading: "ほん", Meaning: "书"},
		{LessonID: lesson.ID, Word: "私", Reading: "わたし", Meaning: "我"},
	}
	for i := range words {
		db.Create(&words[i])
	}

	sentences := []struct {
		sentence  model.Sentence
		keyPoints []string
	}{
		{
			sentence: model.Sentence{
				LessonID: lesson.ID, GrammarPointID: gpTopic.ID,
				Text: "私は学生です。", Translation: "我是学生。",
			},
			keyPoints: []string{"は 标记话题", "名词 + です 结句", "省略主语以外的成分"},
		},
		{
			sentence: model.Sentence{
				LessonID: lesson.ID, GrammarPointID: gpAlso.ID,
				Text: "田中さんも先生です。", Translation: "田中先生也是老师。",
			},
			keyPoints: []string{"も 替换 は", "人名 + さん", "名词 + です 结句"},
		},
	}
	for _, s := range sentences {
		db.Create(&s.sentence)
		for _, label := range s.keyPoints {
			db.Create(&model.SentenceKeyPoint{SentenceID: s.sentence.ID, Label: label})
		}
	}

	log.Println("Seeded demo lesson content")
}
