// Package srs 实现复习调度与会话评分的纯函数核心。
// 所有函数都是确定性的：复习队列评分和会话结算必须对相同输入
// 产生相同的调度结果，因此这里不允许出现任何 IO 或随机性。
package srs

import "math"

const (
	// 难度系数的线性映射区间
	minEase = 1.3
	maxEase = 2.5

	// 语法与词汇两条轨道各自的最大复习间隔（天）
	maxGrammarIntervalDays = 60
	maxVocabIntervalDays   = 45
)

// EaseFactor 将 0-100 的掌握度/强度线性映射到 [1.3, 2.5]
func EaseFactor(metric int) float64 {
	return minEase + float64(metric)/100*(maxEase-minEase)
}

// GradeInterval 语法轨道：由新的掌握度、连对次数和本组是否全对得出下次复习延迟（天）。
// 任何错误都会把间隔拉回 1 天。
func GradeInterval(mastery, streak int, allCorrect bool) int {
	if !allCorrect {
		return 1
	}
	switch {
	case streak <= 1:
		return 1
	case streak == 2:
		return 3
	}
	days := int(math.Round(3 * math.Pow(EaseFactor(mastery), float64(streak-2))))
	if days > maxGrammarIntervalDays {
		return maxGrammarIntervalDays
	}
	return days
}

// VocabInterval 词汇轨道：由新的强度和本次是否答对得出下次复习延迟（天）
func VocabInterval(strength int, correct bool) int {
	if !correct {
		return 1
	}
	switch {
	case strength < 30:
		return 1
	case strength < 50:
		return 2
	}
	reps := strength / 20 // 0..5
	if reps > 1 {
		reps = reps - 1
	} else {
		reps = 0
	}
	days := int(math.Round(2 * math.Pow(EaseFactor(strength), float64(reps))))
	if days > maxVocabIntervalDays {
		return maxVocabIntervalDays
	}
	return days
}
