package srs

import "strings"

// 叙述模板片段：按星级档位与各分项正确率阈值拼装，完全离线、确定性。
// 外部 AI 协作方之后可以异步覆盖这段文字。

var starFragments = map[int]string{
	5: "完美的一次练习！三个环节全部保持了极高的正确率。",
	4: "表现很出色，今天的内容已经基本吃透了。",
	3: "整体不错，大部分知识点都掌握住了。",
	2: "今天有些吃力，但坚持完成本身就是进步。",
	1: "这次错误偏多，别灰心，明天的复习会帮你补回来。",
	0: "今天的内容还比较陌生，多见几次就会熟悉起来。",
}

// BuildNarrative 由星级与三项子正确率生成确定性的会话小结
func BuildNarrative(stars int, grammarAcc, vocabAcc, sentenceHitRate float64) string {
	parts := []string{starFragments[Clamp(stars, 0, 5)]}

	switch {
	case grammarAcc >= 0.9:
		parts = append(parts, "语法练习几乎全对，可以期待更长的复习间隔。")
	case grammarAcc >= 0.6:
		parts = append(parts, "语法部分还算稳定，注意出错的那几道题考察的句型。")
	default:
		parts = append(parts, "语法是本次的薄弱环节，相关语法点会提前安排复习。")
	}

	switch {
	case vocabAcc >= 0.9:
		parts = append(parts, "词汇反应又快又准。")
	case vocabAcc >= 0.6:
		parts = append(parts, "词汇部分有几个词还不够熟练。")
	default:
		parts = append(parts, "多数词汇还没有形成即时反应，它们会更频繁地出现在复习队列里。")
	}

	switch {
	case sentenceHitRate >= 0.7:
		parts = append(parts, "例句要点的覆盖达标，说明你能主动运用这些语法特征。")
	default:
		parts = append(parts, "例句要点覆盖不足，试着在产出时刻意使用目标句型。")
	}

	return strings.Join(parts, "")
}
