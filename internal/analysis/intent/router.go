package intent

import "strings"

// Kind 表示一条聊天输入应交给哪条处理链路。
type Kind string

const (
	Chat  Kind = "chat"
	Image Kind = "image"
	Score Kind = "score"
)

// Decision 给出路由结果以及命中的关键词。
type Decision struct {
	Kind    Kind
	Keyword string
}

// 关键词按子串匹配（大小写无关），"patented" 同样命中 "patent"
var keywordBuckets = map[Kind][]string{
	Score: {"score", "patent"},
}

// Classify 决定输入的处理方式：带图片优先走图片分析，其次是评分关键词，其余为普通对话。
func Classify(text string, hasImage bool) Decision {
	if hasImage {
		return Decision{Kind: Image}
	}

	normalized := strings.ToLower(text)
	if strings.TrimSpace(normalized) == "" {
		return Decision{Kind: Chat}
	}

	for _, word := range keywordBuckets[Score] {
		if strings.Contains(normalized, word) {
			return Decision{Kind: Score, Keyword: word}
		}
	}

	return Decision{Kind: Chat}
}
