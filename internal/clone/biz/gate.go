package biz

import "strings"

// ChatTurn 一条助手回复的展示形态。
// FullContent 非空时表示回复已被折叠，DisplayContent 为截断后的前缀。
type ChatTurn struct {
	DisplayContent string `json:"displayContent"`
	FullContent    string `json:"fullContent,omitempty"`
	IsSummarized   bool   `json:"isSummarized"`
}

// Gate 按词数折叠过长回复：超过 threshold 个词时只展示前 threshold/2 个词并追加 "..."。
func Gate(text string, threshold int) ChatTurn {
	if threshold < 1 {
		threshold = 1
	}

	words := strings.Fields(text)
	if len(words) <= threshold {
		return ChatTurn{DisplayContent: text}
	}

	return ChatTurn{
		DisplayContent: strings.Join(words[:threshold/2], " ") + "...",
		FullContent:    text,
		IsSummarized:   true,
	}
}
