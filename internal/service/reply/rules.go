package reply

import (
	"context"
	"regexp"
	"strings"

	"github.com/zhouzirui/z-chat/internal/service/history"
)

// NameNotePrefix marks a history note that records the user's name.
const NameNotePrefix = "USER_NAME_IS:"

const (
	greetingKeyword = "こんにちは"
	askNameKeyword  = "名前は？"
	weatherKeyword  = "天気"

	greetingReply = "こんにちは！"
	weatherReply  = "今日の天気は晴れです！"
	unknownReply  = "すみません、よく分かりません。"
	introReply    = "私はAIです。あなたのお名前は何ですか？"
)

var introducePattern = regexp.MustCompile(`私の名前は(.+)です`)

// Rules is the keyword responder. The first matching rule wins.
type Rules struct{}

// NewRules returns the keyword responder.
func NewRules() *Rules {
	return &Rules{}
}

// Generate never fails.
func (r *Rules) Generate(_ context.Context, prior []history.Entry, message string) (Result, error) {
	if name, ok := introducedName(message); ok {
		return Result{
			Reply: "こんにちは、" + name + "さん！",
			Notes: []string{NameNotePrefix + name},
		}, nil
	}

	if strings.Contains(message, greetingKeyword) {
		return Result{Reply: greetingReply}, nil
	}

	if strings.Contains(message, askNameKeyword) {
		if name, ok := RememberedName(prior); ok {
			return Result{Reply: name + "さん、こんにちは！私はAIです。"}, nil
		}
		return Result{Reply: introReply}, nil
	}

	if strings.Contains(message, weatherKeyword) {
		return Result{Reply: weatherReply}, nil
	}

	return Result{Reply: unknownReply}, nil
}

func introducedName(message string) (string, bool) {
	match := introducePattern.FindStringSubmatch(message)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// NameNotes returns the notes Rules would record for message, so other
// generators remember introductions too.
func NameNotes(message string) []string {
	if name, ok := introducedName(message); ok {
		return []string{NameNotePrefix + name}
	}
	return nil
}

// RememberedName returns the most recently noted user name.
func RememberedName(entries []history.Entry) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Role != history.RoleNote {
			continue
		}
		if name, ok := strings.CutPrefix(entry.Content, NameNotePrefix); ok && name != "" {
			return name, true
		}
	}
	return "", false
}
