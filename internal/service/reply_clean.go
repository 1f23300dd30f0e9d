package service

import (
	"regexp"
	"strings"
)

var (
	replyRolePrefix = regexp.MustCompile(`(?i)^\s*(assistant|bot|securebank)\s*:\s*`)
	replyFence      = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\\s*```\\s*$")
)

// cleanReply quita BOM, el prefijo de rol que a veces repite el modelo y un
// fence que envuelva toda la respuesta.
func cleanReply(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	if m := replyFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = replyRolePrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
