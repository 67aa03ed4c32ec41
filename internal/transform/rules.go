package transform

import (
	"regexp"
	"strings"
)

// Rule 把命中 Pattern 的链接替换成捕获组的拼接，并给它配一个图标
type Rule struct {
	Pattern *regexp.Regexp
	Icon    Icon
}

// matchRules 按声明顺序找第一条命中的规则。
// 刻意写成显式循环 + 提前 return，保证 first-match-wins 的短路语义。
func matchRules(dest string, rules []Rule) (string, Icon, bool) {
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(dest)
		if m == nil {
			continue
		}
		// 捕获组直接拼接，无分隔符
		return strings.Join(m[1:], ""), r.Icon, true
	}
	return dest, nil, false
}
