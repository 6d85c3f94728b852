package collector

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// DecodeEntities 解码 HTML 实体直到结果不再变化，因此 DecodeEntities(DecodeEntities(s)) == DecodeEntities(s)。
// 每一轮有变化要么少一个 '&'，要么字符串变短，所以循环一定结束。
func DecodeEntities(s string) string {
	for {
		next := html.UnescapeString(s)
		if next == s {
			return s
		}
		s = next
	}
}

func StripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

// CleanText 先去标签再解码实体，最后合并空白。解码出的 "<" 保留为文本。
func CleanText(s string) string {
	s = DecodeEntities(StripTags(s))
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// SanitizeURL 只接受绝对的 http/https 地址，其它一律返回 "#"
func SanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "#"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "#"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "#"
	}
	return u.String()
}

// TruncateRunes 按 rune 截断，不追加省略号
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	rs := []rune(s)
	return string(rs[:limit])
}
