package ingest

import (
	"bytes"
	"errors"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

var errNoFrontMatter = errors.New("no front matter found")
var errInvalidFrontMatter = errors.New("invalid front matter")

type FrontMatter struct {
	Title   string `yaml:"title"`
	Slug    string `yaml:"slug"`
	Date    string `yaml:"date"`
	Updated string `yaml:"updated"`

	Tags []string `yaml:"tags"`

	Pinned int    `yaml:"pinned"`
	Hidden bool   `yaml:"hidden"`
	Draft  bool   `yaml:"draft"`
	Cover  string `yaml:"cover"`

	Description string   `yaml:"description"`
	Aliases     []string `yaml:"aliases"`

	ShortID string `yaml:"short"`
}

func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return FrontMatter{}, raw, errNoFrontMatter
	}

	// 统一换行符
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	if !bytes.HasPrefix(norm, []byte(sepLine)) {
		return FrontMatter{}, raw, errNoFrontMatter
	}

	// 去掉首行 "---\n"
	rest := norm[len(sepLine):]

	var yamlPart, bodyPart []byte

	// 优先走最常见的情况：中间有 "\n---\n"
	if parts := bytes.SplitN(rest, []byte(closeMid), 2); len(parts) == 2 {
		yamlPart = parts[0]
		bodyPart = parts[1]
	} else {
		// 可能是结尾是 "\n---" 且无正文
		if bytes.HasSuffix(rest, []byte("\n"+sep)) {
			yamlPart = rest[:len(rest)-len("\n"+sep)]
			bodyPart = nil
		} else if bytes.Equal(bytes.TrimSpace(rest), []byte(sep)) {
			// "---\n---"：空 front matter，无正文
			yamlPart = nil
			bodyPart = nil
		} else {
			return FrontMatter{}, raw, errInvalidFrontMatter
		}
	}

	yamlPart = bytes.TrimSpace(yamlPart)
	bodyPart = bytes.TrimSpace(bodyPart)

	var fm FrontMatter
	if len(yamlPart) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return FrontMatter{}, raw, err
		}
	}

	return fm, bodyPart, nil
}

// ResolveSlug 推导 path-like slug：目录前缀来自文件相对路径，
// 末段优先 front matter 的 slug，其次 title，最后文件名。
func ResolveSlug(fm FrontMatter, rel string) string {
	dir := path.Dir(rel)

	var prefix string
	if dir != "." && dir != "/" {
		segs := strings.Split(dir, "/")
		out := make([]string, 0, len(segs))
		for _, seg := range segs {
			if s := Slugify(seg); s != "" {
				out = append(out, s)
			}
		}
		prefix = strings.Join(out, "/")
	}

	var last string
	if s := strings.TrimSpace(fm.Slug); s != "" {
		last = Slugify(s)
	} else if t := strings.TrimSpace(fm.Title); t != "" {
		last = Slugify(t)
	} else {
		base := path.Base(rel)
		last = Slugify(strings.TrimSuffix(base, path.Ext(base)))
	}
	if last == "" {
		return ""
	}
	if prefix == "" {
		return last
	}
	return prefix + "/" + last
}

func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		time.DateOnly,
		"2006-01-02 15:04",
		time.DateTime,
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func Slugify(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// 组合字符统一成 NFC，避免同一标题产生两个 slug
	s = norm.NFC.String(s)

	var out []rune
	lastDash := false

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]

		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r <= unicode.MaxASCII {
				if 'A' <= r && r <= 'Z' {
					r = r + ('a' - 'A')
				}
			}
			out = append(out, r)
			lastDash = false
		case r == '-' || r == '_' || r == '.' || unicode.IsSpace(r):
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}

		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
