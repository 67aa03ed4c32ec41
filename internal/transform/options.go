package transform

import (
	"garden/internal/domain/config"
)

// Options 是链接改写阶段的全部开关；一次构建内只读共享
type Options struct {
	Strategy          config.ResolveStrategy
	PrettyLinks       bool
	OpenLinksInNewTab bool
	LazyLoad          bool
	ExternalLinkIcon  bool

	// 按声明顺序匹配，第一条命中即停
	Rules []Rule
}

func DefaultOptions() Options {
	return Options{
		Strategy:          config.ResolveAbsolute,
		PrettyLinks:       true,
		OpenLinksInNewTab: false,
		LazyLoad:          false,
		ExternalLinkIcon:  true,
	}
}

// FromConfig 把 yaml 里的开关落到 Options 上；规则只能由代码提供
func FromConfig(tc config.TransformConfig) Options {
	opts := DefaultOptions()
	if tc.Strategy != "" {
		opts.Strategy = tc.Strategy
	}
	opts.PrettyLinks = tc.PrettyLinksEnabled()
	opts.OpenLinksInNewTab = tc.OpenInNewTab
	opts.LazyLoad = tc.LazyLoad
	opts.ExternalLinkIcon = tc.ExternalIconEnabled()
	return opts
}
