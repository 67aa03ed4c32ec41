package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"garden/internal/build"
	"garden/internal/domain/config"
	"garden/internal/serve"
	"garden/internal/transform"
)

const indexPath = ".garden/index.db"

// 默认替换规则：协议链接换成可读目标 + 专属图标。
// 顺序敏感，第一条命中即停。
func defaultRules() []transform.Rule {
	return []transform.Rule{
		{
			Pattern: regexp.MustCompile(`^mailto:(.+)$`),
			Icon:    transform.GlyphIcon{Text: "✉"},
		},
		{
			Pattern: regexp.MustCompile(`^tel:(.+)$`),
			Icon:    transform.GlyphIcon{Text: "☎"},
		},
		{
			Pattern: regexp.MustCompile(`^xmpp:(.+)$`),
			Icon: transform.VectorIcon{
				ViewBox: "0 0 512 512",
				Path:    "M256 32C132.3 32 32 132.3 32 256s100.3 224 224 224 224-100.3 224-224S379.7 32 256 32zm0 64c88.4 0 160 71.6 160 160s-71.6 160-160 160S96 344.4 96 256 167.6 96 256 96z",
			},
		},
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: garden <build|serve>")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadOrDefault("./site.yaml")
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	switch os.Args[1] {
	case "build":
		runBuild(cfg)
	case "serve":
		runServe(cfg)
	default:
		usage()
	}
}

func runBuild(cfg config.Config) {
	b := &build.Builder{
		Cfg:       cfg,
		IndexPath: indexPath,
		Rules:     defaultRules(),
	}
	res, err := b.Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "build error:", err.Error())
		os.Exit(1)
	}
	for _, w := range res.Warnings {
		log.Printf("[warn] %s: %s", w.Path, w.Msg)
	}
	log.Printf("[build] %d notes -> %s", res.Notes, cfg.Build.PublicDir)
}

func runServe(cfg config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := serve.New(cfg, indexPath, cfg.Build.ThemeDir, cfg.Site.Theme, defaultRules())
	if err != nil {
		fmt.Fprintln(os.Stderr, "serve init error:", err.Error())
		os.Exit(1)
	}
	defer s.Close()

	if err := s.ListenAndServe(ctx, ":8080"); err != nil {
		fmt.Fprintln(os.Stderr, "serve error:", err.Error())
		os.Exit(1)
	}
}
