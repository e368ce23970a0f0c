package utils

import (
	"bytes"
	"html"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// 菜谱步骤：GFM 表格/删除线 + 自动识别链接，换行即换行
var (
	recipeMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
	recipePolicy = newRecipePolicy()
)

// newRecipePolicy 用户内容白名单；不允许 id，避免和页面上的锚点冲突
func newRecipePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// RenderMarkdown 把菜谱步骤的 Markdown 渲染为 text_html
func RenderMarkdown(source string) template.HTML {
	if source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := recipeMarkdown.Convert([]byte(source), &buf); err != nil {
		return template.HTML("<p>" + html.EscapeString(source) + "</p>")
	}
	return EnhanceHTMLContent(recipePolicy.Sanitize(buf.String()))
}
