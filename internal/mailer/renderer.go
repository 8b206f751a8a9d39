package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"smam/backend/internal/domain"
)

//go:embed templates/message.html
var templatesFS embed.FS

// RenderParams 渲染邮件所需的参数
type RenderParams struct {
	Subject     string
	FromName    string
	FromAddress string
	Text        string              // 用户输入的正文（Markdown）
	Fields      []domain.FieldValue // 规范化后的自定义字段，按定义顺序
}

// Renderer 将用户输入渲染为 HTML 邮件正文
//
// 正文先经 goldmark 转为 HTML（原始 HTML 被丢弃），再由 bluemonday 过滤，
// 最后填入 html/template 布局。
type Renderer struct {
	tmpl   *template.Template
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer 创建渲染器
//
// 参数:
//   - templatePath: 自定义模板文件路径，为空时使用内置模板
func NewRenderer(templatePath string) (*Renderer, error) {
	var (
		raw []byte
		err error
	)
	if templatePath != "" {
		raw, err = os.ReadFile(templatePath)
	} else {
		raw, err = templatesFS.ReadFile("templates/message.html")
	}
	if err != nil {
		return nil, fmt.Errorf("read mail template: %w", err)
	}

	tmpl, err := template.New("message").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse mail template: %w", err)
	}

	return &Renderer{
		tmpl: tmpl,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}, nil
}

// Render 渲染邮件 HTML
func (r *Renderer) Render(p RenderParams) (string, error) {
	var body bytes.Buffer
	if err := r.md.Convert([]byte(p.Text), &body); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}

	data := struct {
		RenderParams
		Body template.HTML
	}{
		RenderParams: p,
		Body:         template.HTML(r.policy.SanitizeBytes(body.Bytes())),
	}

	var out bytes.Buffer
	if err := r.tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("execute mail template: %w", err)
	}
	return out.String(), nil
}
