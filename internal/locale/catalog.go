// Package locale 提供表单前端使用的文案。服务端不解释这些字符串。
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Bundle /lang 接口的响应体
type Bundle struct {
	Labels       bool              `json:"labels"`
	Translations map[string]string `json:"translations"`
}

// Catalog 已加载的全部语言文案
type Catalog struct {
	tags         []language.Tag
	translations map[language.Tag]map[string]string
	matcher      language.Matcher
}

// Load 从内置文件加载语言文案
func Load() (*Catalog, error) {
	return LoadFS(localesFS, "locales")
}

// LoadFS 从 fsys 的 dir 目录加载 {lang}.yaml 文件
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(path.Ext(e.Name()), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	c := &Catalog{translations: make(map[language.Tag]map[string]string)}
	for _, name := range names {
		tag, err := language.Parse(strings.TrimSuffix(name, path.Ext(name)))
		if err != nil {
			return nil, fmt.Errorf("locale file %s: %w", name, err)
		}

		raw, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}

		strs := make(map[string]string)
		if err := yaml.Unmarshal(raw, &strs); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}

		c.tags = append(c.tags, tag)
		c.translations[tag] = strs
	}

	if len(c.tags) == 0 {
		return nil, fmt.Errorf("no locale files found in %s", dir)
	}

	// 英文优先作为回退语言
	sort.SliceStable(c.tags, func(i, j int) bool {
		return c.tags[i] == language.English && c.tags[j] != language.English
	})
	c.matcher = language.NewMatcher(c.tags)

	return c, nil
}

// Languages 返回可用语言
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// Bundle 返回与 lang 最匹配的语言文案
//
// 参数:
//   - lang: BCP 47 语言标签，如 "fr-FR"；无法匹配时回退到默认语言
//   - labels: 前端是否显示字段标签
func (c *Catalog) Bundle(lang string, labels bool) Bundle {
	_, idx, _ := c.matcher.Match(language.Make(lang))
	return Bundle{
		Labels:       labels,
		Translations: c.translations[c.tags[idx]],
	}
}
