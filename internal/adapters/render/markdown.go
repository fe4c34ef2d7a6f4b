package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown собирает выпуск в один документ. Пустые разделы пропускаются.
func Markdown(n domain.Newsletter) string {
	blocks := make([]string, 0, len(n.Sections))
	for _, s := range n.Sections {
		body := strings.TrimSpace(s.BodyMarkdown)
		if body == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## %s\n\n%s", s.Title, body))
	}
	return fmt.Sprintf("# %s\n\n%s", n.Title, strings.Join(blocks, "\n\n---\n\n"))
}

// HTML переводит markdown выпуска в страницу для предпросмотра.
func HTML(n domain.Newsletter) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(n)), &body); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(n.Title))
	b.WriteString("</title>\n</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
