package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

const (
	maxBodyBytes = 5 * 1024 * 1024
	maxTextBytes = 10 * 1024
)

// ErrNoText возвращается, если на странице не нашлось текста.
var ErrNoText = errors.New("no text content found")

// HTTP загружает страницу статьи и извлекает читаемый текст.
type HTTP struct {
	client *http.Client
}

// New создаёт загрузчик страниц.
func New(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// Fetch реализует domain.PageFetcher.
func (f *HTTP) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "content-dashboard/1.0")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("fetcher", "get", u.Host, start, err)
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		metrics.ObserveNetworkRequest("fetcher", "get", u.Host, start, err)
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.ObserveNetworkRequest("fetcher", "get", u.Host, start, err)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text := ExtractText(string(body))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true,
	"header": true, "footer": true, "aside": true,
	"noscript": true, "iframe": true, "form": true,
}

// ExtractText возвращает текст документа без служебных блоков, не длиннее 10 КБ.
func ExtractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	result := strings.Join(strings.Fields(sb.String()), " ")
	if len(result) > maxTextBytes {
		cut := maxTextBytes
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut] + "..."
	}
	return result
}
