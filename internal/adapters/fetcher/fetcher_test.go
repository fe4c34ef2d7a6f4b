package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractTextSkipsChrome(t *testing.T) {
	doc := `<html><head><style>.x{}</style><script>var a;</script></head>
<body><nav>menu</nav><article><h1>Title</h1><p>First   paragraph.</p><p>Second</p></article><footer>foot</footer></body></html>`
	got := ExtractText(doc)
	if got != "Title First paragraph. Second" {
		t.Fatalf("неожиданный текст: %q", got)
	}
}

func TestExtractTextTruncates(t *testing.T) {
	doc := "<p>" + strings.Repeat("я", 20000) + "</p>"
	got := ExtractText(doc)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("ожидали обрезку текста")
	}
	if len(got) > maxTextBytes+3 {
		t.Fatalf("текст длиннее лимита: %d", len(got))
	}
	if !strings.HasPrefix(got, "я") || strings.ContainsRune(got, '�') {
		t.Fatalf("обрезка разрезала руну")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("<p>hello world</p>"))
		case "/empty":
			_, _ = w.Write([]byte("<script>x</script>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(0)
	text, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil || text != "hello world" {
		t.Fatalf("ожидали текст страницы, получили %q, %v", text, err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/empty"); err != ErrNoText {
		t.Fatalf("ожидали ErrNoText, получили %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); err == nil {
		t.Fatalf("ожидали ошибку на 404")
	}
	if _, err := f.Fetch(context.Background(), "ftp://example.com"); err == nil {
		t.Fatalf("ожидали ошибку схемы")
	}
}
