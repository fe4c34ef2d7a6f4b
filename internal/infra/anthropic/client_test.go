package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateMessageSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("нет ключа в заголовке")
		}
		if r.Header.Get("anthropic-version") != apiVersion {
			t.Errorf("нет версии API")
		}
		var req MessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.MaxTokens != 2000 || req.System != "sys" || len(req.Messages) != 1 {
			t.Errorf("неверный запрос: %+v", req)
		}
		_, _ = w.Write([]byte(`{"id":"msg_1","model":"claude-test","content":[{"type":"tool_use"},{"type":"text","text":"hello"}],"usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL+"/", 0)
	resp, err := c.CreateMessage(context.Background(), MessagesRequest{
		Model:     "claude-test",
		MaxTokens: 2000,
		System:    "sys",
		Messages:  []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Content) != 2 || resp.Content[1].Text != "hello" {
		t.Fatalf("неверный ответ: %+v", resp)
	}
	if resp.Usage.InputTokens+resp.Usage.OutputTokens != 15 {
		t.Fatalf("неверные токены: %+v", resp.Usage)
	}
}

func TestCreateMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, 0)
	_, err := c.CreateMessage(context.Background(), MessagesRequest{Model: "m", MaxTokens: 10})
	if err == nil || !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("ожидали ошибку API, получили %v", err)
	}
}

func TestCreateMessageStatusErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "тело с ошибкой", status: http.StatusBadRequest, body: `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`, want: "bad model"},
		{name: "пустое тело", status: http.StatusInternalServerError, body: ``, want: "unexpected status 500"},
		{name: "не JSON", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: "unexpected status 502"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			resp, err := NewClient("key", srv.URL, 0).CreateMessage(context.Background(), MessagesRequest{Model: "m", MaxTokens: 10})
			if err == nil {
				t.Fatalf("ожидали ошибку для статуса %d, получили ответ %+v", tc.status, resp)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("ожидали %q в ошибке, получили %v", tc.want, err)
			}
			if len(resp.Content) != 0 {
				t.Fatalf("ответ при ошибке должен быть пустым: %+v", resp)
			}
		})
	}
}

func TestCreateMessageWithoutKey(t *testing.T) {
	c := NewClient("", "", 0)
	if _, err := c.CreateMessage(context.Background(), MessagesRequest{}); err == nil {
		t.Fatalf("ожидали ошибку без ключа")
	}
}
