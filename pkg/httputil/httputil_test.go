package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient 测试创建基础客户端
func TestNewClient(t *testing.T) {
	client := NewClient()
	if client.timeout != 30*time.Second {
		t.Errorf("默认超时时间应为30秒，实际为 %v", client.timeout)
	}
	if client.headers["User-Agent"] != "agentorch/1.0" {
		t.Errorf("默认User-Agent不正确: %s", client.headers["User-Agent"])
	}

	customClient := NewClient(
		WithTimeout(10*time.Second),
		WithHeaders(map[string]string{"X-Custom": "value", "User-Agent": "custom/2.0"}),
		WithRetries(3),
	)
	if customClient.timeout != 10*time.Second {
		t.Errorf("自定义超时时间应为10秒，实际为 %v", customClient.timeout)
	}
	if customClient.headers["X-Custom"] != "value" {
		t.Errorf("自定义头未设置")
	}
	if customClient.headers["User-Agent"] != "custom/2.0" {
		t.Errorf("自定义User-Agent被覆盖: %s", customClient.headers["User-Agent"])
	}
	if customClient.retries != 3 {
		t.Errorf("重试次数应为3，实际为 %d", customClient.retries)
	}
}

// TestClientGetJSON 测试GetJSON方法
func TestClientGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("期望GET请求，实际为 %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	var result map[string]string
	if err := NewClient().GetJSON(context.Background(), server.URL, &result); err != nil {
		t.Fatalf("GetJSON() 错误: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("期望 status='ok'，实际为 '%s'", result["status"])
	}
}

// TestClientPostJSONWithHeaders 测试PostJSON附加请求头
func TestClientPostJSONWithHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("期望Content-Type为application/json")
		}
		if r.Header.Get("X-Activity-ID") != "act-1" {
			t.Errorf("请求头未透传: %q", r.Header.Get("X-Activity-ID"))
		}

		var reqBody map[string]string
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": reqBody["message"]})
	}))
	defer server.Close()

	var result map[string]string
	err := NewClient().PostJSONWithHeaders(context.Background(), server.URL,
		map[string]string{"X-Activity-ID": "act-1"},
		map[string]string{"message": "hello"}, &result)
	if err != nil {
		t.Fatalf("PostJSON() 错误: %v", err)
	}
	if result["echo"] != "hello" {
		t.Errorf("期望 echo='hello'，实际为 '%s'", result["echo"])
	}
}

// TestClientStatusError 非 2xx 返回带状态码的错误
func TestClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewClient().PostJSON(context.Background(), server.URL, map[string]string{}, nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("期望 *StatusError，实际为 %v", err)
	}
	if statusErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("状态码不正确: %d", statusErr.Code)
	}
	if statusErr.Body != "slow down" {
		t.Errorf("响应体不正确: %q", statusErr.Body)
	}
}

// TestClientRetriesServerErrors 5xx 按配置重试且请求体可重放
func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]string
		_ = json.NewDecoder(r.Body).Decode(&reqBody)
		if reqBody["message"] != "hello" {
			t.Errorf("重试时请求体丢失: %v", reqBody)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	var result map[string]string
	err := NewClient(WithRetries(2)).PostJSON(context.Background(), server.URL, map[string]string{"message": "hello"}, &result)
	if err != nil {
		t.Fatalf("PostJSON() 错误: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("期望请求3次，实际为 %d", calls.Load())
	}
}

// TestClientDoesNotRetryClientErrors 4xx 不重试
func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewClient(WithRetries(3)).GetJSON(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("期望返回错误")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx 不应重试，实际请求 %d 次", calls.Load())
	}
}

// TestClientTimeout 超时错误可被识别
func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	err := NewClient(WithTimeout(20*time.Millisecond)).GetJSON(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("期望超时错误")
	}
	var netErr interface{ Timeout() bool }
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("期望超时错误，实际为 %v", err)
	}
}
