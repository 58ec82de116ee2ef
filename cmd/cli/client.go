// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("RETAIL_AGENT_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(5*time.Minute).
		SetHeader("Content-Type", "application/json")
	if token := os.Getenv("RETAIL_AGENT_TOKEN"); token != "" {
		c.SetAuthToken(token)
	}
	return c
}

// apiError 非预期状态码时的统一错误
func apiError(method, path string, resp *resty.Response) error {
	return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode(), resp.String())
}

func getJSON(path string, params map[string]string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetQueryParams(params).
		SetResult(&out).
		Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apiError("GET", path, resp)
	}
	return out, nil
}

func postJSON(path string, body interface{}, wantStatus int) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetBody(body).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != wantStatus {
		return nil, apiError("POST", path, resp)
	}
	return out, nil
}

func health() (map[string]interface{}, error) {
	return getJSON("/api/health", nil)
}

func askAgent(task, conversationID string) (map[string]interface{}, error) {
	body := map[string]interface{}{"task": task}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	return postJSON("/api/agent/query", body, http.StatusOK)
}

func newConversation() (string, error) {
	out, err := postJSON("/api/agent/conversations", nil, http.StatusCreated)
	if err != nil {
		return "", err
	}
	id, _ := out["conversation_id"].(string)
	return id, nil
}

func runSweep() (map[string]interface{}, error) {
	return postJSON("/api/agent/replenish", nil, http.StatusOK)
}

func listHistory(limit int) (map[string]interface{}, error) {
	return getJSON("/api/agent/history", map[string]string{"limit": strconv.Itoa(limit)})
}

func listTools() (map[string]interface{}, error) {
	return getJSON("/api/tools", nil)
}

func callTool(name string, args map[string]interface{}) (map[string]interface{}, error) {
	return postJSON("/api/tools/call", map[string]interface{}{"name": name, "arguments": args}, http.StatusOK)
}

func getStock(sku string) (map[string]interface{}, error) {
	params := map[string]string{"include_pending": "true"}
	if sku == "" {
		return getJSON("/api/stock", params)
	}
	return getJSON("/api/stock/"+sku, params)
}

func listOrders(status string) (map[string]interface{}, error) {
	params := map[string]string{}
	if status != "" {
		params["status"] = status
	}
	return getJSON("/api/orders", params)
}

func login(username, password string) (string, error) {
	out, err := postJSON("/api/auth/login", map[string]string{"username": username, "password": password}, http.StatusOK)
	if err != nil {
		return "", err
	}
	token, _ := out["token"].(string)
	if token == "" {
		return "", fmt.Errorf("login: empty token")
	}
	return token, nil
}

func prettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
