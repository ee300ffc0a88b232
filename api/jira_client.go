package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"notiontojira/config"
	"notiontojira/models"
)

// JiraClient はJIRA APIとのやり取りを処理します
type JiraClient struct {
	config  *config.Config
	client  *http.Client
	baseURL string
}

// NewJiraClient は新しいJIRAクライアントを作成します
func NewJiraClient(cfg *config.Config) *JiraClient {
	return &JiraClient{
		config:  cfg,
		client:  &http.Client{},
		baseURL: cfg.JiraURL,
	}
}

// doRequest はJIRA APIへのリクエストを送信し、レスポンスボディを返します
func (j *JiraClient) doRequest(method, url string, payload map[string]interface{}, wantStatus int) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
		}
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.SetBasicAuth(j.config.JiraEmail, j.config.JiraAPIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("JIRA APIエラー: ステータス %d - %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// CheckAuth はJIRA認証をチェックします
func (j *JiraClient) CheckAuth() error {
	url := fmt.Sprintf("%s/rest/api/3/myself", j.baseURL)
	if _, err := j.doRequest("GET", url, nil, http.StatusOK); err != nil {
		return err
	}
	return nil
}

// adfDescription は説明文をAtlassian Document Formatで包みます。
// 出自が分かるように "From Notion: " を先頭に付けます。
func adfDescription(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []map[string]interface{}{
			{
				"type": "paragraph",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": "From Notion: " + description,
					},
				},
			},
		},
	}
}

// CreateIssue はJIRAイシューを作成し、イシューキーを返します
func (j *JiraClient) CreateIssue(fields models.IssueFields) (string, error) {
	url := fmt.Sprintf("%s/rest/api/3/issue", j.baseURL)

	// ラベルが空でないことを確認
	labels := fields.Labels
	if labels == nil {
		labels = []string{}
	}

	issueFields := map[string]interface{}{
		"project":     map[string]string{"key": j.config.JiraProjectKey},
		"summary":     fields.Summary,
		"description": adfDescription(fields.Description),
		"issuetype":   map[string]string{"name": "Task"},
		"priority":    map[string]string{"name": fields.Priority},
		"labels":      labels,
	}

	// 担当者が解決できた場合のみ設定する
	if fields.AccountID != "" {
		issueFields["assignee"] = map[string]string{"id": fields.AccountID}
	}

	payload := map[string]interface{}{"fields": issueFields}

	respBody, err := j.doRequest("POST", url, payload, http.StatusCreated)
	if err != nil {
		return "", err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	issueKey, ok := result["key"].(string)
	if !ok {
		return "", fmt.Errorf("イシューキーが見つかりません")
	}

	return issueKey, nil
}

// UpdateIssue はJIRAイシューの内容フィールドを更新します。
// ステータスと担当者はここでは変更しません (別パスで処理)。
func (j *JiraClient) UpdateIssue(issueKey string, fields models.IssueFields) error {
	url := fmt.Sprintf("%s/rest/api/3/issue/%s", j.baseURL, issueKey)

	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			"summary":     fields.Summary,
			"description": adfDescription(fields.Description),
			"priority":    map[string]string{"name": fields.Priority},
		},
	}

	if _, err := j.doRequest("PUT", url, payload, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

// UpdateAssignee はJIRAイシューの担当者を更新します
func (j *JiraClient) UpdateAssignee(issueKey, accountID string) error {
	url := fmt.Sprintf("%s/rest/api/3/issue/%s/assignee", j.baseURL, issueKey)

	payload := map[string]interface{}{
		"accountId": accountID,
	}

	if _, err := j.doRequest("PUT", url, payload, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

// TransitionStatus はJIRAイシューのステータスをトランジションIDで変更します
func (j *JiraClient) TransitionStatus(issueKey, transitionID string) error {
	url := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", j.baseURL, issueKey)

	payload := map[string]interface{}{
		"transition": map[string]string{
			"id": transitionID,
		},
	}

	if _, err := j.doRequest("POST", url, payload, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

// SearchUser はJIRAユーザーを検索し、最初に一致したアカウントIDを返します。
// 一致がない場合は空文字列を返します (エラーではありません)。
func (j *JiraClient) SearchUser(query string) (string, error) {
	searchURL := fmt.Sprintf("%s/rest/api/3/user/search?query=%s", j.baseURL, url.QueryEscape(query))

	respBody, err := j.doRequest("GET", searchURL, nil, http.StatusOK)
	if err != nil {
		return "", err
	}

	var users []struct {
		AccountID string `json:"accountId"`
	}
	if err := json.Unmarshal(respBody, &users); err != nil {
		return "", fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if len(users) == 0 {
		return "", nil
	}

	return users[0].AccountID, nil
}
