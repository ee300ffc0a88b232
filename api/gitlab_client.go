package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"notiontojira/config"
	"notiontojira/models"
)

// GitLabClient はGitLab APIとのやり取りを処理します
type GitLabClient struct {
	config  *config.Config
	client  *http.Client
	baseURL string
}

// NewGitLabClient は新しいGitLabクライアントを作成します
func NewGitLabClient(cfg *config.Config) *GitLabClient {
	return &GitLabClient{
		config:  cfg,
		client:  &http.Client{},
		baseURL: cfg.GitLabURL,
	}
}

// doRequest はGitLab APIへのGETリクエストを送信し、レスポンスボディを返します
func (g *GitLabClient) doRequest(requestURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("PRIVATE-TOKEN", g.config.GitLabToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitLab APIエラー: ステータス %d - %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// ListCommitsSince は指定時刻以降のコミットを取得します
func (g *GitLabClient) ListCommitsSince(since time.Time) ([]models.Commit, error) {
	requestURL := fmt.Sprintf("%s/api/v4/projects/%s/repository/commits?since=%s&per_page=100",
		g.baseURL,
		url.PathEscape(g.config.GitLabProjectID),
		url.QueryEscape(since.Format(time.RFC3339)))

	respBody, err := g.doRequest(requestURL)
	if err != nil {
		return nil, err
	}

	var commits []models.Commit
	if err := json.Unmarshal(respBody, &commits); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return commits, nil
}

// ListMergeRequestsSince は指定時刻以降に更新されたマージリクエストを取得します
func (g *GitLabClient) ListMergeRequestsSince(since time.Time) ([]models.MergeRequest, error) {
	requestURL := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests?updated_after=%s&per_page=100",
		g.baseURL,
		url.PathEscape(g.config.GitLabProjectID),
		url.QueryEscape(since.Format(time.RFC3339)))

	respBody, err := g.doRequest(requestURL)
	if err != nil {
		return nil, err
	}

	var mrs []models.MergeRequest
	if err := json.Unmarshal(respBody, &mrs); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return mrs, nil
}

// CheckAuth はGitLab認証とプロジェクトへのアクセスをチェックします
func (g *GitLabClient) CheckAuth() error {
	requestURL := fmt.Sprintf("%s/api/v4/projects/%s", g.baseURL, url.PathEscape(g.config.GitLabProjectID))
	if _, err := g.doRequest(requestURL); err != nil {
		return err
	}
	return nil
}
