package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notiontojira/config"
	"notiontojira/models"
)

// Notion APIのバージョン (リクエストヘッダーで必須)
const notionVersion = "2022-06-28"

// イシューデータベースのプロパティ名
const (
	propTitle       = "Title"
	propDescription = "Description"
	propPriority    = "Priority"
	propStatus      = "Status"
	propAssignee    = "Assignee"
	propJiraKey     = "Jira Issue Key"
	propLastSynced  = "Last Synced"
)

// アクティビティデータベースのプロパティ名
const (
	actPropTitle    = "Title"
	actPropType     = "Type"
	actPropSourceID = "Source ID"
	actPropAuthor   = "Author"
	actPropDate     = "Date"
	actPropLink     = "Link"
	actPropRelated  = "Related Record"
	actPropState    = "State"
)

// NotionClient は1つのボードに対するNotion APIとのやり取りを処理します
type NotionClient struct {
	config  *config.Config
	board   config.BoardConfig
	client  *http.Client
	baseURL string
}

// NewNotionClient は新しいNotionクライアントを作成します
func NewNotionClient(cfg *config.Config, board config.BoardConfig) *NotionClient {
	return &NotionClient{
		config:  cfg,
		board:   board,
		client:  &http.Client{},
		baseURL: "https://api.notion.com/v1",
	}
}

// Name はボード名を返します
func (n *NotionClient) Name() string {
	return n.board.Name
}

// Notion APIレスポンスの最小限の構造
type notionRichText struct {
	PlainText string `json:"plain_text"`
}

type notionSelect struct {
	Name string `json:"name"`
}

type notionDate struct {
	Start string `json:"start"`
}

type notionPerson struct {
	Name string `json:"name"`
}

type notionProperty struct {
	Type     string           `json:"type"`
	Title    []notionRichText `json:"title"`
	RichText []notionRichText `json:"rich_text"`
	Select   *notionSelect    `json:"select"`
	Status   *notionSelect    `json:"status"`
	Date     *notionDate      `json:"date"`
	People   []notionPerson   `json:"people"`
	URL      string           `json:"url"`
}

type notionPage struct {
	ID             string                    `json:"id"`
	LastEditedTime time.Time                 `json:"last_edited_time"`
	Properties     map[string]notionProperty `json:"properties"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

// doRequest はNotion APIへのリクエストを送信し、レスポンスボディを返します
func (n *NotionClient) doRequest(method, url string, payload map[string]interface{}) ([]byte, error) {
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

	req.Header.Set("Authorization", "Bearer "+n.config.NotionToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Notion APIエラー: ステータス %d - %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// queryDatabase はデータベースをページネーション込みでクエリします
func (n *NotionClient) queryDatabase(databaseID string, payload map[string]interface{}) ([]notionPage, error) {
	url := fmt.Sprintf("%s/databases/%s/query", n.baseURL, databaseID)

	if payload == nil {
		payload = map[string]interface{}{}
	}

	var pages []notionPage
	for {
		respBody, err := n.doRequest("POST", url, payload)
		if err != nil {
			return nil, err
		}

		var result notionQueryResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
		}

		pages = append(pages, result.Results...)
		if !result.HasMore {
			break
		}
		payload["start_cursor"] = result.NextCursor
	}

	return pages, nil
}

// QueryUnlinked はJIRAイシューキーが未設定のレコードを取得します
func (n *NotionClient) QueryUnlinked() ([]models.Record, error) {
	payload := map[string]interface{}{
		"filter": map[string]interface{}{
			"property": propJiraKey,
			"rich_text": map[string]interface{}{
				"is_empty": true,
			},
		},
	}

	pages, err := n.queryDatabase(n.board.DatabaseID, payload)
	if err != nil {
		return nil, err
	}

	return n.parseRecords(pages), nil
}

// QueryAll はボード上の全レコードを取得します
func (n *NotionClient) QueryAll() ([]models.Record, error) {
	pages, err := n.queryDatabase(n.board.DatabaseID, nil)
	if err != nil {
		return nil, err
	}

	return n.parseRecords(pages), nil
}

// QueryRecentlyEdited は指定時刻以降に編集されたレコードを編集時刻の新しい順で取得します
func (n *NotionClient) QueryRecentlyEdited(since time.Time) ([]models.Record, error) {
	payload := map[string]interface{}{
		"filter": map[string]interface{}{
			"timestamp": "last_edited_time",
			"last_edited_time": map[string]interface{}{
				"on_or_after": since.Format(time.RFC3339),
			},
		},
		"sorts": []map[string]interface{}{
			{
				"timestamp": "last_edited_time",
				"direction": "descending",
			},
		},
	}

	pages, err := n.queryDatabase(n.board.DatabaseID, payload)
	if err != nil {
		return nil, err
	}

	return n.parseRecords(pages), nil
}

// WriteLinkResult はレコードにJIRAイシューキーと同期時刻を書き戻します
func (n *NotionClient) WriteLinkResult(recordID, issueKey string, syncedAt time.Time) error {
	url := fmt.Sprintf("%s/pages/%s", n.baseURL, recordID)

	payload := map[string]interface{}{
		"properties": map[string]interface{}{
			propJiraKey: map[string]interface{}{
				"rich_text": []map[string]interface{}{
					{"text": map[string]interface{}{"content": issueKey}},
				},
			},
			propLastSynced: map[string]interface{}{
				"date": map[string]interface{}{
					"start": syncedAt.Format(time.RFC3339),
				},
			},
		},
	}

	if _, err := n.doRequest("PATCH", url, payload); err != nil {
		return err
	}

	return nil
}

// CreateActivity はアクティビティデータベースにレコードを作成します
func (n *NotionClient) CreateActivity(act models.Activity, relatedRecordID string) error {
	if n.board.ActivityDatabaseID == "" {
		return fmt.Errorf("ボード %s にアクティビティデータベースが設定されていません", n.board.Name)
	}

	url := fmt.Sprintf("%s/pages", n.baseURL)

	payload := map[string]interface{}{
		"parent": map[string]interface{}{
			"database_id": n.board.ActivityDatabaseID,
		},
		"properties": map[string]interface{}{
			actPropTitle: map[string]interface{}{
				"title": []map[string]interface{}{
					{"text": map[string]interface{}{"content": act.Title}},
				},
			},
			actPropType: map[string]interface{}{
				"select": map[string]interface{}{"name": act.SourceType},
			},
			actPropSourceID: map[string]interface{}{
				"rich_text": []map[string]interface{}{
					{"text": map[string]interface{}{"content": act.SourceID}},
				},
			},
			actPropAuthor: map[string]interface{}{
				"rich_text": []map[string]interface{}{
					{"text": map[string]interface{}{"content": act.Author}},
				},
			},
			actPropDate: map[string]interface{}{
				"date": map[string]interface{}{
					// アクティビティの日付は日単位で保存する
					"start": act.OccurredAt.Format("2006-01-02"),
				},
			},
			actPropLink: map[string]interface{}{
				"url": act.URL,
			},
			actPropRelated: map[string]interface{}{
				"relation": []map[string]interface{}{
					{"id": relatedRecordID},
				},
			},
			actPropState: map[string]interface{}{
				"select": map[string]interface{}{"name": act.State},
			},
		},
	}

	if _, err := n.doRequest("POST", url, payload); err != nil {
		return err
	}

	return nil
}

// QueryRecentActivities は指定時刻以降に作成済みのアクティビティを取得します
func (n *NotionClient) QueryRecentActivities(since time.Time) ([]models.Activity, error) {
	if n.board.ActivityDatabaseID == "" {
		return nil, nil
	}

	payload := map[string]interface{}{
		"filter": map[string]interface{}{
			"property": actPropDate,
			"date": map[string]interface{}{
				"on_or_after": since.Format("2006-01-02"),
			},
		},
	}

	pages, err := n.queryDatabase(n.board.ActivityDatabaseID, payload)
	if err != nil {
		return nil, err
	}

	activities := make([]models.Activity, 0, len(pages))
	for _, page := range pages {
		act := models.Activity{
			Title:      plainText(page.Properties[actPropTitle].Title),
			SourceID:   plainText(page.Properties[actPropSourceID].RichText),
			SourceType: selectName(page.Properties[actPropType]),
		}
		activities = append(activities, act)
	}

	return activities, nil
}

// CheckAuth はNotion認証とデータベースへのアクセスをチェックします
func (n *NotionClient) CheckAuth() error {
	url := fmt.Sprintf("%s/databases/%s", n.baseURL, n.board.DatabaseID)
	if _, err := n.doRequest("GET", url, nil); err != nil {
		return err
	}
	return nil
}

// parseRecords はNotionページをレコードに変換します
func (n *NotionClient) parseRecords(pages []notionPage) []models.Record {
	records := make([]models.Record, 0, len(pages))
	for _, page := range pages {
		records = append(records, n.parseRecord(page))
	}
	return records
}

// parseRecord は1つのNotionページをレコードに変換します。
// プロパティの欠落は呼び出し側でデフォルト補完するため、ここでは空のまま返します。
func (n *NotionClient) parseRecord(page notionPage) models.Record {
	record := models.Record{
		ID:           page.ID,
		Source:       n.board.Name,
		LastEditedAt: page.LastEditedTime,
	}

	record.Title = plainText(page.Properties[propTitle].Title)
	record.Description = plainText(page.Properties[propDescription].RichText)
	record.Priority = selectName(page.Properties[propPriority])
	record.Status = selectName(page.Properties[propStatus])
	record.JiraKey = plainText(page.Properties[propJiraKey].RichText)

	if people := page.Properties[propAssignee].People; len(people) > 0 {
		record.Assignee = people[0].Name
	}

	if date := page.Properties[propLastSynced].Date; date != nil && date.Start != "" {
		record.LastSyncedAt = parseNotionDate(date.Start)
	}

	return record
}

// plainText はリッチテキスト配列を連結した文字列を返します
func plainText(texts []notionRichText) string {
	var builder strings.Builder
	for _, t := range texts {
		builder.WriteString(t.PlainText)
	}
	return builder.String()
}

// selectName はselect/statusどちらのプロパティ型からも値を取り出します
func selectName(prop notionProperty) string {
	if prop.Select != nil {
		return prop.Select.Name
	}
	if prop.Status != nil {
		return prop.Status.Name
	}
	return ""
}

// parseNotionDate はNotionの日付文字列 (日付のみ、または日時) を解析します
func parseNotionDate(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Time{}
}
