package models

import (
	"fmt"
	"time"
)

// 優先度の値 (Notion側のセレクト値をそのまま使用)
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// ステータスの値 (Notion側のセレクト値)
const (
	StatusTodo       = "Todo"
	StatusInProgress = "InProgress"
	StatusDone       = "Done"
)

// アクティビティの種別
const (
	ActivityCommit       = "commit"
	ActivityMergeRequest = "merge_request"
)

// Record はNotionデータベース上のイシューレコードを表します
type Record struct {
	ID           string // NotionページID (システム採番、不変)
	Source       string // 所属ボード名 (例: "main", "frontend")
	Title        string
	Description  string
	Priority     string    // High / Medium / Low
	Status       string    // Todo / InProgress / Done (将来拡張あり)
	Assignee     string    // 担当者の表示名 (未設定なら空)
	JiraKey      string    // 連携済みJIRAイシューキー (未連携なら空)
	LastSyncedAt time.Time // ゼロ値 = 未同期
	LastEditedAt time.Time // Notionが採番する最終編集時刻
}

// Linked はレコードがJIRAイシューと連携済みかどうかを返します
func (r Record) Linked() bool {
	return r.JiraKey != ""
}

// Activity はNotionにミラーされるリポジトリアクティビティを表します
type Activity struct {
	SourceType string // commit / merge_request
	SourceID   string // コミットハッシュ先頭8桁 または MR番号
	Title      string
	Author     string
	OccurredAt time.Time // 日単位に切り詰める
	URL        string
	State      string // マージ済みならDone、それ以外はInProgress
}

// DedupKey は重複排除用のキーを返します。
// 作成時と既存スキャン時で同じ導出規則を使うこと。
func (a Activity) DedupKey() string {
	return a.SourceType + "_" + a.SourceID
}

// Commit はGitLabのコミットを表します
type Commit struct {
	ID         string    `json:"id"`
	ShortID    string    `json:"short_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	WebURL     string    `json:"web_url"`
}

// MergeRequest はGitLabのマージリクエストを表します
type MergeRequest struct {
	IID         int       `json:"iid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	State       string    `json:"state"` // opened / closed / merged
	UpdatedAt   time.Time `json:"updated_at"`
	WebURL      string    `json:"web_url"`
	Author      struct {
		Name string `json:"name"`
	} `json:"author"`
}

// IssueFields はJIRAイシューの作成・更新に使うフィールド群です
type IssueFields struct {
	Summary     string
	Description string
	Priority    string
	AccountID   string // 担当者のJIRAアカウントID (未解決なら空)
	Labels      []string
}

// PassResult は1つの同期パスの実行結果です
type PassResult struct {
	Name       string
	Candidates int
	Succeeded  int
	Failed     int
	Skipped    int
	Failures   []string // 失敗内容の一覧 (運用者向け)
}

// AddFailure は失敗を1件記録します
func (p *PassResult) AddFailure(format string, v ...interface{}) {
	p.Failed++
	p.Failures = append(p.Failures, fmt.Sprintf(format, v...))
}

// RunReport は1回の同期実行全体のサマリーです
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Passes     []*PassResult
}

// NewRunReport は開始時刻を記録したレポートを作成します
func NewRunReport() *RunReport {
	return &RunReport{StartedAt: time.Now()}
}

// StartPass は新しいパスの結果を追加して返します
func (r *RunReport) StartPass(name string) *PassResult {
	p := &PassResult{Name: name}
	r.Passes = append(r.Passes, p)
	return p
}

// TotalFailed は全パスの失敗件数の合計を返します
func (r *RunReport) TotalFailed() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Failed
	}
	return total
}
