package services

import (
	"regexp"
	"strings"

	"notiontojira/config"
	"notiontojira/models"
)

// フィールド欠落時のデフォルト値
const (
	defaultTitle    = "Untitled"
	defaultPriority = models.PriorityMedium
)

// Mapper はNotionレコードとJIRAペイロード間の純粋な変換を担当します。
// I/Oは行いません。
type Mapper struct {
	mapping    *config.Mapping
	keyPattern *regexp.Regexp
}

// NewMapper は新しいマッパーを作成します
func NewMapper(mapping *config.Mapping) *Mapper {
	// イシューキーは <プレフィックス>-<数字> の形式
	pattern := regexp.MustCompile(regexp.QuoteMeta(mapping.KeyPrefix) + `-\d+`)
	return &Mapper{
		mapping:    mapping,
		keyPattern: pattern,
	}
}

// BuildCreateFields はイシュー作成用のフィールドを構築します。
// タイトル欠落は "Untitled"、優先度の欠落・未知の値は "Medium" で補完します。
func (m *Mapper) BuildCreateFields(record models.Record) models.IssueFields {
	fields := m.BuildUpdateFields(record)

	// 出自ボード名と設定の追加ラベルを付与する
	if record.Source != "" {
		fields.Labels = append(fields.Labels, record.Source)
	}
	fields.Labels = append(fields.Labels, m.mapping.ExtraLabels...)

	return fields
}

// BuildUpdateFields は内容更新用のフィールドを構築します。
// ステータスと担当者は含みません (別パスで処理するため)。
func (m *Mapper) BuildUpdateFields(record models.Record) models.IssueFields {
	title := strings.TrimSpace(record.Title)
	if title == "" {
		title = defaultTitle
	}

	return models.IssueFields{
		Summary:     title,
		Description: record.Description,
		Priority:    normalizePriority(record.Priority),
	}
}

// StatusToTransition はNotionステータスをJIRAトランジションIDに変換します。
// マッピングがない場合は false を返します (呼び出し側でスキップ)。
func (m *Mapper) StatusToTransition(status string) (string, bool) {
	transitionID, ok := m.mapping.StatusTransitions[status]
	return transitionID, ok
}

// AssigneeQuery は担当者の表示名からJIRAユーザー検索クエリを引きます。
// 対応表にない名前は false を返します (エラーではありません)。
func (m *Mapper) AssigneeQuery(name string) (string, bool) {
	query, ok := m.mapping.Assignees[name]
	return query, ok
}

// ExtractIssueKeys は自由テキストからイシューキーを出現順に抽出します。
// 重複もそのまま返します (重複排除は呼び出し側の責務)。
func (m *Mapper) ExtractIssueKeys(text string) []string {
	return m.keyPattern.FindAllString(text, -1)
}

// normalizePriority は優先度を既知の値に正規化します
func normalizePriority(priority string) string {
	switch priority {
	case models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
		return priority
	default:
		return defaultPriority
	}
}
