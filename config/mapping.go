package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"notiontojira/models"
)

// Mapping はプロジェクトごとの対応表を保持します。
// YAMLファイルで上書きできますが、ファイルがなければデフォルト値で動作します。
type Mapping struct {
	// NotionステータスからJIRAトランジションIDへの対応
	StatusTransitions map[string]string `yaml:"status_transitions"`
	// 担当者の表示名からJIRAユーザー検索クエリ (メールアドレス等) への対応
	Assignees map[string]string `yaml:"assignees"`
	// イシューキーのプレフィックス (省略時はJIRAプロジェクトキー)
	KeyPrefix string `yaml:"key_prefix"`
	// 作成時に付与する追加ラベル
	ExtraLabels []string `yaml:"extra_labels"`
	// 追加の同期対象ボード
	Boards []BoardConfig `yaml:"boards"`
}

// defaultStatusTransitions は既定のトランジションIDです
func defaultStatusTransitions() map[string]string {
	return map[string]string{
		models.StatusTodo:       "11",
		models.StatusInProgress: "21",
		models.StatusDone:       "31",
	}
}

// LoadMapping はマッピングファイルを読み込みます。
// ファイルが存在しない場合はデフォルトのマッピングを返します。
func LoadMapping(path, projectKey string) (*Mapping, error) {
	mapping := &Mapping{
		StatusTransitions: defaultStatusTransitions(),
		Assignees:         map[string]string{},
		KeyPrefix:         projectKey,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mapping, nil
		}
		return nil, fmt.Errorf("マッピングファイルオープンエラー: %w", err)
	}

	loaded := &Mapping{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("マッピングファイル解析エラー: %w", err)
	}

	// 明示された項目のみ上書きする
	if len(loaded.StatusTransitions) > 0 {
		mapping.StatusTransitions = loaded.StatusTransitions
	}
	if len(loaded.Assignees) > 0 {
		mapping.Assignees = loaded.Assignees
	}
	if loaded.KeyPrefix != "" {
		mapping.KeyPrefix = loaded.KeyPrefix
	}
	mapping.ExtraLabels = loaded.ExtraLabels
	mapping.Boards = loaded.Boards

	return mapping, nil
}
