package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// BoardConfig は同期対象のNotionボード1つ分の設定です
type BoardConfig struct {
	Name               string `yaml:"name"`
	DatabaseID         string `yaml:"database_id"`
	ActivityDatabaseID string `yaml:"activity_database_id"`
}

// Config はアプリケーション全体の設定を保持します。
// 起動時に一度だけ構築し、クライアントとサービスに参照で渡します。
// コアロジック内での環境変数の直接参照は禁止です。
type Config struct {
	// Notion API設定
	NotionToken string
	Boards      []BoardConfig

	// JIRA API設定
	JiraURL        string
	JiraEmail      string
	JiraAPIToken   string
	JiraProjectKey string

	// GitLab API設定
	GitLabURL       string
	GitLabToken     string
	GitLabProjectID string

	// 同期ウィンドウ・ペーシング設定
	PacingDelay      time.Duration // イシュー作成呼び出しの間隔
	QuiescenceWindow time.Duration // 編集直後のレコードを除外する猶予時間
	EditLookback     time.Duration // 更新パスの編集検索範囲
	ActivityLookback time.Duration // アクティビティ重複排除の遡り範囲
	PollWindow       time.Duration // GitLabアクティビティの取得範囲

	// マッピング設定
	Mapping *Mapping
}

// LoadConfig は環境変数とマッピングファイルから設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		NotionToken:      os.Getenv("NOTION_TOKEN"),
		JiraURL:          strings.TrimRight(os.Getenv("JIRA_URL"), "/"),
		JiraEmail:        os.Getenv("JIRA_EMAIL"),
		JiraAPIToken:     os.Getenv("JIRA_API_TOKEN"),
		JiraProjectKey:   os.Getenv("JIRA_PROJECT_KEY"),
		GitLabURL:        strings.TrimRight(getEnvWithDefault("GITLAB_URL", "https://gitlab.com"), "/"),
		GitLabToken:      os.Getenv("GITLAB_TOKEN"),
		GitLabProjectID:  os.Getenv("GITLAB_PROJECT_ID"),
		PacingDelay:      getEnvAsDurationWithDefault("PACING_DELAY", time.Second),
		QuiescenceWindow: getEnvAsDurationWithDefault("QUIESCENCE_WINDOW", time.Hour),
		EditLookback:     getEnvAsDurationWithDefault("EDIT_LOOKBACK", 24*time.Hour),
		ActivityLookback: getEnvAsDurationWithDefault("ACTIVITY_LOOKBACK", 7*24*time.Hour),
		PollWindow:       getEnvAsDurationWithDefault("POLL_WINDOW", 24*time.Hour),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// マッピングファイルの読み込み (省略可、デフォルトあり)
	mapping, err := LoadMapping(getEnvWithDefault("MAPPING_FILE", "sync_mapping.yaml"), config.JiraProjectKey)
	if err != nil {
		return nil, fmt.Errorf("マッピングファイル読み込みエラー: %w", err)
	}
	config.Mapping = mapping

	// メインボードは環境変数から。追加ボードはマッピングファイルで定義します。
	if dbID := os.Getenv("NOTION_DATABASE_ID"); dbID != "" {
		config.Boards = append(config.Boards, BoardConfig{
			Name:               getEnvWithDefault("NOTION_BOARD_NAME", "main"),
			DatabaseID:         dbID,
			ActivityDatabaseID: os.Getenv("NOTION_ACTIVITY_DATABASE_ID"),
		})
	}
	config.Boards = append(config.Boards, mapping.Boards...)

	if len(config.Boards) == 0 {
		return nil, fmt.Errorf("同期対象のボードが設定されていません (NOTION_DATABASE_ID またはマッピングファイルで指定してください)")
	}

	return config, nil
}

// Validate は必須の環境変数が揃っているか確認します
func (c *Config) Validate() error {
	missing := []string{}
	if c.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.JiraURL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if c.JiraEmail == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if c.JiraAPIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if c.JiraProjectKey == "" {
		missing = append(missing, "JIRA_PROJECT_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	return nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数をDurationとして取得
func getEnvAsDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
