package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiontojira/models"
)

// 必須の環境変数を設定するヘルパー
func setRequiredEnv(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret")
	t.Setenv("NOTION_DATABASE_ID", "db-issues")
	t.Setenv("JIRA_URL", "https://example.atlassian.net/")
	t.Setenv("JIRA_EMAIL", "bot@example.com")
	t.Setenv("JIRA_API_TOKEN", "token")
	t.Setenv("JIRA_PROJECT_KEY", "PROJ")
}

func TestLoadConfig(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://example.atlassian.net", cfg.JiraURL, "末尾のスラッシュは取り除く")
	assert.Equal(t, "https://gitlab.com", cfg.GitLabURL)

	// ウィンドウ類のデフォルト値
	assert.Equal(t, time.Second, cfg.PacingDelay)
	assert.Equal(t, time.Hour, cfg.QuiescenceWindow)
	assert.Equal(t, 24*time.Hour, cfg.EditLookback)
	assert.Equal(t, 7*24*time.Hour, cfg.ActivityLookback)
	assert.Equal(t, 24*time.Hour, cfg.PollWindow)

	// メインボードは環境変数から構成される
	require.Len(t, cfg.Boards, 1)
	assert.Equal(t, "main", cfg.Boards[0].Name)
	assert.Equal(t, "db-issues", cfg.Boards[0].DatabaseID)

	// デフォルトのトランジションマッピング
	assert.Equal(t, "11", cfg.Mapping.StatusTransitions[models.StatusTodo])
	assert.Equal(t, "21", cfg.Mapping.StatusTransitions[models.StatusInProgress])
	assert.Equal(t, "31", cfg.Mapping.StatusTransitions[models.StatusDone])
	assert.Equal(t, "PROJ", cfg.Mapping.KeyPrefix, "プレフィックス未指定ならプロジェクトキー")
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("JIRA_EMAIL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_TOKEN")
	assert.Contains(t, err.Error(), "JIRA_EMAIL")
}

func TestLoadConfig_DurationOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUIESCENCE_WINDOW", "30m")
	t.Setenv("PACING_DELAY", "500ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.QuiescenceWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.PacingDelay)
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUIESCENCE_WINDOW", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.QuiescenceWindow)
}

func TestLoadConfig_MappingFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "sync_mapping.yaml")
	content := `
status_transitions:
  Todo: "101"
  InProgress: "201"
  Done: "301"
assignees:
  Alice: alice@example.com
key_prefix: TEAM
extra_labels:
  - notion-sync
boards:
  - name: frontend
    database_id: db-frontend
    activity_database_id: db-frontend-acts
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("MAPPING_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "101", cfg.Mapping.StatusTransitions[models.StatusTodo])
	assert.Equal(t, "alice@example.com", cfg.Mapping.Assignees["Alice"])
	assert.Equal(t, "TEAM", cfg.Mapping.KeyPrefix)
	assert.Equal(t, []string{"notion-sync"}, cfg.Mapping.ExtraLabels)

	// 環境変数のメインボード + マッピングファイルの追加ボード
	require.Len(t, cfg.Boards, 2)
	assert.Equal(t, "main", cfg.Boards[0].Name)
	assert.Equal(t, "frontend", cfg.Boards[1].Name)
	assert.Equal(t, "db-frontend", cfg.Boards[1].DatabaseID)
}

func TestLoadConfig_NoBoards(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTION_DATABASE_ID", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadMapping_FileMissingUsesDefaults(t *testing.T) {
	mapping, err := LoadMapping(filepath.Join(t.TempDir(), "missing.yaml"), "PROJ")
	require.NoError(t, err)

	assert.Equal(t, "PROJ", mapping.KeyPrefix)
	assert.Equal(t, "31", mapping.StatusTransitions[models.StatusDone])
	assert.Empty(t, mapping.Assignees)
}

func TestLoadMapping_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("status_transitions: [oops"), 0o644))

	_, err := LoadMapping(path, "PROJ")
	assert.Error(t, err)
}

func TestLoadMapping_PartialOverride(t *testing.T) {
	// 一部の項目だけ指定した場合、残りはデフォルトを維持する
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assignees:\n  Bob: bob@example.com\n"), 0o644))

	mapping, err := LoadMapping(path, "PROJ")
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", mapping.Assignees["Bob"])
	assert.Equal(t, "11", mapping.StatusTransitions[models.StatusTodo], "未指定の項目はデフォルトのまま")
	assert.Equal(t, "PROJ", mapping.KeyPrefix)
}
