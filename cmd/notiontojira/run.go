package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notiontojira/api"
	"notiontojira/config"
	"notiontojira/services"
	"notiontojira/utils"
)

// runCmd は同期バッチを1回実行するコマンドを返します。
// すべてのパスが完了すれば終了コード0です (レコード単位の失敗があっても)。
// 予期しないエラーで実行が中断した場合のみ非ゼロで終了します。
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "同期バッチを1回実行する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
			}

			utils.LogSection(fmt.Sprintf("Notion-JIRA 同期開始 (v%s)", version))
			utils.LogInfo("同期対象ボード: %d 件", len(cfg.Boards))

			boards := make([]services.BoardAdapter, 0, len(cfg.Boards))
			for _, board := range cfg.Boards {
				boards = append(boards, api.NewNotionClient(cfg, board))
			}
			jiraClient := api.NewJiraClient(cfg)
			gitlabClient := api.NewGitLabClient(cfg)

			syncService := services.NewSyncService(cfg, boards, jiraClient, gitlabClient)

			report, err := syncService.Run()
			services.PrintReport(report)
			if err != nil {
				return fmt.Errorf("同期処理が中断されました: %w", err)
			}

			utils.LogSection("同期完了")
			return nil
		},
	}
}
