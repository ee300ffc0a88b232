package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"notiontojira/api"
	"notiontojira/config"
)

// checkCmd は3つの外部システムへの認証を検証するコマンドを返します
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Notion・JIRA・GitLabへの認証を検証する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("設定の読み込みに失敗しました: %w", err)
			}

			ok := color.New(color.FgGreen).Sprint("OK")
			ng := color.New(color.FgRed).Sprint("NG")
			failed := false

			jiraClient := api.NewJiraClient(cfg)
			if err := jiraClient.CheckAuth(); err != nil {
				fmt.Printf("JIRA: %s (%v)\n", ng, err)
				failed = true
			} else {
				fmt.Printf("JIRA: %s\n", ok)
			}

			for _, board := range cfg.Boards {
				notionClient := api.NewNotionClient(cfg, board)
				if err := notionClient.CheckAuth(); err != nil {
					fmt.Printf("Notion (%s): %s (%v)\n", board.Name, ng, err)
					failed = true
				} else {
					fmt.Printf("Notion (%s): %s\n", board.Name, ok)
				}
			}

			if cfg.GitLabProjectID != "" {
				gitlabClient := api.NewGitLabClient(cfg)
				if err := gitlabClient.CheckAuth(); err != nil {
					fmt.Printf("GitLab: %s (%v)\n", ng, err)
					failed = true
				} else {
					fmt.Printf("GitLab: %s\n", ok)
				}
			}

			if failed {
				return fmt.Errorf("認証チェックに失敗しました")
			}
			return nil
		},
	}
}
