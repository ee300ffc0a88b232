package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "notiontojira",
		Short:   "Notion・JIRA・GitLab 同期ツール",
		Version: version,
		Long: `Notionボード上のイシューをJIRAに同期し、GitLabのコミット・
マージリクエストをNotionにミラーするバッチ同期ツールです。`,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
