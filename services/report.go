package services

import (
	"fmt"

	"github.com/fatih/color"

	"notiontojira/models"
)

// PrintReport は実行レポートのサマリーをコンソールに出力します
func PrintReport(report *models.RunReport) {
	fmt.Println()
	color.New(color.Bold).Println("同期実行サマリー")
	fmt.Printf("  開始: %s\n", report.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  終了: %s\n", report.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Println()

	for _, pass := range report.Passes {
		status := color.New(color.FgGreen).Sprint("OK")
		if pass.Failed > 0 {
			status = color.New(color.FgYellow).Sprintf("失敗 %d 件", pass.Failed)
		}
		fmt.Printf("  %-12s 対象=%d 成功=%d 失敗=%d スキップ=%d  %s\n",
			pass.Name, pass.Candidates, pass.Succeeded, pass.Failed, pass.Skipped, status)
	}

	if failed := report.TotalFailed(); failed > 0 {
		fmt.Println()
		color.New(color.FgYellow).Printf("失敗内容 (%d 件):\n", failed)
		for _, pass := range report.Passes {
			for _, failure := range pass.Failures {
				fmt.Printf("  - [%s] %s\n", pass.Name, failure)
			}
		}
	}

	fmt.Println()
}
