package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivityDedupKey(t *testing.T) {
	commit := Activity{SourceType: ActivityCommit, SourceID: "abcdef12"}
	assert.Equal(t, "commit_abcdef12", commit.DedupKey())

	mr := Activity{SourceType: ActivityMergeRequest, SourceID: "7"}
	assert.Equal(t, "merge_request_7", mr.DedupKey())
}

func TestRecordLinked(t *testing.T) {
	assert.False(t, Record{}.Linked())
	assert.True(t, Record{JiraKey: "PROJ-1"}.Linked())
}

func TestRunReport_Totals(t *testing.T) {
	report := NewRunReport()

	first := report.StartPass("イシュー作成")
	first.Succeeded = 2
	first.AddFailure("イシュー作成失敗 (%s): %v", "r1", "503")

	second := report.StartPass("ステータス同期")
	second.AddFailure("ステータス更新失敗 %s", "PROJ-2")
	second.AddFailure("ステータス更新失敗 %s", "PROJ-3")

	assert.Equal(t, 3, report.TotalFailed())
	assert.Len(t, first.Failures, 1)
	assert.Contains(t, second.Failures[0], "PROJ-2")
}
