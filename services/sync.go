package services

import (
	"fmt"
	"strconv"
	"time"

	"notiontojira/config"
	"notiontojira/models"
	"notiontojira/utils"
)

// コミットIDは先頭8桁に切り詰めて識別子にします
const commitIDLength = 8

// BoardAdapter はNotionボードへの操作を抽象化します
type BoardAdapter interface {
	Name() string
	QueryUnlinked() ([]models.Record, error)
	QueryAll() ([]models.Record, error)
	QueryRecentlyEdited(since time.Time) ([]models.Record, error)
	WriteLinkResult(recordID, issueKey string, syncedAt time.Time) error
	CreateActivity(act models.Activity, relatedRecordID string) error
	QueryRecentActivities(since time.Time) ([]models.Activity, error)
}

// TrackerAdapter はJIRAへの操作を抽象化します
type TrackerAdapter interface {
	CreateIssue(fields models.IssueFields) (string, error)
	UpdateIssue(issueKey string, fields models.IssueFields) error
	UpdateAssignee(issueKey, accountID string) error
	TransitionStatus(issueKey, transitionID string) error
	// SearchUser は一致がない場合に空文字列を返します (エラーではありません)
	SearchUser(query string) (string, error)
}

// RepoHostAdapter はGitLabへの操作を抽象化します
type RepoHostAdapter interface {
	ListCommitsSince(since time.Time) ([]models.Commit, error)
	ListMergeRequestsSince(since time.Time) ([]models.MergeRequest, error)
}

// Pass は同期パスを表します。実行順は依存関係で固定です
// (作成がキーを確定しないと後続パスが動けないため)。
type Pass int

const (
	PassCreate Pass = iota
	PassUpdate
	PassAssignee
	PassStatus
	PassActivity
	passDone
)

// Next は次に実行するパスを返します
func (p Pass) Next() Pass {
	return p + 1
}

// String はパスの表示名を返します
func (p Pass) String() string {
	switch p {
	case PassCreate:
		return "イシュー作成"
	case PassUpdate:
		return "内容更新"
	case PassAssignee:
		return "担当者同期"
	case PassStatus:
		return "ステータス同期"
	case PassActivity:
		return "アクティビティミラー"
	default:
		return "unknown"
	}
}

// SyncService はNotion・JIRA・GitLab間の同期処理全体を実行します
type SyncService struct {
	config   *config.Config
	mapper   *Mapper
	boards   []BoardAdapter
	tracker  TrackerAdapter
	repoHost RepoHostAdapter

	// テストから差し替えるためのフック
	now   func() time.Time
	sleep func(time.Duration)
}

// NewSyncService は新しい同期サービスを作成します
func NewSyncService(cfg *config.Config, boards []BoardAdapter, tracker TrackerAdapter, repoHost RepoHostAdapter) *SyncService {
	return &SyncService{
		config:   cfg,
		mapper:   NewMapper(cfg.Mapping),
		boards:   boards,
		tracker:  tracker,
		repoHost: repoHost,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run は全パスを順番に実行します。
// アダプター由来のエラーはレコード単位で記録して処理を続けます。
// パニック (プログラミングエラー) のみ実行全体を中断し、エラーとして返します。
func (s *SyncService) Run() (*models.RunReport, error) {
	report := models.NewRunReport()
	defer utils.TrackTime(report.StartedAt, "同期処理全体")

	for pass := PassCreate; pass != passDone; pass = pass.Next() {
		if err := s.runPass(pass, report); err != nil {
			report.FinishedAt = s.now()
			return report, err
		}
	}

	report.FinishedAt = s.now()
	return report, nil
}

// runPass は1つのパスを実行します。パニックはここで捕捉して中断エラーに変換します
func (s *SyncService) runPass(pass Pass, report *models.RunReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s パスで予期しないエラーが発生しました: %v", pass, r)
		}
	}()

	utils.LogInfo("パス開始: %s", pass)
	start := time.Now()
	defer utils.TrackTime(start, pass.String())

	switch pass {
	case PassCreate:
		s.runCreatePass(report)
	case PassUpdate:
		s.runUpdatePass(report)
	case PassAssignee:
		s.runAssigneePass(report)
	case PassStatus:
		s.runStatusPass(report)
	case PassActivity:
		s.runActivityPass(report)
	}

	return nil
}

// runCreatePass はキー未設定のレコードからJIRAイシューを作成します。
// 作成成功後のキー書き戻しが失敗した場合、次回実行で重複作成のリスクが
// あるため、失敗として必ず報告します (at-least-once)。
func (s *SyncService) runCreatePass(report *models.RunReport) {
	result := report.StartPass(PassCreate.String())

	for _, board := range s.boards {
		records, err := board.QueryUnlinked()
		if err != nil {
			utils.LogError("ボード %s のクエリに失敗: %v", board.Name(), err)
			result.AddFailure("ボード %s: クエリ失敗: %v", board.Name(), err)
			continue
		}

		utils.LogInfo("ボード %s: 新規イシュー %d 件", board.Name(), len(records))

		for i, record := range records {
			// JIRAのレート制限を考慮して作成呼び出しの間隔を空ける
			if i > 0 {
				s.sleep(s.config.PacingDelay)
			}

			result.Candidates++

			fields := s.mapper.BuildCreateFields(record)
			s.resolveAssignee(&fields, record)

			issueKey, err := s.tracker.CreateIssue(fields)
			if err != nil {
				utils.LogError("イシュー作成失敗 (%s): %v", record.ID, err)
				result.AddFailure("ボード %s: イシュー作成失敗 (%s): %v", board.Name(), record.ID, err)
				continue
			}

			utils.LogInfo("JIRAイシュー作成成功: %s", issueKey)

			if err := board.WriteLinkResult(record.ID, issueKey, s.now()); err != nil {
				utils.LogError("キー書き戻し失敗 (%s → %s): %v", record.ID, issueKey, err)
				result.AddFailure("ボード %s: キー書き戻し失敗 (%s → %s): %v", board.Name(), record.ID, issueKey, err)
				continue
			}

			result.Succeeded++
		}
	}
}

// resolveAssignee は担当者をJIRAアカウントIDに解決します。
// 対応表にない・検索で見つからない場合は担当者なしで続行します (エラーではありません)。
func (s *SyncService) resolveAssignee(fields *models.IssueFields, record models.Record) {
	if record.Assignee == "" {
		return
	}

	query, ok := s.mapper.AssigneeQuery(record.Assignee)
	if !ok {
		utils.LogInfo("担当者 %s の対応表エントリがありません (担当者なしで続行)", record.Assignee)
		return
	}

	accountID, err := s.tracker.SearchUser(query)
	if err != nil {
		utils.LogWarn("担当者検索失敗 (%s): %v", query, err)
		return
	}
	if accountID == "" {
		utils.LogInfo("JIRAユーザーが見つかりません: %s (担当者なしで続行)", query)
		return
	}

	fields.AccountID = accountID
}

// updateCandidates は更新対象のレコードを絞り込みます。
// キー設定済み、かつ最終同期より後に編集済み、かつ編集から猶予時間が
// 経過しているレコードのみ対象にします (編集中の競合を避けるため)。
func (s *SyncService) updateCandidates(records []models.Record, now time.Time) []models.Record {
	var candidates []models.Record
	for _, record := range records {
		if !record.Linked() {
			continue
		}
		if now.Sub(record.LastEditedAt) < s.config.QuiescenceWindow {
			continue
		}
		if !record.LastSyncedAt.IsZero() && !record.LastEditedAt.After(record.LastSyncedAt) {
			continue
		}
		candidates = append(candidates, record)
	}
	return candidates
}

// runUpdatePass は編集済みレコードの内容フィールドをJIRAに反映します
func (s *SyncService) runUpdatePass(report *models.RunReport) {
	result := report.StartPass(PassUpdate.String())
	now := s.now()

	for _, board := range s.boards {
		records, err := board.QueryRecentlyEdited(now.Add(-s.config.EditLookback))
		if err != nil {
			utils.LogError("ボード %s のクエリに失敗: %v", board.Name(), err)
			result.AddFailure("ボード %s: クエリ失敗: %v", board.Name(), err)
			continue
		}

		candidates := s.updateCandidates(records, now)
		utils.LogInfo("ボード %s: 更新対象 %d 件", board.Name(), len(candidates))

		for _, record := range candidates {
			result.Candidates++

			fields := s.mapper.BuildUpdateFields(record)
			if err := s.tracker.UpdateIssue(record.JiraKey, fields); err != nil {
				utils.LogError("イシュー更新失敗 %s: %v", record.JiraKey, err)
				result.AddFailure("ボード %s: イシュー更新失敗 %s: %v", board.Name(), record.JiraKey, err)
				continue
			}

			if err := board.WriteLinkResult(record.ID, record.JiraKey, now); err != nil {
				utils.LogError("同期時刻更新失敗 (%s): %v", record.ID, err)
				result.AddFailure("ボード %s: 同期時刻更新失敗 (%s): %v", board.Name(), record.ID, err)
				continue
			}

			result.Succeeded++
		}
	}
}

// runAssigneePass は担当者変更のみをJIRAに反映する軽量パスです。
// ユーザー検索は失敗しやすいため、内容更新とは分離しています。
func (s *SyncService) runAssigneePass(report *models.RunReport) {
	result := report.StartPass(PassAssignee.String())
	now := s.now()

	for _, board := range s.boards {
		records, err := board.QueryRecentlyEdited(now.Add(-s.config.EditLookback))
		if err != nil {
			utils.LogError("ボード %s のクエリに失敗: %v", board.Name(), err)
			result.AddFailure("ボード %s: クエリ失敗: %v", board.Name(), err)
			continue
		}

		for _, record := range s.updateCandidates(records, now) {
			result.Candidates++

			if record.Assignee == "" {
				result.Skipped++
				continue
			}

			query, ok := s.mapper.AssigneeQuery(record.Assignee)
			if !ok {
				utils.LogInfo("担当者 %s の対応表エントリがありません: スキップ", record.Assignee)
				result.Skipped++
				continue
			}

			accountID, err := s.tracker.SearchUser(query)
			if err != nil {
				utils.LogError("担当者検索失敗 (%s): %v", query, err)
				result.AddFailure("ボード %s: 担当者検索失敗 (%s): %v", board.Name(), query, err)
				continue
			}
			if accountID == "" {
				utils.LogInfo("JIRAユーザーが見つかりません: %s: スキップ", query)
				result.Skipped++
				continue
			}

			if err := s.tracker.UpdateAssignee(record.JiraKey, accountID); err != nil {
				utils.LogError("担当者更新失敗 %s: %v", record.JiraKey, err)
				result.AddFailure("ボード %s: 担当者更新失敗 %s: %v", board.Name(), record.JiraKey, err)
				continue
			}

			result.Succeeded++
		}
	}
}

// runStatusPass はキー設定済みの全レコードのステータスをJIRAに反映します。
// 時間条件なしで毎回全件を評価します。トランジションの成否にかかわらず
// 同期時刻を更新します (失敗分は次回実行で再評価されるため)。
func (s *SyncService) runStatusPass(report *models.RunReport) {
	result := report.StartPass(PassStatus.String())
	now := s.now()

	for _, board := range s.boards {
		records, err := board.QueryAll()
		if err != nil {
			utils.LogError("ボード %s のクエリに失敗: %v", board.Name(), err)
			result.AddFailure("ボード %s: クエリ失敗: %v", board.Name(), err)
			continue
		}

		for _, record := range records {
			if !record.Linked() {
				continue
			}
			result.Candidates++

			transitionID, ok := s.mapper.StatusToTransition(record.Status)
			if !ok {
				utils.LogWarn("マッピングされていないステータス: %s (%s)", record.Status, record.JiraKey)
				result.Skipped++
				continue
			}

			if err := s.tracker.TransitionStatus(record.JiraKey, transitionID); err != nil {
				utils.LogError("ステータス更新失敗 %s: %v", record.JiraKey, err)
				result.AddFailure("ボード %s: ステータス更新失敗 %s: %v", board.Name(), record.JiraKey, err)
			} else {
				utils.LogInfo("ステータス更新成功: %s → %s", record.JiraKey, record.Status)
				result.Succeeded++
			}

			if err := board.WriteLinkResult(record.ID, record.JiraKey, now); err != nil {
				utils.LogWarn("同期時刻更新失敗 (%s): %v", record.ID, err)
			}
		}
	}
}

// candidateActivity はミラー候補のアクティビティと、キー抽出対象のテキストです
type candidateActivity struct {
	models.Activity
	Text string
}

// collectActivities はGitLabから取得ウィンドウ内のアクティビティを収集します
func (s *SyncService) collectActivities(now time.Time) ([]candidateActivity, error) {
	since := now.Add(-s.config.PollWindow)

	commits, err := s.repoHost.ListCommitsSince(since)
	if err != nil {
		return nil, fmt.Errorf("コミット取得エラー: %w", err)
	}

	mrs, err := s.repoHost.ListMergeRequestsSince(since)
	if err != nil {
		return nil, fmt.Errorf("マージリクエスト取得エラー: %w", err)
	}

	activities := make([]candidateActivity, 0, len(commits)+len(mrs))

	for _, commit := range commits {
		activities = append(activities, candidateActivity{
			Activity: models.Activity{
				SourceType: models.ActivityCommit,
				SourceID:   shortCommitID(commit.ID),
				Title:      commit.Title,
				Author:     commit.AuthorName,
				OccurredAt: truncateToDay(commit.CreatedAt),
				URL:        commit.WebURL,
				State:      models.StatusInProgress,
			},
			Text: commit.Message,
		})
	}

	for _, mr := range mrs {
		state := models.StatusInProgress
		if mr.State == "merged" {
			state = models.StatusDone
		}
		activities = append(activities, candidateActivity{
			Activity: models.Activity{
				SourceType: models.ActivityMergeRequest,
				SourceID:   strconv.Itoa(mr.IID),
				Title:      mr.Title,
				Author:     mr.Author.Name,
				OccurredAt: truncateToDay(mr.UpdatedAt),
				URL:        mr.WebURL,
				State:      state,
			},
			Text: mr.Title + "\n" + mr.Description,
		})
	}

	return activities, nil
}

// runActivityPass はGitLabアクティビティをNotionにミラーします。
// テキストから最初に解決できたキーのレコード1件にのみ紐付けます。
// 解決できるキーがないアクティビティは黙ってスキップします (エラーではありません)。
func (s *SyncService) runActivityPass(report *models.RunReport) {
	result := report.StartPass(PassActivity.String())
	now := s.now()

	activities, err := s.collectActivities(now)
	if err != nil {
		utils.LogError("アクティビティ収集に失敗: %v", err)
		result.AddFailure("アクティビティ収集失敗: %v", err)
		return
	}

	utils.LogInfo("ミラー候補: %d 件", len(activities))

	// 重複排除用の既存アクティビティ集合 (遡り範囲内のみ)
	seen := make(map[string]struct{})
	lookbackSince := now.Add(-s.config.ActivityLookback)
	for _, board := range s.boards {
		existing, err := board.QueryRecentActivities(lookbackSince)
		if err != nil {
			utils.LogError("ボード %s の既存アクティビティ取得に失敗: %v", board.Name(), err)
			result.AddFailure("ボード %s: 既存アクティビティ取得失敗: %v", board.Name(), err)
			continue
		}
		for key := range BuildSeenActivities(existing) {
			seen[key] = struct{}{}
		}
	}

	// 全ボード横断のキー索引
	boardsByName := make(map[string]BoardAdapter, len(s.boards))
	var allRecords []models.Record
	for _, board := range s.boards {
		boardsByName[board.Name()] = board
		records, err := board.QueryAll()
		if err != nil {
			utils.LogError("ボード %s のクエリに失敗: %v", board.Name(), err)
			result.AddFailure("ボード %s: クエリ失敗: %v", board.Name(), err)
			continue
		}
		allRecords = append(allRecords, records...)
	}
	index := BuildKeyIndex(allRecords)

	for _, candidate := range activities {
		result.Candidates++

		if _, ok := seen[candidate.DedupKey()]; ok {
			result.Skipped++
			continue
		}

		attached := false
		for _, key := range s.mapper.ExtractIssueKeys(candidate.Text) {
			ref, ok := index[key]
			if !ok {
				continue
			}
			board, ok := boardsByName[ref.Board]
			if !ok {
				continue
			}

			if err := board.CreateActivity(candidate.Activity, ref.RecordID); err != nil {
				utils.LogError("アクティビティ作成失敗 (%s): %v", candidate.DedupKey(), err)
				result.AddFailure("ボード %s: アクティビティ作成失敗 (%s): %v", ref.Board, candidate.DedupKey(), err)
			} else {
				utils.LogInfo("アクティビティ作成: %s → %s", candidate.DedupKey(), key)
				result.Succeeded++
				// 同一実行内での再出現も防ぐ
				seen[candidate.DedupKey()] = struct{}{}
			}

			// 複数のキーを含んでいても最初に解決した1件にのみ紐付ける
			attached = true
			break
		}

		if !attached {
			result.Skipped++
		}
	}
}

// shortCommitID はコミットハッシュを固定長のプレフィックスに切り詰めます
func shortCommitID(id string) string {
	if len(id) > commitIDLength {
		return id[:commitIDLength]
	}
	return id
}

// truncateToDay は時刻を日単位に切り詰めます
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
