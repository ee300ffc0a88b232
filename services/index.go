package services

import "notiontojira/models"

// RecordRef はイシューキーから引けるレコードの所在です
type RecordRef struct {
	Board    string // レコードが属するボード名
	RecordID string
}

// BuildKeyIndex はイシューキーからレコードへの索引を構築します。
// キーが未設定のレコードは含めません。同じキーを持つレコードが複数ある場合は
// 後勝ちです (上流での人為的ミスであり、索引側では強制しません)。
// 索引は実行ごとに現在のNotion状態から作り直します (永続化しません)。
func BuildKeyIndex(records []models.Record) map[string]RecordRef {
	index := make(map[string]RecordRef)
	for _, record := range records {
		if !record.Linked() {
			continue
		}
		index[record.JiraKey] = RecordRef{
			Board:    record.Source,
			RecordID: record.ID,
		}
	}
	return index
}

// BuildSeenActivities は既存アクティビティから重複排除用のキー集合を構築します。
// キーの導出規則は Activity.DedupKey と同一です。
func BuildSeenActivities(activities []models.Activity) map[string]struct{} {
	seen := make(map[string]struct{}, len(activities))
	for _, act := range activities {
		seen[act.DedupKey()] = struct{}{}
	}
	return seen
}
