package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notiontojira/config"
)

func newGitLabTestClient(server *httptest.Server) *GitLabClient {
	cfg := &config.Config{
		GitLabURL:       server.URL,
		GitLabToken:     "glpat-token",
		GitLabProjectID: "123",
	}
	return NewGitLabClient(cfg)
}

func TestGitLabListCommitsSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/repository/commits", r.URL.Path)
		assert.Equal(t, "glpat-token", r.Header.Get("PRIVATE-TOKEN"))
		assert.Equal(t, "2026-08-30T12:00:00Z", r.URL.Query().Get("since"))

		w.Write([]byte(`[{
			"id": "abcdef1234567890",
			"short_id": "abcdef12",
			"title": "fix PROJ-42 bug",
			"message": "fix PROJ-42 bug\n\ndetails",
			"author_name": "Alice",
			"created_at": "2026-08-31T08:00:00.000Z",
			"web_url": "https://gitlab.example.com/c/abcdef12"
		}]`))
	}))
	defer server.Close()

	client := newGitLabTestClient(server)
	since := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	commits, err := client.ListCommitsSince(since)

	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abcdef1234567890", commits[0].ID)
	assert.Equal(t, "fix PROJ-42 bug\n\ndetails", commits[0].Message)
	assert.Equal(t, "Alice", commits[0].AuthorName)
}

func TestGitLabListMergeRequestsSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/123/merge_requests", r.URL.Path)
		assert.Equal(t, "2026-08-30T12:00:00Z", r.URL.Query().Get("updated_after"))

		w.Write([]byte(`[{
			"iid": 7,
			"title": "PROJ-1 の対応",
			"description": "closes PROJ-1",
			"state": "merged",
			"updated_at": "2026-08-31T09:00:00.000Z",
			"web_url": "https://gitlab.example.com/mr/7",
			"author": {"name": "Bob"}
		}]`))
	}))
	defer server.Close()

	client := newGitLabTestClient(server)
	since := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	mrs, err := client.ListMergeRequestsSince(since)

	require.NoError(t, err)
	require.Len(t, mrs, 1)
	assert.Equal(t, 7, mrs[0].IID)
	assert.Equal(t, "merged", mrs[0].State)
	assert.Equal(t, "Bob", mrs[0].Author.Name)
}

func TestGitLabProjectIDEscaped(t *testing.T) {
	// プロジェクトは "group/project" 形式でも指定できる (URLエンコード必須)
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.EscapedPath()
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := &config.Config{
		GitLabURL:       server.URL,
		GitLabToken:     "glpat-token",
		GitLabProjectID: "group/project",
	}
	client := NewGitLabClient(cfg)
	_, err := client.ListCommitsSince(time.Now())

	require.NoError(t, err)
	assert.Contains(t, capturedPath, "/projects/group%2Fproject/")
}

func TestGitLabListCommits_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer server.Close()

	client := newGitLabTestClient(server)
	_, err := client.ListCommitsSince(time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
