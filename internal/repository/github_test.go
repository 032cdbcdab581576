package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHub(t *testing.T, mux *http.ServeMux) *GitHub {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := gogithub.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return newGitHub(client, "temper-mc", "temper")
}

func TestMergePullRequestSendsOptions(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/temper-mc/temper/pulls/42/merge", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sha":"abc123","merged":true,"message":"Pull Request successfully merged"}`))
	})
	gh := newTestGitHub(t, mux)

	res, err := gh.MergePullRequest(context.Background(), 42, MergeOptions{
		Method:  MergeMethodSquash,
		Title:   "Add chunk cache",
		Message: "Merged on Discord by alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.SHA)
	assert.Equal(t, "squash", body["merge_method"])
	assert.Equal(t, "Add chunk cache", body["commit_title"])
	assert.Equal(t, "Merged on Discord by alice", body["commit_message"])
}

func TestMergePullRequestDefaultsToMergeWithoutTitle(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/temper-mc/temper/pulls/7/merge", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"sha":"def","merged":true}`))
	})
	gh := newTestGitHub(t, mux)

	_, err := gh.MergePullRequest(context.Background(), 7, MergeOptions{Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "merge", body["merge_method"])
	_, hasTitle := body["commit_title"]
	assert.False(t, hasTitle)
}

func TestMergePullRequestReportsGitHubReason(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/temper-mc/temper/pulls/9/merge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"message":"Pull Request is not mergeable"}`))
	})
	gh := newTestGitHub(t, mux)

	_, err := gh.MergePullRequest(context.Background(), 9, MergeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pull Request is not mergeable")
}

func TestGetPullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/temper-mc/temper/pulls/3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"number": 3,
			"title": "Fix lighting",
			"draft": true,
			"html_url": "https://github.com/temper-mc/temper/pull/3",
			"user": {"login": "alice"}
		}`))
	})
	gh := newTestGitHub(t, mux)

	pr, err := gh.GetPullRequest(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pr.Number)
	assert.Equal(t, "Fix lighting", pr.Title)
	assert.Equal(t, "alice", pr.Author)
	assert.True(t, pr.Draft)
	assert.Empty(t, pr.MergedBy)
}

func TestCheckAccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/temper-mc/temper", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"full_name":"temper-mc/temper","permissions":{"pull":true,"push":false}}`))
	})
	gh := newTestGitHub(t, mux)

	err := gh.CheckAccess(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot push")
}

func TestParseMergeMethod(t *testing.T) {
	for in, want := range map[string]MergeMethod{
		"":        MergeMethodMerge,
		"merge":   MergeMethodMerge,
		"Squash":  MergeMethodSquash,
		" rebase": MergeMethodRebase,
	} {
		got, err := ParseMergeMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMergeMethod("octopus")
	assert.Error(t, err)
}
