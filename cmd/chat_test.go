package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/repo-pilot/internal"
	"github.com/iksnae/repo-pilot/internal/controller"
	"github.com/iksnae/repo-pilot/internal/conversation"
	"github.com/iksnae/repo-pilot/internal/export"
	"github.com/iksnae/repo-pilot/internal/ingest"
	"github.com/iksnae/repo-pilot/internal/llm"
	"github.com/iksnae/repo-pilot/testutil"
)

// readyIngester serves a test corpus for every repository
type readyIngester struct{}

func (readyIngester) Run(ctx context.Context, repo internal.RepoIdentity, obs ingest.Observer) (*internal.SourceCorpus, error) {
	obs.OnState(ingest.ResolvingInfo)
	obs.OnInfo(&internal.RepoInfo{FullName: repo.ID(), Name: repo.Name, DefaultBranch: "main", PushedAt: testPushedAt})
	obs.OnState(ingest.Ready)
	return internal.CreateTestCorpus(repo, testPushedAt), nil
}

func newChatController(t *testing.T, replies ...llm.FakeReply) (*controller.Controller, *llm.FakeStreamer) {
	t.Helper()
	cache := internal.NewCacheManager(internal.NewSQLiteStore(testutil.CreateInMemoryDB(t)))
	streamer := llm.NewFakeStreamer(replies...)
	engine := conversation.NewEngine(streamer, cache, conversation.Options{})
	ctrl := controller.New(readyIngester{}, engine, controller.Options{MaxCorpusTokens: 1000})
	t.Cleanup(ctrl.Close)

	corpus, err := selectRepository(context.Background(), ctrl, testRepoURL)
	require.NoError(t, err)
	require.Equal(t, "octo/hello", corpus.ID)
	return ctrl, streamer
}

func TestRunChat_StreamsAnswer(t *testing.T) {
	ctrl, streamer := newChatController(t, llm.FakeReply{Chunks: llm.TextChunks("Hi", " there")})
	out := &syncBuffer{}

	err := runChat(context.Background(), ctrl, strings.NewReader("What is this?\n/quit\n"), out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "What does this repository do?", "starter questions for an empty history")
	assert.Contains(t, out.String(), "Hi there")
	require.Len(t, streamer.Exchanges(), 1)

	entries := ctrl.Engine().Snapshot().Entries
	require.Len(t, entries, 1)
	assert.Equal(t, "What is this?", entries[0].User.Content)
	assert.Equal(t, "Hi there", entries[0].Model.Content)
}

func TestRunChat_ShowsHistory(t *testing.T) {
	ctrl, _ := newChatController(t)
	require.NoError(t, ctrl.Engine().Replace(context.Background(), internal.CreateTestEntries(1)))
	out := &syncBuffer{}

	require.NoError(t, runChat(context.Background(), ctrl, strings.NewReader(""), out))

	assert.Contains(t, out.String(), "question A")
	assert.NotContains(t, out.String(), "Try asking")
}

func TestRunChat_Commands(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantOutput  string
		wantEntries int
	}{
		{"delete", "/delete 1\n", "Deleted entry 1", 1},
		{"delete bad index", "/delete x\n", "usage: /delete <n>", 2},
		{"clear", "/clear\n", "Conversation cleared", 0},
		{"history", "/history\n", "question B", 2},
		{"help", "/help\n", "/export [file]", 2},
		{"unknown", "/frobnicate\n", "unknown command /frobnicate", 2},
		{"import needs a file", "/import\n", "usage: /import <file>", 2},
		{"quit stops reading", "/quit\n/clear\n", "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, _ := newChatController(t)
			require.NoError(t, ctrl.Engine().Replace(context.Background(), internal.CreateTestEntries(2)))
			out := &syncBuffer{}

			require.NoError(t, runChat(context.Background(), ctrl, strings.NewReader(tt.input), out))

			assert.Contains(t, out.String(), tt.wantOutput)
			assert.Len(t, ctrl.Engine().Snapshot().Entries, tt.wantEntries)
		})
	}
}

func TestRunChat_ExportAndImport(t *testing.T) {
	ctrl, _ := newChatController(t)
	ctx := context.Background()
	require.NoError(t, ctrl.Engine().Replace(ctx, internal.CreateTestEntries(2)))
	path := filepath.Join(t.TempDir(), "conversation.md")

	out := &syncBuffer{}
	require.NoError(t, runChat(ctx, ctrl, strings.NewReader("/export "+path+"\n/clear\n/import "+path+"\n"), out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	imported, err := export.ParseMarkdown(string(data))
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/hello", imported.RepoURL)
	assert.Len(t, imported.Entries, 2)

	assert.Contains(t, out.String(), "Imported 2 pair(s)")
	assert.Len(t, ctrl.Engine().Snapshot().Entries, 2)
}

func TestAskOnce(t *testing.T) {
	t.Run("answer", func(t *testing.T) {
		ctrl, _ := newChatController(t, llm.FakeReply{Chunks: llm.TextChunks("It greets.")})
		out := &syncBuffer{}
		require.NoError(t, askOnce(context.Background(), ctrl, "What is this?", out))
		assert.Contains(t, out.String(), "It greets.")
	})

	t.Run("stream failure", func(t *testing.T) {
		ctrl, _ := newChatController(t, llm.FakeReply{Chunks: llm.TextChunks("par"), Err: errors.New("overloaded")})
		out := &syncBuffer{}
		err := askOnce(context.Background(), ctrl, "What is this?", out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overloaded")
		assert.Contains(t, out.String(), "Error: overloaded")
	})

	t.Run("empty question", func(t *testing.T) {
		ctrl, _ := newChatController(t)
		err := askOnce(context.Background(), ctrl, "   ", &syncBuffer{})
		assert.ErrorIs(t, err, conversation.ErrEmptyMessage)
	})
}

func TestReplyPrinter(t *testing.T) {
	out := &syncBuffer{}
	p := newReplyPrinter(out)
	user := &internal.Turn{Role: internal.RoleUser, Content: "q"}
	model := func(s string) *internal.Turn { return &internal.Turn{Role: internal.RoleModel, Content: s} }

	// unrelated snapshots before any exchange print nothing
	p.onChange(conversation.Snapshot{Ready: true})
	assert.Empty(t, out.String())

	p.onChange(conversation.Snapshot{PendingForReply: true, PendingForResponse: true, Entries: []internal.Entry{{User: user}}})
	p.onChange(conversation.Snapshot{PendingForReply: true, Entries: []internal.Entry{{User: user, Model: model("ab")}}})
	p.onChange(conversation.Snapshot{PendingForReply: true, Entries: []internal.Entry{{User: user, Model: model("abcd")}}})
	p.onChange(conversation.Snapshot{Entries: []internal.Entry{{User: user, Model: model("abcd")}}})

	assert.Equal(t, 1, strings.Count(out.String(), "Repo Pilot"))
	assert.Contains(t, out.String(), "abcd")
	assert.Equal(t, 1, strings.Count(out.String(), "ab"), "deltas are printed once")

	// a failed exchange ends with its note
	p.onChange(conversation.Snapshot{PendingForReply: true, Entries: []internal.Entry{{User: user}}})
	p.onChange(conversation.Snapshot{Entries: []internal.Entry{internal.NewNote("Error: boom")}})
	assert.Contains(t, out.String(), "Error: boom")
}
