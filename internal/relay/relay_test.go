package relay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pagequery/internal/storage"
	"github.com/JakeFAU/pagequery/internal/storage/local"
)

type mockChatModel struct {
	mock.Mock
}

func (m *mockChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	args := m.Called(ctx, input)
	msg, _ := args.Get(0).(*schema.Message)
	return msg, args.Error(1)
}

type errStore struct{ err error }

func (s errStore) Save(context.Context, storage.ScrapeRecord) error { return s.err }

func (s errStore) Load(context.Context) (storage.ScrapeRecord, error) {
	return storage.ScrapeRecord{}, s.err
}

func newStore(t *testing.T) *local.RecordStore {
	t.Helper()
	store, err := local.New(local.Config{Path: filepath.Join(t.TempDir(), "scraped_data.json")})
	require.NoError(t, err)
	return store
}

func TestAskWithoutRecordSkipsModel(t *testing.T) {
	t.Parallel()

	cm := &mockChatModel{}
	r := New(newStore(t), cm, nil)

	_, err := r.Ask(context.Background(), "what is this?")
	require.ErrorIs(t, err, ErrNoScrapedData)
	cm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAskCorruptRecordSkipsModel(t *testing.T) {
	t.Parallel()

	cm := &mockChatModel{}
	r := New(errStore{err: storage.CorruptError("scraped_data.json", errors.New("bad json"))}, cm, nil)

	_, err := r.Ask(context.Background(), "q")
	require.ErrorIs(t, err, ErrNoScrapedData)
	require.ErrorIs(t, err, storage.ErrCorrupt)
	cm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAskStoreFailure(t *testing.T) {
	t.Parallel()

	cm := &mockChatModel{}
	r := New(errStore{err: errors.New("permission denied")}, cm, nil)

	_, err := r.Ask(context.Background(), "q")
	require.ErrorIs(t, err, ErrQueryFailed)
	cm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAskEmbedsFullContent(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	content := strings.Repeat("line of {page} text\n", 500)
	require.NoError(t, store.Save(context.Background(), storage.ScrapeRecord{URL: "https://a.example", Content: content}))

	cm := &mockChatModel{}
	want := "Based on this content: " + content + ", answer: who wrote it?"
	cm.On("Generate", mock.Anything, mock.MatchedBy(func(msgs []*schema.Message) bool {
		return len(msgs) == 1 && msgs[0].Role == schema.User && msgs[0].Content == want
	})).Return(schema.AssistantMessage("Someone.", nil), nil).Once()

	r := New(store, cm, nil)
	got, err := r.Ask(context.Background(), "who wrote it?")
	require.NoError(t, err)
	assert.Equal(t, "Someone.", got)
	cm.AssertExpectations(t)
}

func TestAskModelFailure(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Save(context.Background(), storage.ScrapeRecord{URL: "https://a.example", Content: "c"}))

	cm := &mockChatModel{}
	cm.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	r := New(store, cm, nil)
	_, err := r.Ask(context.Background(), "q")
	require.ErrorIs(t, err, ErrQueryFailed)
	assert.NotContains(t, err.Error(), "connection refused")
	cm.AssertExpectations(t)
}

func TestAskOpaqueReply(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.Save(context.Background(), storage.ScrapeRecord{URL: "https://a.example", Content: "c"}))

	empty := &schema.Message{Role: schema.Assistant}
	cm := &mockChatModel{}
	cm.On("Generate", mock.Anything, mock.Anything).Return(empty, nil).Once()

	r := New(store, cm, nil)
	got, err := r.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, empty.String(), got)
}

func TestAskEmptyStoredRecordSkipsModel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scraped_data.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	store, err := local.New(local.Config{Path: path})
	require.NoError(t, err)

	cm := &mockChatModel{}
	r := New(store, cm, nil)

	_, err = r.Ask(context.Background(), "q")
	require.ErrorIs(t, err, ErrNoScrapedData)
	cm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
