package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/models"
)

// fakeDB is an in-memory core.DbClient covering what the pipeline touches.
type fakeDB struct {
	file        *models.File
	chunkCount  int
	claimDenied bool

	claimed       bool
	upserts       [][]models.FileChunk
	completedWith *int
	failedStatus  models.ProcessingStatus
	failedMessage string
}

func (f *fakeDB) CreateUser(ctx context.Context, user *models.User) error { return nil }
func (f *fakeDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (f *fakeDB) CreateFile(ctx context.Context, file *models.File) error { return nil }

func (f *fakeDB) GetFileByID(ctx context.Context, id string) (*models.File, error) {
	if f.file == nil || f.file.ID != id {
		return nil, nil
	}
	cp := *f.file
	return &cp, nil
}

func (f *fakeDB) ListFilesByUser(ctx context.Context, userID string) ([]models.File, error) {
	return nil, nil
}

func (f *fakeDB) CountChunksByFile(ctx context.Context, fileID string) (int, error) {
	return f.chunkCount, nil
}

func (f *fakeDB) ClaimFileForProcessing(ctx context.Context, fileID string, lease time.Duration) (bool, error) {
	if f.claimDenied {
		return false, nil
	}
	f.claimed = true
	return true, nil
}

func (f *fakeDB) MarkFileCompleted(ctx context.Context, fileID string, tokenCount int) error {
	f.completedWith = &tokenCount
	return nil
}

func (f *fakeDB) MarkFileFailed(ctx context.Context, fileID string, status models.ProcessingStatus, errMsg string) error {
	f.failedStatus = status
	f.failedMessage = errMsg
	return nil
}

func (f *fakeDB) UpsertFileChunks(ctx context.Context, chunks []models.FileChunk) error {
	f.upserts = append(f.upserts, chunks)
	return nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) allChunks() []models.FileChunk {
	var out []models.FileChunk
	for _, batch := range f.upserts {
		out = append(out, batch...)
	}
	return out
}

// fakeObject serves one blob for any key.
type fakeObject struct {
	data []byte
	err  error
	got  bool
}

func (f *fakeObject) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	return "", nil
}

func (f *fakeObject) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	f.got = true
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeObject) DeleteFile(ctx context.Context, bucket, key string) error { return nil }

func testFile(name string, size int64) *models.File {
	return &models.File{
		ID:               "file-1",
		UserID:           "user-1",
		FileName:         name,
		StoragePath:      "users/user-1/files/file-1/" + name,
		SizeBytes:        size,
		ProcessingStatus: models.StatusPending,
	}
}

func testIngestor(db *fakeDB, obj *fakeObject) *FileIngestor {
	cfg := DefaultConfig()
	cfg.MaxTokens = 50
	cfg.OverlapTokens = 5
	return NewFileIngestor(db, obj, wordTokenizer{}, cfg, "bucket", discardLogger())
}

func TestProcessFile_CompletesAndPersists(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("some words to embed and store")}
	provider := &fakeProvider{selector: models.ProviderOpenAI, dim: 3}

	result, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1", provider)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Equal(t, 6, result.TokenCount)
	assert.Equal(t, 1, result.BatchCount)
	assert.GreaterOrEqual(t, result.ElapsedMS, int64(0))

	assert.True(t, db.claimed)
	require.NotNil(t, db.completedWith)
	assert.Equal(t, 6, *db.completedWith)

	chunks := db.allChunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, "file-1", chunks[0].FileID)
	assert.Equal(t, "user-1", chunks[0].UserID)
	assert.Equal(t, 0, chunks[0].Position)
	assert.NotNil(t, chunks[0].EmbeddingOpenAI)
	assert.Nil(t, chunks[0].EmbeddingLocal)
}

func TestProcessFile_LocalProviderFillsLocalSlot(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("short text")}
	provider := &fakeProvider{selector: models.ProviderLocal, dim: 3}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1", provider)

	require.NoError(t, err)
	chunks := db.allChunks()
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].EmbeddingOpenAI)
	assert.NotNil(t, chunks[0].EmbeddingLocal)
}

func TestProcessFile_NotFound(t *testing.T) {
	db := &fakeDB{}
	obj := &fakeObject{}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestProcessFile_OtherUsersFileIsForbidden(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("text")}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "someone-else",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	assert.False(t, db.claimed)
	assert.False(t, obj.got)
}

func TestProcessFile_AlreadyProcessedShortCircuits(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100), chunkCount: 7}
	obj := &fakeObject{data: []byte("text")}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.AlreadyProcessed, apperr.KindOf(err))
	assert.False(t, db.claimed, "no claim should be attempted")
	assert.False(t, obj.got, "the blob must not be fetched")
}

func TestProcessFile_ConcurrentJobRejected(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100), claimDenied: true}
	obj := &fakeObject{data: []byte("text")}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.ConcurrentJob, apperr.KindOf(err))
	assert.False(t, obj.got)
}

func TestProcessFile_FileTooLargeRejectedBeforeClaim(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", (200<<20)+1)}
	obj := &fakeObject{}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.FileTooLarge, apperr.KindOf(err))
	assert.False(t, db.claimed)
}

func TestProcessFile_UnsupportedFormatBeforeAnyMutation(t *testing.T) {
	db := &fakeDB{file: testFile("payload.xyz", 100)}
	obj := &fakeObject{data: []byte("text")}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.UnsupportedFormat, apperr.KindOf(err))
	assert.False(t, db.claimed, "status must not change for unsupported formats")
	assert.Empty(t, db.failedStatus)
}

func TestProcessFile_EmptyFileFinalizesFailed(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 10)}
	obj := &fakeObject{data: []byte("   \n\t  ")}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.EmptyOrUnprocessable, apperr.KindOf(err))
	assert.True(t, db.claimed)
	assert.Equal(t, models.StatusFailed, db.failedStatus)
	assert.NotEmpty(t, db.failedMessage)
	assert.Nil(t, db.completedWith)
}

func TestProcessFile_RemoteEmbeddingFailureFinalizesFailed(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("some words")}
	provider := &fakeProvider{
		selector: models.ProviderOpenAI,
		failOn:   map[string]bool{"some words": true},
		dim:      3,
	}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1", provider)

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, db.failedStatus)
	assert.Contains(t, db.failedMessage, "embed batch")
}

func TestProcessFile_ObjectStoreFailureFinalizesFailed(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{err: errors.New("connection reset")}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1",
		&fakeProvider{selector: models.ProviderOpenAI, dim: 3})

	assert.Equal(t, apperr.Transient, apperr.KindOf(err))
	assert.Equal(t, models.StatusFailed, db.failedStatus)
}

func TestProcessFile_DeadlineFinalizesTimeout(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("some words")}
	provider := &deadlineProvider{}

	_, err := testIngestor(db, obj).ProcessFile(context.Background(), "file-1", "user-1", provider)

	require.Error(t, err)
	assert.Equal(t, models.StatusTimeout, db.failedStatus)
}

func TestProcessFile_CallerAbortFinalizesTimeout(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("some words")}

	// The caller gives up mid-embedding; the request context arrives at
	// the pipeline as a cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	provider := &cancellingProvider{cancel: cancel}

	_, err := testIngestor(db, obj).ProcessFile(ctx, "file-1", "user-1", provider)

	require.Error(t, err)
	assert.Equal(t, models.StatusTimeout, db.failedStatus)
	assert.Nil(t, db.completedWith)
}

// deadlineProvider simulates an embedding call that outlives its deadline.
type deadlineProvider struct{}

func (p *deadlineProvider) Selector() models.Provider { return models.ProviderOpenAI }

func (p *deadlineProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, context.DeadlineExceeded
}

func TestProcessFile_SkippedChunksPersistedWithoutVectors(t *testing.T) {
	db := &fakeDB{file: testFile("doc.txt", 100)}
	obj := &fakeObject{data: []byte("normal words here")}
	provider := &fakeProvider{selector: models.ProviderOpenAI, dim: 3}

	cfg := DefaultConfig()
	cfg.MaxTokens = 50
	cfg.OverlapTokens = 5
	cfg.ItemCeiling = 2 // force the 3-word chunk over the item ceiling
	ing := NewFileIngestor(db, obj, wordTokenizer{}, cfg, "bucket", discardLogger())

	result, err := ing.ProcessFile(context.Background(), "file-1", "user-1", provider)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Equal(t, 3, result.TokenCount, "skipped chunks still count toward the total")
	assert.Equal(t, 0, result.BatchCount)
	assert.Empty(t, provider.calls, "skipped chunks are never sent to the provider")

	chunks := db.allChunks()
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].EmbeddingOpenAI)
	assert.Nil(t, chunks[0].EmbeddingLocal)

	require.NotNil(t, db.completedWith)
	assert.Equal(t, 3, *db.completedWith)
}
