package rag

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ai-helloworld/pkg/errors"
)

type fakeDocumentRepository struct {
	docs map[string]Document
}

func newFakeDocumentRepository() *fakeDocumentRepository {
	return &fakeDocumentRepository{docs: map[string]Document{}}
}

func (f *fakeDocumentRepository) key(userID, documentID string) string { return userID + "/" + documentID }

func (f *fakeDocumentRepository) Create(ctx context.Context, doc Document) error {
	f.docs[f.key(doc.UserID, doc.ID)] = doc
	return nil
}

func (f *fakeDocumentRepository) UpdateStatus(ctx context.Context, userID, documentID string, status DocumentStatus, chunkCount, pageCount int, failureInfo string) error {
	k := f.key(userID, documentID)
	doc, ok := f.docs[k]
	if !ok {
		return errors.New("not found")
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.PageCount = pageCount
	doc.FailureInfo = failureInfo
	f.docs[k] = doc
	return nil
}

func (f *fakeDocumentRepository) Get(ctx context.Context, userID, documentID string) (Document, bool, error) {
	doc, ok := f.docs[f.key(userID, documentID)]
	return doc, ok, nil
}

func (f *fakeDocumentRepository) List(ctx context.Context, userID string) ([]Document, error) {
	var out []Document
	for _, doc := range f.docs {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepository) Delete(ctx context.Context, userID, documentID string) error {
	delete(f.docs, f.key(userID, documentID))
	return nil
}

type fakeBlobStore struct {
	deleted []string
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	return nil
}
func (f *fakeBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeUploadIssuer struct {
	url string
}

func (f *fakeUploadIssuer) PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return f.url + "/" + key, nil
}
func (f *fakeUploadIssuer) Bucket() string   { return "test-bucket" }
func (f *fakeUploadIssuer) Endpoint() string { return "blob.test" }

type fakeQueue struct {
	jobs    []IngestJob
	failErr error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job IngestJob) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeDocumentWorker struct {
	processed []IngestJob
	swept     []string
}

func (f *fakeDocumentWorker) ProcessDocument(ctx context.Context, job IngestJob) error {
	f.processed = append(f.processed, job)
	return nil
}

func (f *fakeDocumentWorker) DeleteDocumentVectors(ctx context.Context, userID, documentID string) error {
	f.swept = append(f.swept, userID+"/"+documentID)
	return nil
}

type fakeChatWorker struct {
	body string
}

func (f *fakeChatWorker) StreamChat(ctx context.Context, userID, sessionID, message string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func newTestGatewayService(t *testing.T, docs *fakeDocumentRepository, blobs *fakeBlobStore, issuer *fakeUploadIssuer, queue *fakeQueue, worker *fakeDocumentWorker, chat *fakeChatWorker) *GatewayService {
	t.Helper()
	return NewGatewayService(GatewayConfig{MaxFileSize: 1024}, docs, blobs, issuer, queue, worker, chat, nil)
}

func TestInitiateUpload_RejectsMissingUser(t *testing.T) {
	svc := newTestGatewayService(t, newFakeDocumentRepository(), &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})
	_, err := svc.InitiateUpload(context.Background(), "", "a.pdf", 10, "application/pdf")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindUnauthorized))
}

func TestInitiateUpload_RejectsUnsupportedExtension(t *testing.T) {
	svc := newTestGatewayService(t, newFakeDocumentRepository(), &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})
	_, err := svc.InitiateUpload(context.Background(), "user-1", "a.exe", 10, "application/octet-stream")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindInvalidInput))
}

func TestInitiateUpload_RejectsOversizedFile(t *testing.T) {
	svc := newTestGatewayService(t, newFakeDocumentRepository(), &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})
	_, err := svc.InitiateUpload(context.Background(), "user-1", "a.pdf", 10_000, "application/pdf")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindInvalidInput))
}

func TestInitiateUpload_CreatesPendingDocumentAndPresignsURL(t *testing.T) {
	docs := newFakeDocumentRepository()
	issuer := &fakeUploadIssuer{url: "https://blob.test"}
	svc := newTestGatewayService(t, docs, &fakeBlobStore{}, issuer, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})

	intent, err := svc.InitiateUpload(context.Background(), "user-1", "report.pdf", 100, "application/pdf")
	require.NoError(t, err)
	require.NotEmpty(t, intent.DocumentID)
	require.Contains(t, intent.UploadURL, "https://blob.test/")
	require.Equal(t, "test-bucket", intent.Bucket)
	require.Equal(t, "blob.test", intent.Endpoint)

	doc, found, err := docs.Get(context.Background(), "user-1", intent.DocumentID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusPending, doc.Status)
	require.Contains(t, doc.StorageKey, "user_user-1/")
}

func TestConfirmUpload_EnqueuesJob(t *testing.T) {
	docs := newFakeDocumentRepository()
	require.NoError(t, docs.Create(context.Background(), Document{ID: "doc-1", UserID: "user-1", StorageKey: "k", MimeType: "application/pdf", Status: StatusPending}))
	queue := &fakeQueue{}
	svc := newTestGatewayService(t, docs, &fakeBlobStore{}, &fakeUploadIssuer{}, queue, &fakeDocumentWorker{}, &fakeChatWorker{})

	err := svc.ConfirmUpload(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	require.Equal(t, "doc-1", queue.jobs[0].DocumentID)
}

func TestConfirmUpload_FallsBackToDirectWorkerCallOnEnqueueFailure(t *testing.T) {
	docs := newFakeDocumentRepository()
	require.NoError(t, docs.Create(context.Background(), Document{ID: "doc-1", UserID: "user-1", StorageKey: "k", MimeType: "application/pdf", Status: StatusPending}))
	queue := &fakeQueue{failErr: errors.New("valkey unreachable")}
	worker := &fakeDocumentWorker{}
	svc := newTestGatewayService(t, docs, &fakeBlobStore{}, &fakeUploadIssuer{}, queue, worker, &fakeChatWorker{})

	err := svc.ConfirmUpload(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)
	require.Len(t, worker.processed, 1)
	require.Equal(t, "doc-1", worker.processed[0].DocumentID)
}

func TestConfirmUpload_UnknownDocument(t *testing.T) {
	svc := newTestGatewayService(t, newFakeDocumentRepository(), &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})
	err := svc.ConfirmUpload(context.Background(), "user-1", "missing")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindInvalidInput))
}

func TestStatus_MapsInternalToExternal(t *testing.T) {
	docs := newFakeDocumentRepository()
	require.NoError(t, docs.Create(context.Background(), Document{ID: "doc-1", UserID: "user-1", Status: StatusEmbedding, ChunkCount: 3}))
	svc := newTestGatewayService(t, docs, &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})

	view, err := svc.Status(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)
	require.Equal(t, ExternalProcessing, view.Status)
	require.Equal(t, 3, view.ChunkCount)
}

func TestList_FiltersDeletedDocuments(t *testing.T) {
	docs := newFakeDocumentRepository()
	require.NoError(t, docs.Create(context.Background(), Document{ID: "doc-1", UserID: "user-1", Status: StatusReady}))
	require.NoError(t, docs.Create(context.Background(), Document{ID: "doc-2", UserID: "user-1", Status: StatusDeleted}))
	svc := newTestGatewayService(t, docs, &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})

	list, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "doc-1", list[0].ID)
}

func TestDeleteDocument_SoftDeletesAndSweepsVectors(t *testing.T) {
	docs := newFakeDocumentRepository()
	require.NoError(t, docs.Create(context.Background(), Document{ID: "doc-1", UserID: "user-1", StorageKey: "k1", Status: StatusReady, ChunkCount: 5}))
	blobs := &fakeBlobStore{}
	worker := &fakeDocumentWorker{}
	svc := newTestGatewayService(t, docs, blobs, &fakeUploadIssuer{}, &fakeQueue{}, worker, &fakeChatWorker{})

	err := svc.DeleteDocument(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)

	doc, found, err := docs.Get(context.Background(), "user-1", "doc-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, StatusDeleted, doc.Status)
	require.Equal(t, []string{"k1"}, blobs.deleted)
	require.Equal(t, []string{"user-1/doc-1"}, worker.swept)
}

func TestStreamChat_RejectsEmptyMessage(t *testing.T) {
	svc := newTestGatewayService(t, newFakeDocumentRepository(), &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, &fakeChatWorker{})
	_, err := svc.StreamChat(context.Background(), "user-1", "session-1", "  ")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.KindInvalidInput))
}

func TestStreamChat_ProxiesWorkerBody(t *testing.T) {
	chat := &fakeChatWorker{body: "data: hello\n\n"}
	svc := newTestGatewayService(t, newFakeDocumentRepository(), &fakeBlobStore{}, &fakeUploadIssuer{}, &fakeQueue{}, &fakeDocumentWorker{}, chat)

	body, err := svc.StreamChat(context.Background(), "user-1", "session-1", "hello")
	require.NoError(t, err)
	defer body.Close()
	out, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "data: hello\n\n", string(out))
}
