package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"meeting-scribe/internal/domain"
	"meeting-scribe/internal/domain/model"
	"meeting-scribe/internal/domain/ports/adapter"
	"meeting-scribe/internal/domain/ports/repository"
)

// ---- repositories ----

type memMeetingRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Meeting
}

var _ repository.MeetingRepository = (*memMeetingRepo)(nil)

func newMemMeetingRepo() *memMeetingRepo {
	return &memMeetingRepo{byID: map[string]*model.Meeting{}}
}

func (m *memMeetingRepo) Save(ctx context.Context, qx repository.Tx, mt *model.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mt
	m.byID[mt.ID] = &cp
	return nil
}

func (m *memMeetingRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.byID[id]; ok {
		cp := *mt
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memMeetingRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Meeting
	for _, mt := range m.byID {
		if mt.UserID == userID {
			cp := *mt
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memMeetingRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	items, _ := m.ListByUser(ctx, userID, 0, 0)
	return len(items), nil
}

func (m *memMeetingRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.MeetingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	mt.Status = status
	mt.UpdatedAt = time.Now()
	return nil
}

func (m *memMeetingRepo) SetEmbeddingReady(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt, ok := m.byID[id]; ok {
		mt.EmbeddingReady = true
	}
	return nil
}

func (m *memMeetingRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memMeetingRepo) MarkStuckFailed(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mt := range m.byID {
		if mt.Status == model.MeetingStatusProcessing && time.Since(mt.UpdatedAt) > olderThan {
			mt.Status = model.MeetingStatusFailed
			n++
		}
	}
	return n, nil
}

type memTranscriptRepo struct {
	mu        sync.Mutex
	byMeeting map[string]*model.TranscriptRecord
	saves     int
}

var _ repository.TranscriptRepository = (*memTranscriptRepo)(nil)

func newMemTranscriptRepo() *memTranscriptRepo {
	return &memTranscriptRepo{byMeeting: map[string]*model.TranscriptRecord{}}
}

func (m *memTranscriptRepo) Save(ctx context.Context, qx repository.Tx, rec *model.TranscriptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.byMeeting[rec.MeetingID] = &cp
	m.saves++
	return nil
}

func (m *memTranscriptRepo) FindByMeeting(ctx context.Context, meetingID string) (*model.TranscriptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byMeeting[meetingID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memTranscriptRepo) DeleteByMeeting(ctx context.Context, meetingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byMeeting, meetingID)
	return nil
}

type memEmbeddingRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*model.EmbeddingChunk
}

var _ repository.EmbeddingRepository = (*memEmbeddingRepo)(nil)

func newMemEmbeddingRepo() *memEmbeddingRepo { return &memEmbeddingRepo{} }

func (m *memEmbeddingRepo) BulkInsert(ctx context.Context, chunks []*model.EmbeddingChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.nextID++
		cp := *c
		cp.ID = m.nextID
		m.rows = append(m.rows, &cp)
	}
	return nil
}

func (m *memEmbeddingRepo) ListByMeeting(ctx context.Context, meetingID string) ([]*model.EmbeddingChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EmbeddingChunk
	for _, c := range m.rows {
		if c.MeetingID == meetingID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEmbeddingRepo) DeleteByMeeting(ctx context.Context, meetingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, c := range m.rows {
		if c.MeetingID != meetingID {
			kept = append(kept, c)
		}
	}
	m.rows = kept
	return nil
}

type memConvoRepo struct {
	mu    sync.Mutex
	turns []*model.ConversationTurn
}

var _ repository.ConversationRepository = (*memConvoRepo)(nil)

func newMemConvoRepo() *memConvoRepo { return &memConvoRepo{} }

func (m *memConvoRepo) Append(ctx context.Context, turn *model.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *turn
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.turns = append(m.turns, &cp)
	return nil
}

func (m *memConvoRepo) Recent(ctx context.Context, meetingID string, n int) ([]*model.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ConversationTurn
	for _, t := range m.turns {
		if t.MeetingID == meetingID {
			out = append(out, t)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (m *memConvoRepo) DeleteByMeeting(ctx context.Context, meetingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.turns[:0]
	for _, t := range m.turns {
		if t.MeetingID != meetingID {
			kept = append(kept, t)
		}
	}
	m.turns = kept
	return nil
}

type memProfileRepo struct {
	mu      sync.Mutex
	byEmail map[string]*model.Profile
	byID    map[string]*model.Profile
}

var _ repository.ProfileRepository = (*memProfileRepo)(nil)

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{byEmail: map[string]*model.Profile{}, byID: map[string]*model.Profile{}}
}

func (m *memProfileRepo) Save(ctx context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[p.Email]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.byEmail[p.Email] = &cp
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byEmail[email]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- transaction manager ----

// fakeTx runs the function directly; transactional semantics are covered
// by integration tests against a live database.
type fakeTx struct{}

var _ repository.TransactionManager = (*fakeTx)(nil)

func (fakeTx) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---- adapters ----

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	failPut bool
}

var _ adapter.ObjectStorage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (f *fakeStorage) Upload(ctx context.Context, path string, content []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return domain.ErrInvalidExecContext
	}
	f.objects[path] = content
	return nil
}

func (f *fakeStorage) PublicURL(path string) string { return "http://store/recordings/" + path }

func (f *fakeStorage) Download(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.objects[path]; ok {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStorage) Remove(ctx context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.objects, p)
		f.removed = append(f.removed, p)
	}
	return nil
}

func fakeKeyFromURL(url string) string {
	const prefix = "http://store/recordings/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return url
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []model.ProcessingJob
	err  error
}

var _ adapter.JobPublisher = (*fakePublisher)(nil)

func (f *fakePublisher) Publish(ctx context.Context, job model.ProcessingJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// fakeAnalyzer scripts per-key outcomes for the extraction pipeline.
type fakeAnalyzer struct {
	mu         sync.Mutex
	stageErrs  map[string]error // key -> error returned by Stage
	awaitFalse map[string]bool  // key -> AwaitActive returns false
	analyzeErr map[string][]error
	analysis   *adapter.MeetingAnalysis
	stages     []string
	analyzes   []string
}

var _ adapter.RecordingAnalyzer = (*fakeAnalyzer)(nil)

func newFakeAnalyzer(analysis *adapter.MeetingAnalysis) *fakeAnalyzer {
	return &fakeAnalyzer{
		stageErrs:  map[string]error{},
		awaitFalse: map[string]bool{},
		analyzeErr: map[string][]error{},
		analysis:   analysis,
	}
}

func (f *fakeAnalyzer) Stage(ctx context.Context, key string, content []byte, mimeType, displayName string) (adapter.StagedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, key)
	if err := f.stageErrs[key]; err != nil {
		return adapter.StagedFile{}, err
	}
	return adapter.StagedFile{Name: "files/" + key, URI: "uri://" + key, MIMEType: mimeType, State: adapter.FileStateProcessing}, nil
}

func (f *fakeAnalyzer) AwaitActive(ctx context.Context, key string, file adapter.StagedFile) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.awaitFalse[key]
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, key string, file adapter.StagedFile) (*adapter.MeetingAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzes = append(f.analyzes, key)
	if errs := f.analyzeErr[key]; len(errs) > 0 {
		err := errs[0]
		f.analyzeErr[key] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.analysis, nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   int
	byKey   map[string]error
	queryCt int
	docCt   int
}

var _ adapter.Embedder = (*fakeEmbedder)(nil)

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{byKey: map[string]error{}} }

func (f *fakeEmbedder) Embed(ctx context.Context, key string, texts []string, role adapter.EmbedRole) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.byKey[key]; err != nil {
		return nil, err
	}
	if role == adapter.EmbedRoleQuery {
		f.queryCt++
	} else {
		f.docCt += len(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbeddingModel() string { return "fake-embedding" }

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	byKey   map[string]error
	prompts []string
}

var _ adapter.Generator = (*fakeGenerator)(nil)

func newFakeGenerator(reply string) *fakeGenerator {
	return &fakeGenerator{reply: reply, byKey: map[string]error{}}
}

func (f *fakeGenerator) Generate(ctx context.Context, key string, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.byKey[key]; err != nil {
		return "", err
	}
	f.prompts = append(f.prompts, prompt)
	return f.reply, nil
}
