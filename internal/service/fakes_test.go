package service

import (
	"brandwatch/internal/model"
	"brandwatch/internal/repository"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]*model.DetectedPost
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[string]*model.DetectedPost{}}
}

func (r *fakePostRepo) Upsert(_ context.Context, post *model.DetectedPost) (*model.DetectedPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if p.ExternalPostID == post.ExternalPostID && p.Platform == post.Platform {
			stored := *post
			stored.ID = p.ID
			stored.CapturedAt = p.CapturedAt
			r.posts[p.ID] = &stored
			out := stored
			return &out, nil
		}
	}
	stored := *post
	stored.ID = uuid.NewString()
	stored.CapturedAt = time.Now()
	r.posts[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id string) (*model.DetectedPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *fakePostRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.posts)
}

type fakeThreatRepo struct {
	mu      sync.Mutex
	threats map[string]*model.Threat
}

func newFakeThreatRepo() *fakeThreatRepo {
	return &fakeThreatRepo{threats: map[string]*model.Threat{}}
}

func (r *fakeThreatRepo) put(t *model.Threat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threats[t.ID] = t
}

func (r *fakeThreatRepo) UpsertForPost(_ context.Context, threat *model.Threat) (*model.Threat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.threats {
		if t.PostID == threat.PostID {
			t.BrandID, t.MonitorID, t.Claim = threat.BrandID, threat.MonitorID, threat.Claim
			t.Severity, t.Type, t.Score = threat.Severity, threat.Type, threat.Score
			t.Reasons, t.AutoPost = threat.Reasons, threat.AutoPost
			t.UpdatedAt = time.Now()
			out := *t
			return &out, nil
		}
	}
	stored := *threat
	stored.ID = uuid.NewString()
	stored.Status = model.ThreatNew
	stored.Verification = nil
	stored.CreatedAt = time.Now()
	r.threats[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakeThreatRepo) GetByID(_ context.Context, id string) (*model.Threat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threats[id]
	if !ok {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (r *fakeThreatRepo) MarkVerifying(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.threats[id]; ok && t.Status == model.ThreatNew {
		t.Status = model.ThreatVerifying
	}
	return nil
}

func (r *fakeThreatRepo) SetVerification(_ context.Context, id string, v *model.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threats[id]
	if !ok {
		return repository.ErrNotFound
	}
	copied := *v
	t.Verification = &copied
	return nil
}

func (r *fakeThreatRepo) SetStatus(_ context.Context, id string, status model.ThreatStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threats[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeThreatRepo) ListUnverified(_ context.Context, before time.Time, limit int) ([]*model.Threat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Threat
	for _, t := range r.threats {
		if t.Verification == nil && t.CreatedAt.Before(before) {
			copied := *t
			out = append(out, &copied)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeEvidenceRepo struct {
	items   []*model.EvidenceItem
	err     error
	queries []string
}

func (r *fakeEvidenceRepo) QueryEvidence(_ context.Context, brandID, keyword string, limit int) ([]*model.EvidenceItem, error) {
	r.queries = append(r.queries, keyword)
	if r.err != nil {
		return nil, r.err
	}
	var out []*model.EvidenceItem
	for _, item := range r.items {
		if item.BrandID != brandID {
			continue
		}
		text := strings.ToLower(item.Title + " " + item.Body)
		if strings.Contains(text, strings.ToLower(keyword)) {
			out = append(out, item)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeEvidenceRepo) GetByIDs(_ context.Context, ids []string) ([]*model.EvidenceItem, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*model.EvidenceItem
	for _, item := range r.items {
		if want[item.ID] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeEvidenceRepo) Upsert(context.Context, *model.EvidenceItem) error { return nil }

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses map[string]*model.Response
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{responses: map[string]*model.Response{}}
}

func (r *fakeResponseRepo) put(resp *model.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[resp.ID] = resp
}

func (r *fakeResponseRepo) UpsertPending(_ context.Context, resp *model.Response) (*model.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.responses {
		if existing.ThreatID != resp.ThreatID {
			continue
		}
		if existing.Status == model.ResponsePosted {
			return nil, repository.ErrConflict
		}
		existing.Content, existing.Sources, existing.Confidence = resp.Content, resp.Sources, resp.Confidence
		existing.Status = model.ResponsePending
		existing.LastError = ""
		out := *existing
		return &out, nil
	}
	stored := *resp
	stored.ID = uuid.NewString()
	stored.Status = model.ResponsePending
	stored.CreatedAt = time.Now()
	r.responses[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *fakeResponseRepo) GetByID(_ context.Context, id string) (*model.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[id]
	if !ok {
		return nil, nil
	}
	out := *resp
	return &out, nil
}

func (r *fakeResponseRepo) GetByThreatID(_ context.Context, threatID string) (*model.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.responses {
		if resp.ThreatID == threatID {
			out := *resp
			return &out, nil
		}
	}
	return nil, nil
}

func (r *fakeResponseRepo) MarkPosted(_ context.Context, id, externalReplyID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[id]
	if !ok || resp.Status == model.ResponsePosted {
		return repository.ErrNotFound
	}
	resp.Status = model.ResponsePosted
	resp.ExternalReplyID = externalReplyID
	resp.PostedAt = &at
	resp.LastError = ""
	resp.Attempts++
	return nil
}

func (r *fakeResponseRepo) MarkFailed(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[id]
	if !ok || resp.Status == model.ResponsePosted {
		return repository.ErrNotFound
	}
	resp.Status = model.ResponseFailed
	resp.LastError = reason
	resp.Attempts++
	return nil
}

func (r *fakeResponseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

type fakeMonitorRepo struct {
	monitors []*model.Monitor
	lists    int
}

func (r *fakeMonitorRepo) ListActive(_ context.Context, brandID string) ([]*model.Monitor, error) {
	r.lists++
	var out []*model.Monitor
	for _, m := range r.monitors {
		if m.Active && (brandID == "" || m.BrandID == brandID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMonitorRepo) GetByID(_ context.Context, id string) (*model.Monitor, error) {
	for _, m := range r.monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMonitorRepo) Upsert(context.Context, *model.Monitor) error { return nil }

// fakeOracle answers per task; a missing answer is an error
type fakeOracle struct {
	mu      sync.Mutex
	answers map[OracleTask]string
	err     error
	calls   map[OracleTask]int
}

func newFakeOracle(answers map[OracleTask]string) *fakeOracle {
	return &fakeOracle{answers: answers, calls: map[OracleTask]int{}}
}

func (o *fakeOracle) Complete(_ context.Context, req OracleRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls[req.Task]++
	if o.err != nil {
		return "", o.err
	}
	answer, ok := o.answers[req.Task]
	if !ok {
		return "", ErrOracleDisabled
	}
	return answer, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) ofType(t model.EventType) []model.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []model.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakePlatform struct {
	result   *PlatformResult
	err      error
	payloads []ReplyPayload
}

func (p *fakePlatform) CreatePost(_ context.Context, payload ReplyPayload) (*PlatformResult, error) {
	p.payloads = append(p.payloads, payload)
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}
