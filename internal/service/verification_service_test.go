package service

import (
	"brandwatch/internal/model"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyFixture struct {
	svc      *VerificationService
	threats  *fakeThreatRepo
	posts    *fakePostRepo
	evidence *fakeEvidenceRepo
	oracle   *fakeOracle
	notifier *recordingNotifier
}

func newVerifyFixture(claim string, items ...*model.EvidenceItem) *verifyFixture {
	f := &verifyFixture{
		threats:  newFakeThreatRepo(),
		posts:    newFakePostRepo(),
		evidence: &fakeEvidenceRepo{items: items},
		oracle:   newFakeOracle(nil),
		notifier: &recordingNotifier{},
	}
	f.threats.put(&model.Threat{ID: "t-1", PostID: "p-1", BrandID: "bankx", Claim: claim, Status: model.ThreatVerifying})
	f.svc = NewVerificationService(f.threats, f.posts, f.evidence, f.oracle, f.notifier, nil, newTestLogger(), time.Second)
	return f
}

func evidence(id string, credibility float64, title string) *model.EvidenceItem {
	return &model.EvidenceItem{
		ID:          id,
		BrandID:     "bankx",
		URL:         "https://news.example/" + id,
		Title:       title,
		Source:      "news.example",
		Credibility: credibility,
		PublishedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestVerifyWithoutEvidence(t *testing.T) {
	f := newVerifyFixture("Bank X app is down nationwide")

	v, err := f.svc.Verify(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictUnverified, v.Status)
	assert.Equal(t, 35, v.Confidence)
	assert.Less(t, v.Confidence, 50)
	assert.Equal(t, noEvidenceSummary, v.Summary)
	assert.Equal(t, []string{"bank"}, f.evidence.queries)
	assert.Zero(t, f.oracle.calls[TaskVerdict])

	stored, _ := f.threats.GetByID(context.Background(), "t-1")
	require.NotNil(t, stored.Verification)
	assert.Equal(t, model.VerdictUnverified, stored.Verification.Status)
	assert.Len(t, f.notifier.ofType(model.EventVerificationComplete), 1)
}

func TestVerifyWithoutCredibleEvidence(t *testing.T) {
	f := newVerifyFixture("Bank X is closing all branches",
		evidence("e1", 0.4, "Bank rumours spread"),
		evidence("e2", 0.4, "Forum post: bank closing"),
		evidence("e3", 0.4, "Blog: bank trouble"),
	)

	v, err := f.svc.Verify(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFalse, v.Status)
	assert.Equal(t, 80, v.Confidence)
	assert.GreaterOrEqual(t, v.Confidence, 70)
	assert.Equal(t, untrustedSummary, v.Summary)
	assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, v.EvidenceIDs)
	assert.Zero(t, f.oracle.calls[TaskVerdict])
}

func TestVerifyWithCredibleEvidence(t *testing.T) {
	f := newVerifyFixture("Bank X leaked customer data",
		evidence("e1", 0.9, "Bank X denies data leak"),
		evidence("e2", 0.3, "Bank X leak thread"),
	)
	f.oracle.answers = map[OracleTask]string{
		TaskVerdict: `{"verdict": "false", "confidence": 140, "reason": "Regulator found no breach."}`,
	}

	v, err := f.svc.Verify(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFalse, v.Status)
	assert.Equal(t, 100, v.Confidence, "confidence is clamped")
	assert.Equal(t, "Regulator found no breach.", v.Summary)
	assert.Equal(t, []string{"e1", "e2"}, v.EvidenceIDs)
}

func TestVerifyOracleFailure(t *testing.T) {
	for name, answer := range map[string]string{
		"error":       "",
		"not json":    "the claim is false",
		"bad verdict": `{"verdict": "MAYBE", "confidence": 50, "reason": "unsure"}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newVerifyFixture("Bank X leaked customer data", evidence("e1", 0.9, "Bank X denies leak"))
			if answer == "" {
				f.oracle.err = errors.New("circuit breaker open")
			} else {
				f.oracle.answers = map[OracleTask]string{TaskVerdict: answer}
			}

			v, err := f.svc.Verify(context.Background(), "t-1")
			require.NoError(t, err)
			assert.Equal(t, model.VerdictUnverified, v.Status)
			assert.Equal(t, 60, v.Confidence)
			assert.Equal(t, oracleDownSummary, v.Summary)
		})
	}
}

func TestVerifyIsStableUnderStableEvidence(t *testing.T) {
	f := newVerifyFixture("Bank X is closing all branches", evidence("e1", 0.4, "Bank closing rumour"))
	ctx := context.Background()

	first, err := f.svc.Verify(ctx, "t-1")
	require.NoError(t, err)
	second, err := f.svc.Verify(ctx, "t-1")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.EvidenceIDs, second.EvidenceIDs)
	assert.Len(t, f.threats.threats, 1)
}

func TestVerifyFallsBackToMatchedKeyword(t *testing.T) {
	f := newVerifyFixture("is it ok??")
	f.posts.posts["p-1"] = &model.DetectedPost{ID: "p-1", MatchedKeywords: []string{"outage"}}

	_, err := f.svc.Verify(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"outage"}, f.evidence.queries)
}

func TestVerifyErrors(t *testing.T) {
	t.Run("missing threat", func(t *testing.T) {
		f := newVerifyFixture("x")
		_, err := f.svc.Verify(context.Background(), "nope")
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "threat", nf.Entity)
		assert.True(t, IsPermanent(err))
	})

	t.Run("evidence store failure is retryable", func(t *testing.T) {
		f := newVerifyFixture("Bank X app is down")
		f.evidence.err = fmt.Errorf("server selection timeout")
		_, err := f.svc.Verify(context.Background(), "t-1")
		require.Error(t, err)
		assert.False(t, IsPermanent(err))

		stored, _ := f.threats.GetByID(context.Background(), "t-1")
		assert.Nil(t, stored.Verification, "nothing is written on failure")
	})
}
