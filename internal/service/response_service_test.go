package service

import (
	"brandwatch/internal/model"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type responseFixture struct {
	svc       *ResponseService
	threats   *fakeThreatRepo
	responses *fakeResponseRepo
	evidence  *fakeEvidenceRepo
	posts     *fakePostRepo
	oracle    *fakeOracle
	notifier  *recordingNotifier
}

func newResponseFixture(verdict *model.Verification, items ...*model.EvidenceItem) *responseFixture {
	f := &responseFixture{
		threats:   newFakeThreatRepo(),
		responses: newFakeResponseRepo(),
		evidence:  &fakeEvidenceRepo{items: items},
		oracle:    newFakeOracle(nil),
		notifier:  &recordingNotifier{},
	}
	f.threats.put(&model.Threat{
		ID: "t-1", PostID: "p-1", BrandID: "bankx", MonitorID: "m-1",
		Claim: "Bank X is closing all branches", Verification: verdict,
	})
	posts := newFakePostRepo()
	f.posts = posts
	posts.posts["p-1"] = &model.DetectedPost{ID: "p-1", Platform: model.PlatformTwitter, ExternalPostID: "tw-1"}
	monitors := &fakeMonitorRepo{monitors: []*model.Monitor{{ID: "m-1", BrandID: "bankx", BrandName: "Bank X"}}}

	f.svc = NewResponseService(f.threats, posts, monitors, f.evidence, f.responses, f.oracle, f.notifier,
		nil, newTestLogger(), 280, "Official statement from Bank X.")
	return f
}

func falseVerdict(ids ...string) *model.Verification {
	return &model.Verification{Status: model.VerdictFalse, Confidence: 80, Summary: untrustedSummary, EvidenceIDs: ids}
}

func TestSynthesizeAfterFalseVerdict(t *testing.T) {
	items := []*model.EvidenceItem{
		evidence("e1", 0.4, "a"), evidence("e2", 0.4, "b"), evidence("e3", 0.4, "c"), evidence("e4", 0.2, "d"),
	}
	items[1].PublishedAt = items[1].PublishedAt.Add(time.Hour)
	f := newResponseFixture(falseVerdict("e1", "e2", "e3", "e4"), items...)

	resp, err := f.svc.Synthesize(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.ResponsePending, resp.Status)
	assert.NotEmpty(t, resp.Content)
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Content), 280)
	require.Len(t, resp.Sources, 3)
	assert.Equal(t, "https://news.example/e2", resp.Sources[0], "ties on credibility go to the newest item")
	assert.Equal(t, 80, resp.Confidence)
	assert.Contains(t, resp.Content, "Bank X", "templated fallback names the brand")

	ready := f.notifier.ofType(model.EventResponseReady)
	require.Len(t, ready, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(ready[0].Message), previewRunes)
}

func TestSynthesizeUsesOracleReply(t *testing.T) {
	f := newResponseFixture(falseVerdict("e1"), evidence("e1", 0.9, "Bank X branches stay open"))
	f.oracle.answers = map[OracleTask]string{TaskReply: `{"reply": "  All Bank X branches remain open.  "}`}

	resp, err := f.svc.Synthesize(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Content, "All Bank X branches remain open."))
	assert.Contains(t, resp.Content, "https://news.example/e1")
}

func TestSynthesizeIsKeyedByThreat(t *testing.T) {
	f := newResponseFixture(falseVerdict())
	ctx := context.Background()

	first, err := f.svc.Synthesize(ctx, "t-1")
	require.NoError(t, err)
	second, err := f.svc.Synthesize(ctx, "t-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.responses.count())
}

func TestSynthesizeRefusesPostedResponse(t *testing.T) {
	f := newResponseFixture(falseVerdict())
	f.responses.put(&model.Response{ID: "r-1", ThreatID: "t-1", Status: model.ResponsePosted, Content: "posted"})

	_, err := f.svc.Synthesize(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrResponseAlreadyPosted)
	assert.Zero(t, f.oracle.calls[TaskReply])

	stored, _ := f.responses.GetByID(context.Background(), "r-1")
	assert.Equal(t, "posted", stored.Content)
}

func TestSynthesizeRequiresResponseWorthyVerdict(t *testing.T) {
	f := newResponseFixture(&model.Verification{Status: model.VerdictTrue, Confidence: 90})
	_, err := f.svc.Synthesize(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrNotResponseWorthy)

	f = newResponseFixture(nil)
	_, err = f.svc.Synthesize(context.Background(), "t-1")
	assert.ErrorIs(t, err, ErrNotResponseWorthy)
}

func TestRenderContentBudget(t *testing.T) {
	sources := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}
	footer := "Official statement."

	for _, max := range []int{1, 5, 20, 40, 90, 120, 280, 1000} {
		for _, bodyLen := range []int{0, 10, 100, 2000} {
			body := strings.Repeat("é", bodyLen)
			out := RenderContent(body, footer, sources, max)
			assert.LessOrEqual(t, utf8.RuneCountInString(out), max, fmt.Sprintf("max=%d body=%d", max, bodyLen))
		}
	}
}

func TestRenderContentMarksTruncation(t *testing.T) {
	body := strings.Repeat("word ", 100)
	out := RenderContent(body, "", nil, 50)
	assert.Equal(t, 50, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, ellipsis))

	short := RenderContent("fits", "footer", []string{"https://x.example"}, 1000)
	assert.Equal(t, "fits\n\nfooter\n\nSources:\nhttps://x.example", short)
	assert.NotContains(t, short, ellipsis)
}

func TestRenderContentDropsCitationsFirst(t *testing.T) {
	footer := "Footer."
	sources := []string{"https://very-long-source.example/" + strings.Repeat("x", 60)}

	out := RenderContent("Body text", footer, sources, 40)
	assert.NotContains(t, out, "Sources:")
	assert.Contains(t, out, footer)
	assert.True(t, strings.HasPrefix(out, "Body text"))
}

func TestSynthesizeLeavesRoomForMention(t *testing.T) {
	f := newResponseFixture(falseVerdict("e1"), evidence("e1", 0.9, "Bank X branches stay open"))
	f.posts.posts["p-1"].AuthorHandle = "worried_customer"
	f.oracle.answers = map[OracleTask]string{TaskReply: fmt.Sprintf(`{"reply": %q}`, strings.Repeat("Branches are open. ", 30))}

	resp, err := f.svc.Synthesize(context.Background(), "t-1")
	require.NoError(t, err)

	mention := "@worried_customer "
	assert.Contains(t, resp.Content, ellipsis)
	assert.LessOrEqual(t, utf8.RuneCountInString(resp.Content), 280-utf8.RuneCountInString(mention))

	text := replyText("worried_customer", resp.Content, 280)
	assert.Equal(t, mention+resp.Content, text, "publisher must not cut a reply sized by the synthesizer")
}
