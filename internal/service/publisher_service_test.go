package service

import (
	"brandwatch/internal/config"
	"brandwatch/internal/model"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishFixture struct {
	svc       *PublisherService
	responses *fakeResponseRepo
	posts     *fakePostRepo
	notifier  *recordingNotifier
}

func newPublishFixture(client PlatformClient) *publishFixture {
	f := &publishFixture{
		responses: newFakeResponseRepo(),
		posts:     newFakePostRepo(),
		notifier:  &recordingNotifier{},
	}
	threats := newFakeThreatRepo()
	threats.put(&model.Threat{ID: "t-1", PostID: "p-1", BrandID: "bankx"})
	f.posts.posts["p-1"] = &model.DetectedPost{ID: "p-1", ExternalPostID: "1790000000000000001", AuthorHandle: "worried_customer"}
	f.responses.put(&model.Response{ID: "r-1", ThreatID: "t-1", Status: model.ResponsePending, Content: "Branches remain open."})

	f.svc = NewPublisherService(f.responses, threats, f.posts, client, f.notifier, nil, newTestLogger(), 280)
	return f
}

func TestPublishSuccess(t *testing.T) {
	platform := &fakePlatform{result: &PlatformResult{OK: true, StatusCode: 201, Body: `{"data":{"id":"reply-42","text":"..."}}`}}
	f := newPublishFixture(platform)

	resp, err := f.svc.Publish(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, model.ResponsePosted, resp.Status)
	assert.Equal(t, "reply-42", resp.ExternalReplyID)
	require.NotNil(t, resp.PostedAt)

	require.Len(t, platform.payloads, 1)
	assert.Equal(t, "@worried_customer Branches remain open.", platform.payloads[0].Text)
	assert.LessOrEqual(t, utf8.RuneCountInString(platform.payloads[0].Text), 280)
	assert.Equal(t, "1790000000000000001", platform.payloads[0].Reply.InReplyToTweetID)
	assert.Len(t, f.notifier.ofType(model.EventResponsePosted), 1)

	_, err = f.svc.Publish(context.Background(), "r-1")
	assert.ErrorIs(t, err, ErrResponseAlreadyPosted)
	assert.Len(t, platform.payloads, 1, "posted responses are never sent again")
}

func TestPublishKeepsMentionWithinLimit(t *testing.T) {
	platform := &fakePlatform{result: &PlatformResult{OK: true, StatusCode: 201, Body: `{"data":{"id":"reply-7"}}`}}
	f := newPublishFixture(platform)
	f.responses.responses["r-1"].Content = strings.Repeat("a", 280)

	_, err := f.svc.Publish(context.Background(), "r-1")
	require.NoError(t, err)

	require.Len(t, platform.payloads, 1)
	text := platform.payloads[0].Text
	assert.Equal(t, 280, utf8.RuneCountInString(text))
	assert.True(t, strings.HasPrefix(text, "@worried_customer "))
	assert.True(t, strings.HasSuffix(text, ellipsis))
}

func TestPublishServerErrorMarksFailed(t *testing.T) {
	platform := &fakePlatform{result: &PlatformResult{StatusCode: 500, Body: `{"title":"Internal Error"}`}}
	f := newPublishFixture(platform)

	resp, err := f.svc.Publish(context.Background(), "r-1")
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, 500, pubErr.StatusCode)
	assert.False(t, IsPermanent(err), "5xx is retried")

	assert.Equal(t, model.ResponseFailed, resp.Status)
	assert.NotEmpty(t, resp.LastError)

	failed := f.notifier.ofType(model.EventResponseFailed)
	require.Len(t, failed, 1)
	assert.NotEmpty(t, failed[0].Message)
}

func TestPublishClientErrorIsPermanent(t *testing.T) {
	f := newPublishFixture(&fakePlatform{result: &PlatformResult{StatusCode: 403, Body: "forbidden"}})
	_, err := f.svc.Publish(context.Background(), "r-1")
	assert.True(t, IsPermanent(err))

	f = newPublishFixture(&fakePlatform{result: &PlatformResult{StatusCode: 429, Body: "slow down"}})
	_, err = f.svc.Publish(context.Background(), "r-1")
	assert.False(t, IsPermanent(err))
}

func TestPublishMissingReplyTarget(t *testing.T) {
	platform := &fakePlatform{result: &PlatformResult{OK: true, StatusCode: 201}}
	f := newPublishFixture(platform)
	f.posts.posts["p-1"].ExternalPostID = ""

	resp, err := f.svc.Publish(context.Background(), "r-1")
	assert.ErrorIs(t, err, ErrMissingReplyTarget)
	assert.True(t, IsPermanent(err))
	assert.Empty(t, platform.payloads, "no network call is made")
	assert.Equal(t, model.ResponseFailed, resp.Status)
}

func TestPublishNetworkErrorIsTransient(t *testing.T) {
	f := newPublishFixture(&fakePlatform{err: errors.New("connection reset")})
	_, err := f.svc.Publish(context.Background(), "r-1")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestPublishUnknownResponse(t *testing.T) {
	f := newPublishFixture(&fakePlatform{})
	_, err := f.svc.Publish(context.Background(), "missing")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestTwitterClientCreatePost(t *testing.T) {
	var got ReplyPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"99"}}`))
	}))
	defer srv.Close()

	client := NewTwitterClient(config.PlatformConfig{BaseURL: srv.URL + "/", Token: "tkn", Timeout: time.Second}, newTestLogger())
	res, err := client.CreatePost(context.Background(), ReplyPayload{
		Text:  "@a hi",
		Reply: ReplyInfo{InReplyToTweetID: "1"},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "99", replyIDFrom(res.Body))
	assert.Equal(t, "1", got.Reply.InReplyToTweetID)
}

func TestTwitterClientReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewTwitterClient(config.PlatformConfig{BaseURL: srv.URL, Timeout: time.Second}, newTestLogger())
	res, err := client.CreatePost(context.Background(), ReplyPayload{Text: "x"})
	require.NoError(t, err, "a non-2xx answer is a result")
	assert.False(t, res.OK)
	assert.Equal(t, 500, res.StatusCode)
}
