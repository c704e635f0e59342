package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-backend/internal/drawing"
	"draw-backend/internal/models"
	"draw-backend/internal/services"
	"draw-backend/internal/supabase"
)

const rubricEights = `{"rubric":{"promptMatch":8,"composition":8,"shapeClarity":8,"lineStability":8,"creativity":8,"completeness":8},"oneLiner":"よく描けています。","tips":["線の勢い","形"]}`

type submitFixture struct {
	store     *fakeStore
	images    *fakeImages
	queue     *fakeQueue
	completer *fakeCompleter
	service   *services.SubmissionService
}

func newSubmitFixture(t *testing.T) *submitFixture {
	t.Helper()
	f := &submitFixture{
		store:     newFakeStore(),
		images:    newFakeImages(),
		queue:     &fakeQueue{},
		completer: &fakeCompleter{text: rubricEights},
	}
	prompts := drawing.NewPromptResolver(fixedClock)
	scorer := services.NewPrimaryScorer(f.completer, "primary-model").
		WithRand(func(int) int { return 10 }).
		WithClock(fixedClock)
	f.service = services.NewSubmissionService(f.store, f.images, f.queue, scorer, prompts, 7*24*time.Hour).
		WithClock(fixedClock)
	return f
}

func TestSubmit_RankedSubmissionIsQueued(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.objects["draw/prompt-2026-02/01SUB.png"] = inkPNG(t)

	result, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01SUB",
		ImageKey:     "draw/prompt-2026-02/01SUB.png",
		Nickname:     "すばる",
	})
	require.NoError(t, err)

	wantScore := drawing.ApplyJitter(80, "01SUB")
	assert.Equal(t, wantScore, result.Score)
	assert.True(t, result.IsRanked)
	require.NotNil(t, result.Rank)
	assert.Equal(t, 1, *result.Rank)
	assert.Equal(t, "よく描けています。", result.OneLiner)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-02", "01SUB")
	require.NoError(t, err)
	assert.Equal(t, "すばる", sub.Nickname)
	assert.Equal(t, "30秒で熊を描いて", sub.PromptText)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour).Unix(), sub.ExpiresAt)
	assert.Equal(t, drawing.SortKey(wantScore, fixedNow, "01SUB"), sub.ScoreSortKey)
	assert.False(t, sub.Primary.FallbackUsed)
	require.NotNil(t, sub.Primary.Rubric)
	assert.Equal(t, 8, sub.Primary.Rubric.Creativity)
	require.NotNil(t, sub.Primary.TotalTokens)
	assert.Equal(t, int64(1280), *sub.Primary.TotalTokens)

	review, err := f.store.GetSecondaryReview(context.Background(), "prompt-2026-02", "01SUB")
	require.NoError(t, err)
	assert.Equal(t, models.SecondaryStatusPending, review.Status)

	require.Len(t, f.queue.messages, 1)
	assert.Equal(t, models.SecondaryReviewMessage{
		PromptID:     "prompt-2026-02",
		SubmissionID: "01SUB",
		Score:        wantScore,
	}, f.queue.messages[0])
}

func TestSubmit_BlankDrawingSkipsScoring(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.objects["draw/prompt-2026-02/01BLANK.png"] = blankPNG(t)

	result, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01BLANK",
		ImageKey:     "draw/prompt-2026-02/01BLANK.png",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, drawing.Breakdown{}, result.Breakdown)
	assert.False(t, result.IsRanked)
	assert.Nil(t, result.Rank)
	assert.Equal(t, drawing.GateOneLiner, result.OneLiner)
	assert.Empty(t, result.Tips)
	assert.Zero(t, f.completer.calls())
	assert.Empty(t, f.queue.messages)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-02", "01BLANK")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNickname, sub.Nickname)
	assert.True(t, sub.Primary.FallbackUsed)
	assert.Equal(t, drawing.SortKey(0, fixedNow, "01BLANK"), sub.ScoreSortKey)

	review, err := f.store.GetSecondaryReview(context.Background(), "prompt-2026-02", "01BLANK")
	require.NoError(t, err)
	assert.Equal(t, models.SecondaryStatusSkipped, review.Status)
}

func TestSubmit_FullLeaderboardGivesRank21(t *testing.T) {
	f := newSubmitFixture(t)
	for i := 0; i < 20; i++ {
		f.store.extraKeys["prompt-2026-02"] = append(f.store.extraKeys["prompt-2026-02"],
			drawing.SortKey(90+i%5, fixedNow.Add(-time.Hour), fmt.Sprintf("00OLD%02d", i)))
	}
	f.images.objects["draw/prompt-2026-02/01LATE.png"] = inkPNG(t)

	result, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01LATE",
		ImageKey:     "draw/prompt-2026-02/01LATE.png",
	})
	require.NoError(t, err)

	assert.False(t, result.IsRanked)
	assert.Nil(t, result.Rank)
	assert.Empty(t, f.queue.messages)

	review, err := f.store.GetSecondaryReview(context.Background(), "prompt-2026-02", "01LATE")
	require.NoError(t, err)
	assert.Equal(t, models.SecondaryStatusSkipped, review.Status)
}

func TestSubmit_InferenceFailureFallsBackToStub(t *testing.T) {
	f := newSubmitFixture(t)
	f.completer.err = errors.New("throttled")
	f.images.objects["draw/prompt-2026-02/01STUB.png"] = inkPNG(t)

	result, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01STUB",
		ImageKey:     "draw/prompt-2026-02/01STUB.png",
	})
	require.NoError(t, err)

	assert.Equal(t, drawing.ApplyJitter(70, "01STUB"), result.Score)
	assert.Equal(t, "輪郭が安定していて見やすいです。", result.OneLiner)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-02", "01STUB")
	require.NoError(t, err)
	assert.True(t, sub.Primary.FallbackUsed)
	assert.Nil(t, sub.Primary.Rubric)
	assert.Nil(t, sub.Primary.TotalTokens)
}

func TestSubmit_UnparseableResponseFallsBackToStub(t *testing.T) {
	f := newSubmitFixture(t)
	f.completer.text = "I cannot score this image."
	f.images.objects["draw/prompt-2026-02/01TEXT.png"] = inkPNG(t)

	result, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01TEXT",
		ImageKey:     "draw/prompt-2026-02/01TEXT.png",
	})
	require.NoError(t, err)
	assert.Equal(t, drawing.ApplyJitter(70, "01TEXT"), result.Score)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-02", "01TEXT")
	require.NoError(t, err)
	assert.True(t, sub.Primary.FallbackUsed)
	require.NotNil(t, sub.Primary.TotalTokens)
}

func TestSubmit_ImageKeyPromptWins(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.objects["draw/prompt-2026-05/01KEY.png"] = inkPNG(t)

	_, err := f.service.Submit(context.Background(), models.SubmitRequest{
		PromptID:     "prompt-2026-02",
		SubmissionID: "01KEY",
		ImageKey:     "draw/prompt-2026-05/01KEY.png",
	})
	require.NoError(t, err)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-05", "01KEY")
	require.NoError(t, err)
	assert.Equal(t, "prompt-2026-05", sub.PromptID)
	assert.Equal(t, "prompt-2026-05", f.queue.messages[0].PromptID)
}

func TestSubmit_MonthWinsOverImageKey(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.objects["draw/prompt-2026-05/01MON.png"] = inkPNG(t)

	_, err := f.service.Submit(context.Background(), models.SubmitRequest{
		Month:        "2026-03",
		SubmissionID: "01MON",
		ImageKey:     "draw/prompt-2026-05/01MON.png",
	})
	require.NoError(t, err)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-03", "01MON")
	require.NoError(t, err)
	assert.Equal(t, "30秒で"+drawing.TopicForMonth("2026-03")+"を描いて", sub.PromptText)
}

func TestSubmit_ClientPromptTextIsIgnored(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.objects["draw/prompt-2026-02/01TXT.png"] = inkPNG(t)

	var req models.SubmitRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"submissionId": "01TXT",
		"imageKey": "draw/prompt-2026-02/01TXT.png",
		"promptText": "30秒で丸を描いて"
	}`), &req))

	_, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)

	sub, err := f.store.GetSubmission(context.Background(), "prompt-2026-02", "01TXT")
	require.NoError(t, err)
	assert.Equal(t, "30秒で熊を描いて", sub.PromptText)

	require.Len(t, f.completer.requests, 1)
	assert.Contains(t, f.completer.requests[0].Text, "熊")
	assert.NotContains(t, f.completer.requests[0].Text, "丸")
}

func TestSubmit_DuplicateSubmissionID(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.objects["draw/prompt-2026-02/01DUP.png"] = inkPNG(t)
	req := models.SubmitRequest{SubmissionID: "01DUP", ImageKey: "draw/prompt-2026-02/01DUP.png"}

	_, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)

	_, err = f.service.Submit(context.Background(), req)
	assert.ErrorIs(t, err, supabase.ErrAlreadyExists)
	assert.Len(t, f.queue.messages, 1)
}

func TestSubmit_MissingFields(t *testing.T) {
	f := newSubmitFixture(t)

	_, err := f.service.Submit(context.Background(), models.SubmitRequest{SubmissionID: "01X"})

	assert.ErrorIs(t, err, services.ErrInvalidInput)
	assert.Zero(t, f.images.downloads)
}

func TestSubmit_StorageErrorIsReturned(t *testing.T) {
	f := newSubmitFixture(t)
	f.images.err = errors.New("storage unavailable")

	_, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01ERR",
		ImageKey:     "draw/prompt-2026-02/01ERR.png",
	})

	assert.EqualError(t, err, "storage unavailable")
	assert.Empty(t, f.store.submissions)
}

func TestSubmit_QueueErrorIsReturned(t *testing.T) {
	f := newSubmitFixture(t)
	f.queue.err = errors.New("queue down")
	f.images.objects["draw/prompt-2026-02/01Q.png"] = inkPNG(t)

	_, err := f.service.Submit(context.Background(), models.SubmitRequest{
		SubmissionID: "01Q",
		ImageKey:     "draw/prompt-2026-02/01Q.png",
	})

	assert.EqualError(t, err, "queue down")
}

func TestCreateUploadURL(t *testing.T) {
	images := newFakeImages()
	svc := services.NewUploadService(images, drawing.NewPromptResolver(fixedClock))

	resp, err := svc.CreateUploadURL(context.Background(), models.UploadURLRequest{Month: "2026-03"})
	require.NoError(t, err)

	assert.Len(t, resp.SubmissionID, 26)
	assert.Equal(t, "prompt-2026-03", resp.PromptID)
	assert.Equal(t, "draw/prompt-2026-03/"+resp.SubmissionID+".png", resp.ImageKey)
	assert.Contains(t, resp.PutURL, resp.ImageKey)
	assert.Equal(t, "30秒で"+drawing.TopicForMonth("2026-03")+"を描いて", resp.PromptText)
}

func TestCreateUploadURL_DefaultsToCurrentMonth(t *testing.T) {
	svc := services.NewUploadService(newFakeImages(), drawing.NewPromptResolver(fixedClock))

	resp, err := svc.CreateUploadURL(context.Background(), models.UploadURLRequest{})
	require.NoError(t, err)

	assert.Equal(t, "prompt-2026-02", resp.PromptID)
}
