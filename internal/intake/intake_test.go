package intake

import (
	"os"
	"testing"

	"github.com/ChartMentor-io/chartmentor/internal/config"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/ChartMentor-io/chartmentor/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	path := "test_intake.db"
	os.Remove(path)

	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = path

	require.NoError(t, database.Init(cfg))
	t.Cleanup(func() {
		database.Close()
		os.Remove(path)
	})
}

func TestSubmitFreeTierAutoProvisions(t *testing.T) {
	setupTestDB(t)
	p := New(&notify.Recorder{})

	result, err := p.Submit(SubmitInput{
		FullName:      "Free Rider",
		Email:         "free@example.com",
		Password:      "Str0ngPass",
		RequestedTier: models.TierFree,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Application)
	assert.Equal(t, models.TierFree, result.User.Tier)
	assert.Equal(t, models.ReviewNone, result.User.ReviewStatus)
	assert.NotEmpty(t, result.SessionToken, "submitter should be authenticated immediately")
}

func TestSubmitPaidTierGoesToReview(t *testing.T) {
	setupTestDB(t)
	p := New(&notify.Recorder{})

	result, err := p.Submit(SubmitInput{
		FullName:      "Pro Hopeful",
		Email:         "pro@example.com",
		Password:      "Str0ngPass",
		RequestedTier: models.TierProfessional,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Application)
	assert.Equal(t, models.ApplicationPending, result.Application.Status)
	assert.Equal(t, models.TierProfessional, result.User.Tier)
	assert.Equal(t, models.ReviewPending, result.User.ReviewStatus)
	assert.NotEmpty(t, result.SessionToken)
}

func TestSubmitValidation(t *testing.T) {
	setupTestDB(t)
	p := New(&notify.Recorder{})

	_, err := p.Submit(SubmitInput{FullName: "X", Email: "bad", Password: "short", RequestedTier: models.TierFree})
	assert.Error(t, err)

	_, err = p.Submit(SubmitInput{FullName: "Nice Name", Email: "ok@example.com", Password: "Str0ngPass", RequestedTier: models.Tier("platinum")})
	assert.Error(t, err)
}

func TestApproveGrantsRequestedTier(t *testing.T) {
	setupTestDB(t)
	rec := &notify.Recorder{}
	p := New(rec)

	result, err := p.Submit(SubmitInput{
		FullName:      "Elite Hopeful",
		Email:         "elite@example.com",
		Password:      "Str0ngPass",
		RequestedTier: models.TierElite,
	})
	require.NoError(t, err)

	require.NoError(t, p.Decide(result.Application.ID, OutcomeApprove, "admin-1"))

	user, err := database.GetUserByID(result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierElite, user.Tier)
	assert.Equal(t, models.ReviewNone, user.ReviewStatus)

	require.Len(t, rec.Messages, 1)
	assert.Contains(t, rec.Messages[0].Subject, "approved")
	assert.Equal(t, "elite@example.com", rec.Messages[0].ToEmail)
}

func TestRejectResetsToFree(t *testing.T) {
	setupTestDB(t)
	rec := &notify.Recorder{}
	p := New(rec)

	result, err := p.Submit(SubmitInput{
		FullName:      "Foundation Hopeful",
		Email:         "foundation@example.com",
		Password:      "Str0ngPass",
		RequestedTier: models.TierFoundation,
	})
	require.NoError(t, err)

	require.NoError(t, p.Decide(result.Application.ID, OutcomeReject, "admin-1"))

	user, err := database.GetUserByID(result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, user.Tier)
	assert.Equal(t, models.ReviewNone, user.ReviewStatus)

	require.Len(t, rec.Messages, 1)
	assert.NotContains(t, rec.Messages[0].Subject, "approved")
}

func TestDecisionIsTerminal(t *testing.T) {
	setupTestDB(t)
	p := New(&notify.Recorder{})

	result, err := p.Submit(SubmitInput{
		FullName:      "Double Decide",
		Email:         "double@example.com",
		Password:      "Str0ngPass",
		RequestedTier: models.TierProfessional,
	})
	require.NoError(t, err)

	require.NoError(t, p.Decide(result.Application.ID, OutcomeApprove, "admin-1"))

	// Reject after approve must not touch the tier
	err = p.Decide(result.Application.ID, OutcomeReject, "admin-2")
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	user, err := database.GetUserByID(result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierProfessional, user.Tier)
}
