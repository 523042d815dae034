// Package intake handles enrollment: a visitor picks a plan, submits the
// signup form and lands in the portal immediately. Paid plans that require
// review put the account into a pending state until an admin decides the
// application; that decision is the only thing that can flip the tier.
package intake

import (
	"errors"
	"fmt"
	"log"

	"github.com/ChartMentor-io/chartmentor/internal/auth"
	"github.com/ChartMentor-io/chartmentor/internal/database"
	"github.com/ChartMentor-io/chartmentor/internal/models"
	"github.com/ChartMentor-io/chartmentor/internal/notify"
	"github.com/go-playground/validator/v10"
)

// ErrAlreadyDecided re-exports the terminal-decision guard
var ErrAlreadyDecided = database.ErrAlreadyDecided

var validate = validator.New()

// SubmitInput is the signup form
type SubmitInput struct {
	FullName      string      `validate:"required,min=2,max=120"`
	Email         string      `validate:"required,email"`
	Password      string      `validate:"required,min=8"`
	RequestedTier models.Tier `validate:"required"`
}

// SubmitResult is what the portal needs to log the applicant straight in
type SubmitResult struct {
	User         *models.User
	Application  *models.Application // nil when the tier auto-provisions
	SessionToken string
}

// Outcome is an admin's decision on an application
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// Pipeline wires intake to its collaborators. The notifier is injected so
// tests can observe dispatches.
type Pipeline struct {
	notifier notify.Notifier
}

func New(notifier notify.Notifier) *Pipeline {
	if notifier == nil {
		notifier = notify.ConsoleNotifier{}
	}
	return &Pipeline{notifier: notifier}
}

// Submit validates the form, creates the account (pending when the chosen
// plan requires review) and authenticates the submitter in one step.
func (p *Pipeline) Submit(in SubmitInput) (*SubmitResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid application: %w", err)
	}
	if !in.RequestedTier.Valid() {
		return nil, errors.New("invalid application: unknown tier")
	}

	requiresReview := false
	if plan, err := database.GetPlanByTier(in.RequestedTier); err == nil {
		requiresReview = plan.RequiresReview
	} else if in.RequestedTier.IsPaid() {
		// No plan row; paid tiers stay on the safe path and go to review.
		requiresReview = true
	}

	tier := in.RequestedTier
	review := models.ReviewNone
	if requiresReview {
		review = models.ReviewPending
	}

	user, err := auth.Register(in.FullName, in.Email, in.Password, models.RoleStudent, tier, review)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{User: user}
	if requiresReview {
		app, err := database.CreateApplication(user.ID, in.RequestedTier)
		if err != nil {
			return nil, err
		}
		result.Application = app
	}

	// Auto-authenticate: the applicant lands in the portal immediately,
	// pending or not.
	token, err := auth.CreateSession(user.ID)
	if err != nil {
		return nil, err
	}
	result.SessionToken = token

	log.Printf("[INTAKE] Application submitted: user=%s tier=%s review=%v", user.ID, tier, requiresReview)
	return result, nil
}

// Decide applies the one admin decision an application gets. Approve grants
// the requested tier; Reject resets the account to free. A second call on
// the same application returns ErrAlreadyDecided.
func (p *Pipeline) Decide(applicationID string, outcome Outcome, decidedBy string) error {
	app, err := database.GetApplicationByID(applicationID)
	if err != nil {
		return err
	}
	user, err := database.GetUserByID(app.UserID)
	if err != nil {
		return err
	}

	switch outcome {
	case OutcomeApprove:
		if err := database.DecideApplication(app.ID, models.ApplicationApproved, decidedBy, user.ID, app.RequestedTier); err != nil {
			return err
		}
		p.notifier.Send(notify.Message{
			ToName:  user.FullName,
			ToEmail: user.Email,
			Subject: "Your enrollment is approved",
			Text: fmt.Sprintf("Welcome aboard, %s! Your %s plan is now active. Log in to get started.",
				user.FullName, app.RequestedTier),
		})
	case OutcomeReject:
		if err := database.DecideApplication(app.ID, models.ApplicationRejected, decidedBy, user.ID, models.TierFree); err != nil {
			return err
		}
		p.notifier.Send(notify.Message{
			ToName:  user.FullName,
			ToEmail: user.Email,
			Subject: "About your enrollment application",
			Text: fmt.Sprintf("Hi %s, we couldn't approve your %s application at this time. Your account stays on the free plan.",
				user.FullName, app.RequestedTier),
		})
	default:
		return fmt.Errorf("unknown outcome: %s", outcome)
	}

	log.Printf("[INTAKE] Application %s decided: %s by %s", app.ID, outcome, decidedBy)
	return nil
}
