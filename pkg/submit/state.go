package submit

import (
	"context"
	"time"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/log"
)

// State is a step of a submission.
type State int

const (
	Idle State = iota
	Validating
	EncodingMedia
	Sealing
	Sending
	AwaitingResponse
	Opening
	Success
	Failed
)

var stateNames = [...]string{
	Idle:             "Idle",
	Validating:       "Validating",
	EncodingMedia:    "EncodingMedia",
	Sealing:          "Sealing",
	Sending:          "Sending",
	AwaitingResponse: "AwaitingResponse",
	Opening:          "Opening",
	Success:          "Success",
	Failed:           "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Success || s == Failed
}

// Transition is reported to the Observer on every state change.
type Transition struct {
	SubmissionID string
	Form         string
	From         State
	To           State

	// Err is set when To is Failed.
	Err error

	// Elapsed is the time spent in From.
	Elapsed time.Duration
}

// Observer receives transitions synchronously, in order, on the submitting goroutine.
type Observer func(ctx context.Context, t Transition)

// run tracks one submission through the state machine.
type run struct {
	client  *Client
	id      string
	form    string
	state   State
	entered time.Time
}

func (r *run) enter(ctx context.Context, to State, err error) {
	now := time.Now()
	t := Transition{
		SubmissionID: r.id,
		Form:         r.form,
		From:         r.state,
		To:           to,
		Err:          err,
		Elapsed:      now.Sub(r.entered),
	}
	if r.state != Idle {
		r.client.metrics.ObserveStage(r.form, r.state.String(), t.Elapsed)
	}
	log.L(ctx).Debugf("%s -> %s (%dms)", t.From, t.To, t.Elapsed.Milliseconds())

	r.state, r.entered = to, now
	if r.client.observer != nil {
		r.client.observer(ctx, t)
	}
}

// advance moves to the next stage unless the context is already done.
func (r *run) advance(ctx context.Context, to State) error {
	if err := ctx.Err(); err != nil {
		return failure.Canceled(err)
	}
	r.enter(ctx, to, nil)
	return nil
}
