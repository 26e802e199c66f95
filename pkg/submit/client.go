// Package submit runs a form submission end to end: validate the form, encode
// its media, seal the payload, post it and open the reply.
//
// A Client holds no per-submission state and may be shared. Each call to
// Submit walks the states Idle, Validating, EncodingMedia, Sealing, Sending,
// AwaitingResponse and Opening, and ends in Success or Failed. Transitions are
// reported to the configured Observer.
package submit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/config"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/envelope"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/log"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/media"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/metrics"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/payload"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/transport"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/types"
)

var (
	ErrUnknownMediaField = errors.New("attachment targets an unknown media field")
	ErrEmptyAttachment   = errors.New("attachment carries neither an image nor a signature")
	ErrAttachmentKind    = errors.New("attachment kind does not match its media field")
)

// Attachment is one image or drawn signature destined for a media field.
type Attachment struct {
	Field     string
	Image     *media.RawImage
	Signature *media.Signature
}

func (a Attachment) empty() bool {
	if a.Signature != nil {
		return a.Signature.IsEmpty()
	}
	return a.Image == nil || len(a.Image.Data) == 0
}

// Submission is the form state handed to Submit.
type Submission struct {
	// Form is a form name or type, see payload.Lookup.
	Form     string
	Identity types.Identity
	Fields   map[string]string

	Attachments []Attachment

	// Now is used for date fields left empty. Zero means the current time.
	Now time.Time
}

// Ack is a successful submission.
type Ack struct {
	SubmissionID string
	Status       int

	// Message is the counterpart's "message" field, "" when absent.
	Message string

	// Body is the opened reply.
	Body any
}

type options struct {
	observer   Observer
	metrics    metrics.SubmissionMetrics
	httpClient *http.Client
}

type Option func(*options)

// WithObserver reports every state transition to o.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// WithMetrics records submissions into m.
func WithMetrics(m metrics.SubmissionMetrics) Option {
	return func(opts *options) {
		opts.metrics = m
	}
}

// WithHTTPClient sends requests through c.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *options) {
		opts.httpClient = c
	}
}

// Client submits forms to one collection service.
type Client struct {
	codec     *envelope.Codec
	transport *transport.Client
	mediaOpts media.Options
	encoding  media.Encoding
	observer  Observer
	metrics   metrics.SubmissionMetrics
}

// New validates cfg and builds a Client.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	o := options{metrics: metrics.Noop()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	codec, err := envelope.NewCodec(cfg.Keys())
	if err != nil {
		return nil, err
	}

	tc, err := transport.New(ctx, transport.Config{
		BaseURL:          cfg.APIBaseURL,
		Timeout:          cfg.RequestTimeout,
		MaxResponseBytes: cfg.MaxResponseBytes,
		UserAgent:        cfg.UserAgent,
		HTTPClient:       o.httpClient,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		codec:     codec,
		transport: tc,
		mediaOpts: cfg.MediaOptions(),
		encoding:  cfg.Encoding(),
		observer:  o.observer,
		metrics:   o.metrics,
	}, nil
}

// Codec returns the envelope codec the client seals with.
func (c *Client) Codec() *envelope.Codec {
	return c.codec
}

// Submit runs sub through the pipeline. Any failure is a *failure.Error. No
// request is sent unless validation and media encoding both succeed, and a
// failed send is not retried.
func (c *Client) Submit(ctx context.Context, sub Submission) (*Ack, error) {
	r := &run{client: c, id: uuid.NewString(), form: sub.Form, entered: time.Now()}
	ctx = log.WithLogField(ctx, "submission", r.id)

	spec, err := payload.Lookup(sub.Form)
	if err != nil {
		return nil, r.fail(ctx, failure.Internal("cannot submit", err))
	}
	r.form = spec.Name
	ctx = log.WithLogField(ctx, "form", spec.Name)
	ctx = log.WithLogField(ctx, "key", c.codec.Fingerprint())

	ack, err := c.submit(ctx, r, spec, sub)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.enter(ctx, Success, nil)
	c.metrics.IncSubmission(r.form, Success.String())
	log.L(ctx).Infof("Submission accepted [%d]", ack.Status)
	return ack, nil
}

func (c *Client) submit(ctx context.Context, r *run, spec *payload.Spec, sub Submission) (*Ack, error) {
	if err := r.advance(ctx, Validating); err != nil {
		return nil, err
	}
	in := &payload.Input{Identity: sub.Identity, Fields: sub.Fields, Now: sub.Now}
	attachments, err := c.validate(spec, in, sub.Attachments)
	if err != nil {
		return nil, err
	}

	if err := r.advance(ctx, EncodingMedia); err != nil {
		return nil, err
	}
	if in.Media, err = c.encodeMedia(ctx, r.form, attachments); err != nil {
		return nil, err
	}

	if err := r.advance(ctx, Sealing); err != nil {
		return nil, err
	}
	env, err := c.codec.Seal(spec.Assemble(in))
	if err != nil {
		return nil, failure.Internal("failed to seal payload", err)
	}

	if err := r.advance(ctx, Sending); err != nil {
		return nil, err
	}
	reply, err := c.transport.Send(ctx, spec.Endpoint, env, r.id)
	if err != nil {
		return nil, err
	}

	r.enter(ctx, AwaitingResponse, nil)
	body, err := reply.ReadBody(ctx)
	if err != nil {
		return nil, err
	}
	if !reply.OK() {
		return nil, c.serverError(ctx, reply.StatusCode(), body)
	}

	r.enter(ctx, Opening, nil)
	opened, err := c.codec.OpenBody(body)
	if err != nil {
		return nil, failure.ResponseDecode(err)
	}
	return &Ack{
		SubmissionID: r.id,
		Status:       reply.StatusCode(),
		Message:      envelope.StringField(opened, "message"),
		Body:         opened,
	}, nil
}

// validate checks the form state and returns the non-empty attachments.
func (c *Client) validate(spec *payload.Spec, in *payload.Input, attachments []Attachment) ([]Attachment, error) {
	counts := make(map[string]int, len(spec.Media))
	kept := make([]Attachment, 0, len(attachments))
	for _, a := range attachments {
		slot, ok := spec.Slot(a.Field)
		if !ok {
			return nil, failure.Internal(a.Field, ErrUnknownMediaField)
		}
		switch {
		case a.Image == nil && a.Signature == nil:
			return nil, failure.Internal(a.Field, ErrEmptyAttachment)
		case a.Image != nil && a.Signature != nil, slot.Signature != (a.Signature != nil):
			return nil, failure.Internal(a.Field, ErrAttachmentKind)
		}
		if a.empty() {
			continue
		}
		counts[a.Field]++
		kept = append(kept, a)
	}
	if err := spec.Validate(in, counts); err != nil {
		return nil, err
	}
	return kept, nil
}

// encodeMedia encodes all attachments concurrently. The first failure cancels
// the rest. Results keep attachment order within each field.
func (c *Client) encodeMedia(ctx context.Context, form string, attachments []Attachment) (map[string][]string, error) {
	encoded := make([]media.EncodedMedia, len(attachments))
	if len(attachments) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(len(attachments))
		for i, a := range attachments {
			g.Go(func() error {
				img, err := c.encodeAttachment(gctx, a)
				if err != nil {
					return err
				}
				c.metrics.AddMediaBytes(form, img.Size())
				encoded[i], err = media.ToBase64(gctx, img, c.encoding)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := make(map[string][]string)
	for i, a := range attachments {
		out[a.Field] = append(out[a.Field], string(encoded[i]))
	}
	return out, nil
}

func (c *Client) encodeAttachment(ctx context.Context, a Attachment) (*media.NormalizedImage, error) {
	var img *media.NormalizedImage
	var err error
	if a.Signature != nil {
		img, err = media.EncodeSignature(ctx, a.Signature)
	} else {
		if err := media.CheckInputSize(*a.Image); err != nil {
			return nil, err
		}
		img, err = media.Normalize(ctx, *a.Image, c.mediaOpts)
	}
	if err != nil {
		return nil, err
	}
	if err := media.CheckOutputSize(img); err != nil {
		return nil, err
	}
	log.L(ctx).Debugf("Encoded %s for %s: %dx%d, %d bytes (reencoded=%t)", img.Name, a.Field, img.Width, img.Height, img.Size(), img.Reencoded)
	return img, nil
}

// serverError builds a Server failure, carrying the counterpart's "error"
// text when the body holds a readable envelope.
func (c *Client) serverError(ctx context.Context, status int, body []byte) error {
	var remote string
	if opened, err := c.codec.OpenBody(body); err == nil {
		remote = envelope.StringField(opened, "error")
	} else {
		log.L(ctx).Debugf("Error reply carries no readable envelope: %s", err)
	}
	return failure.Server(status, remote)
}

func (r *run) fail(ctx context.Context, err error) error {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		fe = failure.Internal("submission failed", err)
		err = fe
	}
	r.enter(ctx, Failed, err)
	r.client.metrics.IncSubmission(r.form, string(fe.Kind))
	log.L(ctx).Warnf("Submission failed: %s", err)
	return err
}
