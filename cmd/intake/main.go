package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"

	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/config"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/envelope"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/failure"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/log"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/media"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/messages"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/metrics"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/payload"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/submit"
	"github.com/K1rthik/campus-survey-form-v1-fe/pkg/types"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "forms":
		return cmdForms(args[1:], out, errOut)
	case "prefill":
		return cmdPrefill(args[1:], out, errOut)
	case "seal":
		return cmdSeal(args[1:], in, out, errOut)
	case "open":
		return cmdOpen(args[1:], in, out, errOut)
	case "normalize":
		return cmdNormalize(args[1:], out, errOut)
	case "submit":
		return cmdSubmit(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "intake: campus feedback submission client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  intake forms")
	fmt.Fprintln(w, "  intake prefill --form <name> --identity <identity.json>")
	fmt.Fprintln(w, "  intake seal [<file.json>]")
	fmt.Fprintln(w, "  intake open [<envelope>]")
	fmt.Fprintln(w, "  intake normalize --in <image> --out <file.jpg> [--max-width <px>] [--quality <0..1>]")
	fmt.Fprintln(w, "  intake submit --form <name> --fields <fields.json> [--identity <identity.json>] [--image <field>=<path> ...] [--signature <field>=<strokes.json>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - seal reads JSON from stdin when no file is given; open reads the envelope from stdin")
	fmt.Fprintln(w, "  - submit reads INTAKE_API_BASE_URL and the other INTAKE_* variables")
	fmt.Fprintln(w, "  - envelope keys come from INTAKE_ENVELOPE_KEY and INTAKE_ENVELOPE_IV")
}

func cmdForms(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("forms", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, s := range payload.Forms() {
		slots := make([]string, 0, len(s.Media))
		for _, m := range s.Media {
			desc := m.Key
			if m.Signature {
				desc += "(signature)"
			}
			if m.Required {
				desc += "*"
			}
			slots = append(slots, desc)
		}
		fmt.Fprintf(out, "%-10s %-18s %-26s %s\n", s.Name, s.Type, s.Endpoint, strings.Join(slots, " "))
	}
	return 0
}

func cmdPrefill(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("prefill", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var form, identityPath string
	fs.StringVar(&form, "form", "", "Form name")
	fs.StringVar(&identityPath, "identity", "", "Identity JSON file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if form == "" || identityPath == "" {
		fmt.Fprintln(errOut, "usage: intake prefill --form <name> --identity <identity.json>")
		return 2
	}
	spec, err := payload.Lookup(form)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}
	var id types.Identity
	if err := readJSON(identityPath, &id); err != nil {
		fmt.Fprintf(errOut, "read --identity: %v\n", err)
		return 1
	}
	if err := id.Validate(); err != nil {
		printFailure(errOut, err)
		return 1
	}
	return writeJSON(out, errOut, payload.Prefill(spec, id))
}

func cmdSeal(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	codec, code := newCodec(errOut)
	if codec == nil {
		return code
	}

	var raw []byte
	var err error
	switch fs.NArg() {
	case 0:
		raw, err = io.ReadAll(in)
	case 1:
		raw, err = os.ReadFile(fs.Arg(0))
	default:
		fmt.Fprintln(errOut, "usage: intake seal [<file.json>]")
		return 2
	}
	if err != nil {
		fmt.Fprintf(errOut, "read input: %v\n", err)
		return 1
	}

	env, err := codec.SealJSON(bytes.TrimSpace(raw))
	if err != nil {
		fmt.Fprintf(errOut, "seal: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, env)
	return 0
}

func cmdOpen(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	codec, code := newCodec(errOut)
	if codec == nil {
		return code
	}

	var env string
	switch fs.NArg() {
	case 0:
		raw, err := io.ReadAll(in)
		if err != nil {
			fmt.Fprintf(errOut, "read input: %v\n", err)
			return 1
		}
		env = string(raw)
	case 1:
		env = fs.Arg(0)
	default:
		fmt.Fprintln(errOut, "usage: intake open [<envelope>]")
		return 2
	}

	env = strings.TrimSpace(env)
	if !envelope.HasVersionTag(env) {
		// Accept a whole {"envelope": ...} body as well.
		if inner, err := envelope.FromBody([]byte(env)); err == nil {
			env = inner
		}
	}
	v, err := codec.Open(env)
	if err != nil {
		fmt.Fprintf(errOut, "open: %v\n", err)
		return 1
	}
	return writeJSON(out, errOut, v)
}

func cmdNormalize(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(errOut)
	opts := media.DefaultOptions()
	var inPath, outPath string
	fs.StringVar(&inPath, "in", "", "Input image")
	fs.StringVar(&outPath, "out", "", "Output JPEG")
	fs.IntVar(&opts.MaxWidth, "max-width", opts.MaxWidth, "Maximum width in pixels")
	fs.Float64Var(&opts.Quality, "quality", opts.Quality, "JPEG quality in (0, 1]")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inPath == "" || outPath == "" {
		fmt.Fprintln(errOut, "usage: intake normalize --in <image> --out <file.jpg> [--max-width <px>] [--quality <0..1>]")
		return 2
	}

	raw, err := readImage(inPath)
	if err != nil {
		fmt.Fprintf(errOut, "read --in: %v\n", err)
		return 1
	}
	if err := media.CheckInputSize(raw); err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}
	img, err := media.Normalize(context.Background(), raw, opts)
	if err != nil {
		fmt.Fprintf(errOut, "normalize: %v\n", err)
		return 1
	}
	if err := os.WriteFile(outPath, img.Data, 0o644); err != nil {
		fmt.Fprintf(errOut, "write --out: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s: %dx%d, %d bytes, reencoded=%t\n", img.Name, img.Width, img.Height, img.Size(), img.Reencoded)
	return 0
}

// fieldPaths collects repeated <field>=<path> flags.
type fieldPaths []string

func (f *fieldPaths) String() string { return strings.Join(*f, ",") }

func (f *fieldPaths) Set(v string) error {
	if field, path, ok := strings.Cut(v, "="); !ok || field == "" || path == "" {
		return fmt.Errorf("expected <field>=<path>, got %q", v)
	}
	*f = append(*f, v)
	return nil
}

func cmdSubmit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var form, fieldsPath, identityPath, baseURL string
	var images, signatures fieldPaths
	fs.StringVar(&form, "form", "", "Form name")
	fs.StringVar(&fieldsPath, "fields", "", "Form state JSON file (string values)")
	fs.StringVar(&identityPath, "identity", "", "Identity JSON file")
	fs.StringVar(&baseURL, "base-url", "", "Overrides INTAKE_API_BASE_URL")
	fs.Var(&images, "image", "Image attachment <field>=<path> (repeatable)")
	fs.Var(&signatures, "signature", "Signature strokes <field>=<strokes.json>")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if form == "" || fieldsPath == "" {
		fmt.Fprintln(errOut, "usage: intake submit --form <name> --fields <fields.json> [--identity <identity.json>] [--image <field>=<path> ...] [--signature <field>=<strokes.json>]")
		return 2
	}

	if baseURL != "" {
		if err := os.Setenv(config.Prefix+"API_BASE_URL", baseURL); err != nil {
			fmt.Fprintf(errOut, "%v\n", err)
			return 1
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}
	log.InitConfig(cfg.Log)

	sub := submit.Submission{Form: form}
	if err := readJSON(fieldsPath, &sub.Fields); err != nil {
		fmt.Fprintf(errOut, "read --fields: %v\n", err)
		return 1
	}
	if identityPath != "" {
		if err := readJSON(identityPath, &sub.Identity); err != nil {
			fmt.Fprintf(errOut, "read --identity: %v\n", err)
			return 1
		}
		if err := sub.Identity.Validate(); err != nil {
			printFailure(errOut, err)
			return 1
		}
	}
	for _, v := range images {
		field, path, _ := strings.Cut(v, "=")
		raw, err := readImage(path)
		if err != nil {
			fmt.Fprintf(errOut, "read --image: %v\n", err)
			return 1
		}
		sub.Attachments = append(sub.Attachments, submit.Attachment{Field: field, Image: &raw})
	}
	for _, v := range signatures {
		field, path, _ := strings.Cut(v, "=")
		var sig media.Signature
		if err := readJSON(path, &sig); err != nil {
			fmt.Fprintf(errOut, "read --signature: %v\n", err)
			return 1
		}
		sub.Attachments = append(sub.Attachments, submit.Attachment{Field: field, Signature: &sig})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := submit.New(ctx, cfg,
		submit.WithMetrics(metrics.InitMetrics(ctx, prometheus.NewRegistry())),
		submit.WithObserver(logTransition),
	)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}

	ack, err := client.Submit(ctx, sub)
	if err != nil {
		printFailure(errOut, err)
		log.L(ctx).Debugf("submit: %v", err)
		return 1
	}
	msg := ack.Message
	if msg == "" {
		msg = messages.For(nil, language.English)
	}
	fmt.Fprintf(out, "%s (%s)\n", msg, ack.SubmissionID)
	return 0
}

// logTransition reports the final state at info level and intermediate ones
// at debug level.
func logTransition(ctx context.Context, t submit.Transition) {
	if t.To.Terminal() {
		log.L(ctx).Infof("submission %s finished: %s", t.SubmissionID, t.To)
		return
	}
	log.L(ctx).Debugf("%s %s -> %s", t.SubmissionID, t.From, t.To)
}

func newCodec(errOut io.Writer) (*envelope.Codec, int) {
	keys, err := config.LoadKeys()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return nil, 1
	}
	codec, err := envelope.NewCodec(keys)
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return nil, 1
	}
	return codec, 0
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func readImage(path string) (media.RawImage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return media.RawImage{}, err
	}
	return media.RawImage{Name: filepath.Base(path), Data: b}, nil
}

func writeJSON(out io.Writer, errOut io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(errOut, "write output: %v\n", err)
		return 1
	}
	return 0
}

// printFailure writes the user-facing message for err followed by one line
// per violation.
func printFailure(errOut io.Writer, err error) {
	fmt.Fprintln(errOut, messages.For(err, language.English))
	for _, v := range violations(err) {
		fmt.Fprintf(errOut, "  - %s\n", v)
	}
}

func violations(err error) []string {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		return nil
	}
	out := make([]string, len(fe.Violations))
	for i, v := range fe.Violations {
		out[i] = v.Field + ": " + v.Message
	}
	return out
}
