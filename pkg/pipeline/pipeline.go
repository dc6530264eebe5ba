// Package pipeline runs one paste: detect the clipboard content, pick the
// target, convert, place, then notify and record the outcome exactly once.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"pastemd/pkg/automation"
	"pastemd/pkg/clipboard"
	"pastemd/pkg/config"
	"pastemd/pkg/convert"
	"pastemd/pkg/detect"
	"pastemd/pkg/errors"
	"pastemd/pkg/history"
	"pastemd/pkg/htmlutil"
	"pastemd/pkg/logger"
	"pastemd/pkg/notify"
	"pastemd/pkg/output"
	"pastemd/pkg/placement"
	"pastemd/pkg/proc"
	"pastemd/pkg/sheet"
	"pastemd/pkg/table"
)

// Focus reports the application that has keyboard focus.
type Focus interface {
	FocusedApp(ctx context.Context) automation.App
}

// Recorder stores outcomes; *history.Store implements it.
type Recorder interface {
	Record(e history.Entry) (history.Entry, error)
}

var _ Recorder = (*history.Store)(nil)

type Pipeline struct {
	Config     *config.Config
	Clipboard  clipboard.Backend
	Converter  convert.Converter
	Automation placement.Automation
	Focus      Focus
	Notifier   notify.Notifier
	// History may be nil to skip recording.
	History Recorder
	// Runner opens saved documents.
	Runner proc.Runner
	GOOS   string
	// Target overrides Config.Target when set.
	Target string

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

// Plan is what a run would do, decided before anything is converted.
type Plan struct {
	Detection detect.Result
	Target    placement.Target
	// Strategy is set when Target is not TargetNone.
	Strategy placement.Strategy
	// NoAppAction is "open" or "save" when there is no target.
	NoAppAction string
}

// Outcome is the single result of a run.
type Outcome struct {
	ContentType detect.ContentType
	Target      placement.Target
	Result      placement.Result
	// Output is the saved document, for open/save runs.
	Output   string
	Err      error
	Duration time.Duration
}

func (o Outcome) Success() bool { return o.Err == nil }

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) goos() string {
	if p.GOOS != "" {
		return p.GOOS
	}
	return runtime.GOOS
}

// Plan detects the content and resolves target and strategy.
func (p *Pipeline) Plan(ctx context.Context) (Plan, error) {
	log := logger.Component("pipeline")

	det, err := detect.New(p.Clipboard).Detect()
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Detection: det}
	if det.Type == detect.Empty || (det.Type == detect.Markdown && strings.TrimSpace(det.Markdown) == "") {
		return plan, errors.ClipboardEmptyError()
	}

	target, err := p.resolveTarget(ctx)
	if err != nil {
		return plan, err
	}
	plan.Target = target
	log.Debug().Str("content", det.Type.String()).Str("target", string(target)).Msg("planned")

	if target == placement.TargetNone {
		switch p.Config.NoAppAction {
		case "open", "save":
			plan.NoAppAction = p.Config.NoAppAction
			return plan, nil
		}
		return plan, errors.UnsupportedError("No supported application has focus")
	}

	plan.Strategy, err = placement.Select(p.goos(), target)
	if err != nil {
		return plan, err
	}
	if plan.Strategy.Payload == placement.PayloadSpreadsheet && det.Type != detect.Table {
		return plan, errors.UnsupportedError(fmt.Sprintf("%s needs a Markdown table on the clipboard", automation.App(target).DisplayName()))
	}
	return plan, nil
}

func (p *Pipeline) resolveTarget(ctx context.Context) (placement.Target, error) {
	name := p.Target
	if name == "" {
		name = p.Config.Target
	}
	if name == "auto" || name == "" {
		if p.Focus == nil {
			return placement.TargetNone, nil
		}
		return placement.Target(p.Focus.FocusedApp(ctx)), nil
	}
	return placement.ParseTarget(name)
}

// Run executes one paste. It notifies exactly once and records the outcome
// when history is enabled.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	log := logger.Component("pipeline")
	start := p.now()

	out := p.run(ctx)
	out.Duration = p.now().Sub(start)

	if out.Err != nil {
		log.Error().Err(out.Err).Str("target", string(out.Target)).Msg("paste failed")
	} else {
		log.Info().Str("target", string(out.Target)).Str("method", out.Result.Method().String()).Dur("took", out.Duration).Msg("paste complete")
	}

	p.notify(ctx, out)
	p.record(out, start)
	return out
}

func (p *Pipeline) run(ctx context.Context) Outcome {
	plan, err := p.Plan(ctx)
	out := Outcome{ContentType: plan.Detection.Type, Target: plan.Target}
	if err != nil {
		out.Err = err
		return out
	}

	if plan.Target == placement.TargetNone {
		path, err := p.saveDocument(ctx, plan)
		out.Output = path
		if err != nil {
			out.Err = err
			return out
		}
		out.Result = placement.Succeeded(placement.MethodNone, map[string]string{"file": path, "action": plan.NoAppAction})
		return out
	}

	payload, err := p.payload(ctx, plan.Strategy.Payload, plan.Detection)
	if err != nil {
		out.Err = err
		return out
	}

	placer := placement.New(plan.Strategy, placement.Deps{
		Automation: p.Automation,
		Clipboard:  p.Clipboard,
		Attempts:   p.Config.InsertRetryCount,
		Delay:      p.Config.InsertRetryDelay.Std(),
		Settle:     p.Config.RestoreDelay.Std(),
		Sleep:      p.Sleep,
	})
	out.Result = placer.Place(ctx, payload, placement.Options{MoveCursorToEnd: p.Config.MoveCursorToEnd})
	if !out.Result.Success() {
		out.Err = out.Result.Err()
		return out
	}
	if plan.Strategy.Payload == placement.PayloadSpreadsheet && p.Config.KeepFile {
		out.Result = p.keepWorkbook(plan.Detection, out.Result)
	}
	return out
}

// keepWorkbook saves the placed table as .xlsx in the save directory. A
// failure is logged and leaves the placement result alone.
func (p *Pipeline) keepWorkbook(det detect.Result, res placement.Result) placement.Result {
	log := logger.Component("pipeline")

	data, err := sheet.Bytes(det.Table, p.Config.ExcelKeepFormatValue())
	if err == nil {
		var path string
		path, err = output.Save(p.Config.SaveDir, p.source(det), "xlsx", data, p.now())
		if err == nil {
			return res.WithMetadata("file", path)
		}
	}
	log.Warn().Err(err).Msg("workbook not kept")
	return res
}

func (p *Pipeline) convertOptions(det detect.Result, format convert.Format) convert.Options {
	opts := convert.Options{
		Format:              format,
		ReferenceDoc:        p.Config.ReferenceDocx,
		KeepOriginalFormula: p.Config.KeepOriginalFormula,
		Filters:             p.Config.PandocFilters,
	}
	if len(det.Files) > 0 {
		opts.WorkDir = filepath.Dir(det.Files[0])
	}
	return opts
}

func (p *Pipeline) cleanHTML(det detect.Result) (string, error) {
	cleaned, err := htmlutil.Clean(htmlutil.ExtractFragment(det.HTML), htmlutil.CleanOptions{
		StrikethroughToDel: p.Config.HTMLFormatting.StrikethroughToDel,
	})
	if err != nil {
		return "", errors.ConversionError(errors.ErrMsgConvertHTML, err)
	}
	return cleaned, nil
}

func (p *Pipeline) source(det detect.Result) output.Source {
	src := output.Source{Markdown: det.Markdown, Table: det.Table}
	if det.Type == detect.HTML {
		src.HTML = det.HTML
	}
	return src
}

// export renders the content as a standalone file: .xlsx for tables,
// .docx for everything else. It returns the data and the extension.
func (p *Pipeline) export(ctx context.Context, det detect.Result) ([]byte, string, error) {
	if det.Type == detect.Table {
		data, err := sheet.Bytes(det.Table, p.Config.ExcelKeepFormatValue())
		return data, "xlsx", err
	}
	data, err := p.document(ctx, det, convert.FormatDocx)
	return data, string(convert.FormatDocx), err
}

// document converts the detected content to format.
func (p *Pipeline) document(ctx context.Context, det detect.Result, format convert.Format) ([]byte, error) {
	opts := p.convertOptions(det, format)
	if det.Type == detect.HTML {
		cleaned, err := p.cleanHTML(det)
		if err != nil {
			return nil, err
		}
		return p.Converter.HTMLToDocument(ctx, cleaned, opts)
	}
	return p.Converter.MarkdownToDocument(ctx, det.Markdown, opts)
}

func (p *Pipeline) payload(ctx context.Context, kind placement.PayloadKind, det detect.Result) (placement.Payload, error) {
	switch kind {
	case placement.PayloadDocument:
		doc, err := p.document(ctx, det, convert.FormatDocx)
		return placement.Payload{Document: doc}, err

	case placement.PayloadRichText:
		if det.Type == detect.HTML {
			cleaned, err := p.cleanHTML(det)
			return placement.Payload{HTML: cleaned, Text: det.Markdown}, err
		}
		html, err := p.document(ctx, det, convert.FormatHTML)
		return placement.Payload{HTML: string(html), Text: det.Markdown}, err

	case placement.PayloadSpreadsheet:
		return placement.Payload{
			HTML: table.ToHTML(det.Table, p.Config.ExcelKeepFormatValue()),
			Text: table.ToDelimitedText(det.Table),
		}, nil

	case placement.PayloadMarkdown:
		if det.Type != detect.HTML {
			return placement.Payload{Text: det.Markdown}, nil
		}
		cleaned, err := p.cleanHTML(det)
		if err != nil {
			return placement.Payload{}, err
		}
		md, err := htmlutil.ToMarkdown(cleaned)
		if err != nil {
			return placement.Payload{}, errors.ConversionError(errors.ErrMsgConvertHTML, err)
		}
		return placement.Payload{Text: md}, nil

	case placement.PayloadFile:
		data, ext, err := p.export(ctx, det)
		if err != nil {
			return placement.Payload{}, err
		}
		dir := ""
		if p.Config.KeepFile {
			dir = p.Config.SaveDir
		}
		path, err := output.Save(dir, p.source(det), ext, data, p.now())
		return placement.Payload{File: path}, err
	}
	return placement.Payload{}, fmt.Errorf("unknown payload kind %v", kind)
}

// saveDocument exports the content and writes it to the save directory
// ("save", or "open" with keep_file) or the temp directory, opening it
// afterwards for "open".
func (p *Pipeline) saveDocument(ctx context.Context, plan Plan) (string, error) {
	det := plan.Detection
	data, ext, err := p.export(ctx, det)
	if err != nil {
		return "", err
	}

	dir := ""
	if plan.NoAppAction == "save" || p.Config.KeepFile {
		dir = p.Config.SaveDir
	}
	path, err := output.Save(dir, p.source(det), ext, data, p.now())
	if err != nil {
		return "", err
	}

	if plan.NoAppAction == "open" {
		runner := p.Runner
		if runner == nil {
			runner = proc.Exec{}
		}
		if err := output.Open(ctx, runner, p.goos(), path); err != nil {
			return path, err
		}
	}
	return path, nil
}

func (p *Pipeline) notify(ctx context.Context, out Outcome) {
	if p.Notifier == nil {
		return
	}
	log := logger.Component("pipeline")

	n := notify.Notification{Success: out.Success()}
	switch {
	case out.Err != nil:
		n.Title = "Paste failed"
		n.Message = out.Err.Error()
	case out.Output != "":
		n.Title = "Document saved"
		n.Message = out.Output
	default:
		n.Title = "Pasted into " + targetName(out.Target)
		n.Message = out.ContentType.String() + " via " + out.Result.Method().String()
	}
	if err := p.Notifier.Notify(ctx, n); err != nil {
		log.Warn().Err(err).Msg("notification not delivered")
	}
}

func targetName(t placement.Target) string {
	switch t {
	case placement.TargetMarkdown:
		return "Markdown editor"
	case placement.TargetRich:
		return "editor"
	case placement.TargetFile:
		return "application as a file"
	}
	return automation.App(t).DisplayName()
}

func (p *Pipeline) record(out Outcome, start time.Time) {
	if p.History == nil {
		return
	}
	log := logger.Component("pipeline")

	md := out.Result.Metadata()
	if md == nil {
		md = map[string]string{}
	}
	if out.Output != "" {
		md["file"] = out.Output
	}
	entry := history.Entry{
		Time:        start,
		ContentType: out.ContentType.String(),
		Target:      string(out.Target),
		Method:      out.Result.Method().String(),
		Success:     out.Success(),
		Duration:    out.Duration,
		Metadata:    md,
	}
	if out.Err != nil {
		entry.Error = out.Err.Error()
	}
	if _, err := p.History.Record(entry); err != nil {
		log.Warn().Err(errors.WrapWithCode(err, errors.ExitCodeGeneral, errors.ErrMsgHistoryFailed)).Msg("outcome not recorded")
	}
}
