package cmd

import (
	stderrors "errors"
	"fmt"
	"strings"

	"pastemd/pkg/errors"
	"pastemd/pkg/pipeline"
	"pastemd/pkg/placement"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	placeTarget string
	placeDryRun bool
)

// reportedError carries a failure the notifier already showed; Execute only
// turns it into an exit code.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// planReport is the printable form of a pipeline plan.
type planReport struct {
	ContentType string   `json:"content_type" yaml:"content_type"`
	Files       []string `json:"files,omitempty" yaml:"files,omitempty"`
	TableRows   int      `json:"table_rows,omitempty" yaml:"table_rows,omitempty"`
	Target      string   `json:"target" yaml:"target"`
	Method      string   `json:"method,omitempty" yaml:"method,omitempty"`
	Payload     string   `json:"payload,omitempty" yaml:"payload,omitempty"`
	Cleanup     bool     `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	NoAppAction string   `json:"no_app_action,omitempty" yaml:"no_app_action,omitempty"`
	Problem     string   `json:"problem,omitempty" yaml:"problem,omitempty"`
}

func newPlanReport(plan pipeline.Plan, err error) planReport {
	r := planReport{
		ContentType: plan.Detection.Type.String(),
		Files:       plan.Detection.Files,
		TableRows:   plan.Detection.Table.Rows(),
		Target:      string(plan.Target),
		NoAppAction: plan.NoAppAction,
	}
	if r.Target == "" {
		r.Target = "none"
	}
	if plan.Strategy.Method != placement.MethodNone {
		r.Method = plan.Strategy.Method.String()
		r.Payload = plan.Strategy.Payload.String()
		r.Cleanup = plan.Strategy.Cleanup
	}
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			r.Problem = e.Message
		} else {
			r.Problem = err.Error()
		}
	}
	return r
}

func (r planReport) details() map[string]string {
	d := map[string]string{
		"content": r.ContentType,
		"target":  r.Target,
	}
	if len(r.Files) > 0 {
		d["files"] = strings.Join(r.Files, ", ")
	}
	if r.TableRows > 0 {
		d["table rows"] = fmt.Sprint(r.TableRows)
	}
	if r.Method != "" {
		d["method"] = r.Method
		d["payload"] = r.Payload
	}
	if r.Cleanup {
		d["cleanup"] = "stop background processes before the last retry"
	}
	if r.NoAppAction != "" {
		d["no-app action"] = r.NoAppAction
	}
	return d
}

func printPlanTable(r planReport) {
	bold := color.New(color.Bold)
	fmt.Printf("%-10s ", "Content:")
	_, _ = bold.Println(r.ContentType)
	if len(r.Files) > 0 {
		fmt.Printf("%-10s %s\n", "Files:", strings.Join(r.Files, ", "))
	}
	if r.TableRows > 0 {
		fmt.Printf("%-10s %d rows\n", "Table:", r.TableRows)
	}
	fmt.Printf("%-10s %s\n", "Target:", r.Target)
	if r.Method != "" {
		fmt.Printf("%-10s %s (%s)\n", "Method:", r.Method, r.Payload)
	}
	if r.NoAppAction != "" {
		fmt.Printf("%-10s %s\n", "No app:", r.NoAppAction)
	}
	if r.Problem != "" {
		fmt.Printf("%-10s ", "Problem:")
		_, _ = color.New(color.FgRed).Println(r.Problem)
	}
}

var placeCmd = NewCommand(
	"place",
	"Place the clipboard content into the focused application",
	`Detect what the clipboard holds, convert it and place it into the target
application. The target is the focused application unless --target or the
"target" setting names one. Exactly one notification is shown per run.`,
).WithExample(`  # What a hotkey should run
  pastemd place

  # Force a target
  pastemd place --target wps

  # Show what would happen without converting or pasting
  pastemd place --dry-run`).
	WithPipeline(func(cmd *cobra.Command, p *pipeline.Pipeline) error {
		ctx, cancel := GetContext()
		defer cancel()

		p.Target = placeTarget
		if placeDryRun {
			plan, err := p.Plan(ctx)
			PrintDryRunAction("place the clipboard", newPlanReport(plan, err).details())
			return err
		}

		out := p.Run(ctx)
		if out.Err != nil {
			return &reportedError{err: out.Err}
		}
		return nil
	}).Build()

var detectCmd = NewCommand(
	"detect",
	"Show the clipboard content type and the placement that would be used",
	`Inspect the clipboard and the focused application without changing either.`,
).WithPipeline(func(cmd *cobra.Command, p *pipeline.Pipeline) error {
	ctx, cancel := GetContext()
	defer cancel()

	p.Target = placeTarget
	plan, err := p.Plan(ctx)
	report := newPlanReport(plan, err)

	w := NewOutputWriter(outputFormat)
	if w.IsStructured() {
		return w.Write(report)
	}
	printPlanTable(report)
	return nil
}).Build()

func init() {
	placeCmd.Flags().StringVarP(&placeTarget, "target", "t", "", "Target application (auto, word, wps, excel, wps_excel, onenote, powerpoint, md, rich, file, none)")
	placeCmd.Flags().BoolVar(&placeDryRun, "dry-run", false, "Show the plan without converting or pasting")
	detectCmd.Flags().StringVarP(&placeTarget, "target", "t", "", "Assume this target instead of the focused application")
}
