package cmd

import (
	"fmt"
	"os"
	"runtime"

	"pastemd/pkg/automation"
	"pastemd/pkg/clipboard"
	"pastemd/pkg/config"
	"pastemd/pkg/convert"
	"pastemd/pkg/history"
	"pastemd/pkg/logger"
	"pastemd/pkg/notify"
	"pastemd/pkg/pipeline"
	"pastemd/pkg/proc"

	"github.com/spf13/cobra"
)

type CommandBuilder struct {
	cmd *cobra.Command
}

func NewCommand(name, short, long string) *CommandBuilder {
	return &CommandBuilder{
		cmd: &cobra.Command{
			Use:     name,
			Short:   short,
			Long:    long,
			Example: "",
		},
	}
}

func (b *CommandBuilder) WithExample(example string) *CommandBuilder {
	b.cmd.Example = example
	return b
}

// WithConfig loads and validates the configuration before calling fn.
func (b *CommandBuilder) WithConfig(fn func(cmd *cobra.Command, cfg *config.Config) error) *CommandBuilder {
	b.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return fn(cmd, cfg)
	}
	return b
}

// WithPipeline wires a pipeline against the system clipboard and the real
// automation drivers.
func (b *CommandBuilder) WithPipeline(fn func(cmd *cobra.Command, p *pipeline.Pipeline) error) *CommandBuilder {
	return b.WithConfig(func(cmd *cobra.Command, cfg *config.Config) error {
		p, closeFn := newPipeline(cfg)
		defer closeFn()
		return fn(cmd, p)
	})
}

func (b *CommandBuilder) WithHistory(fn func(cmd *cobra.Command, store *history.Store) error) *CommandBuilder {
	return b.WithConfig(func(cmd *cobra.Command, cfg *config.Config) error {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
		return fn(cmd, store)
	})
}

func (b *CommandBuilder) WithArgsValidation(maxArgs int) *CommandBuilder {
	b.cmd.Args = func(cmd *cobra.Command, args []string) error {
		if len(args) > maxArgs {
			return fmt.Errorf("accepts at most %d argument(s)", maxArgs)
		}
		return nil
	}
	return b
}

func (b *CommandBuilder) Build() *cobra.Command {
	return b.cmd
}

// newPipeline builds the production pipeline. History is optional: when the
// store cannot be opened the run goes ahead unrecorded.
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, func()) {
	log := logger.Component("cmd")
	runner := proc.Exec{}
	driver := automation.New(runner, cfg.ScriptTimeout.Std())

	p := &pipeline.Pipeline{
		Config:     cfg,
		Clipboard:  clipboard.NewSystem(runner),
		Converter:  convert.NewPandoc(cfg.PandocPath, cfg.ConvertTimeout.Std()),
		Automation: driver,
		Focus:      driver,
		Notifier: notify.Multi{
			notify.Console{Out: os.Stderr},
			notify.Desktop{Runner: runner, GOOS: runtime.GOOS},
		},
		Runner: runner,
		GOOS:   runtime.GOOS,
	}

	closeFn := func() {}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			log.Warn().Err(err).Msg("history disabled for this run")
		} else {
			p.History = store
			closeFn = func() { store.Close() }
		}
	}
	return p, closeFn
}
