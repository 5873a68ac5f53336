package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/doublegit-go/internal/ledger"
	"github.com/thiagokokada/doublegit-go/internal/render"
)

type diffRunner struct {
	ctx     context.Context
	Command *cobra.Command

	from  string
	to    string
	color string
}

func newDiffRunner(ctx context.Context) *diffRunner {
	r := &diffRunner{ctx: ctx}
	c := &cobra.Command{
		Use:   "diff REPO --from TIME [--to TIME]",
		Short: "Compare the refs of a mirror at two instants",
		Example: `  doublegit diff /srv/mirrors/doublegit --from "2019-03-16 17:01:00" --to "2019-03-16 17:06:00"
  doublegit diff /srv/mirrors/doublegit --from 2019-03-01`,
		Args: cobra.ExactArgs(1),
		RunE: r.runE,
	}
	c.Flags().StringVar(&r.from, "from", "", "start instant (required)")
	c.Flags().StringVar(&r.to, "to", "", "end instant (default now)")
	c.Flags().StringVar(&r.color, "color", render.ColorAuto.String(), "color mode: auto, always or never")
	_ = c.MarkFlagRequired("from")
	r.Command = c
	return r
}

func (r *diffRunner) runE(cmd *cobra.Command, args []string) error {
	mode, err := render.ParseColorMode(r.color)
	if err != nil {
		return err
	}
	from, err := parseInstant(r.from)
	if err != nil {
		return err
	}
	to := time.Now().UTC()
	if r.to != "" {
		if to, err = parseInstant(r.to); err != nil {
			return err
		}
	}
	if to.Before(from) {
		return errors.New("--to is before --from")
	}

	l, err := openExistingLedger(r.ctx, args[0])
	if err != nil {
		return err
	}
	defer l.Close()
	before, err := l.StateAt(r.ctx, from)
	if err != nil {
		return err
	}
	after, err := l.StateAt(r.ctx, to)
	if err != nil {
		return err
	}
	diff, err := render.UnifiedStateDiff(before, after, from.Format(ledger.TimeLayout), to.Format(ledger.TimeLayout))
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "no changes")
		return nil
	}
	return render.WriteDiff(cmd.OutOrStdout(), diff, mode)
}
