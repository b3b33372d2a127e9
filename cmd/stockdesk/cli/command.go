// Package cli implements the operator subcommands of the stockdesk binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// JobsOptions configures one `stockdesk jobs ...` invocation.
type JobsOptions struct {
	Args       []string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// JobsCommand runs `jobs trigger <task>` or `jobs stats` and returns the exit code.
func (c *JobsCLI) JobsCommand(ctx context.Context, opts JobsOptions) int {
	if len(opts.Args) == 0 {
		fmt.Fprintln(opts.Stderr, "usage: stockdesk jobs trigger <task> | stockdesk jobs stats")
		return 2
	}
	switch opts.Args[0] {
	case "trigger":
		if len(opts.Args) != 2 {
			fmt.Fprintln(opts.Stderr, "usage: stockdesk jobs trigger <task>")
			return 2
		}
		info, err := c.Trigger(ctx, opts.Args[1])
		if err != nil {
			fmt.Fprintf(opts.Stderr, "trigger failed: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			return writeJSON(opts, map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
		}
		fmt.Fprintf(opts.Stdout, "enqueued %s on %s (%s)\n", info.Type, info.Queue, info.ID)
		return 0
	case "stats":
		stats, err := c.InspectQueues(ctx)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "inspect failed: %v\n", err)
			return 1
		}
		if opts.JSONOutput {
			return writeJSON(opts, stats)
		}
		tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY")
		for _, s := range stats {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry)
		}
		if err := tw.Flush(); err != nil {
			return 1
		}
		return 0
	default:
		fmt.Fprintf(opts.Stderr, "unknown jobs command %q\n", opts.Args[0])
		return 2
	}
}

func writeJSON(opts JobsOptions, v any) int {
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(opts.Stderr, "encode output: %v\n", err)
		return 1
	}
	return 0
}
