package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"ryu-ofctl/internal/engine"
	"ryu-ofctl/internal/model"
	"ryu-ofctl/internal/output"
	"ryu-ofctl/internal/parser"
	"ryu-ofctl/pkg/flow"
	"ryu-ofctl/pkg/ryu"
)

type flowOp func(ctx context.Context, dpid flow.DatapathID, entry *flow.FlowEntry) (*ryu.Response, error)

// runFlowOp sends one flow operation and prints its outcome as a single
// apply result.
func (o *rootOptions) runFlowOp(cmd *cobra.Command, mode model.Mode, dpid flow.DatapathID, entry *flow.FlowEntry, op flowOp) error {
	ctx, cancel := o.context(cmd)
	defer cancel()

	result := model.ApplyResult{Source: "cli", DPID: dpid, Mode: mode}
	resp, err := op(ctx, dpid, entry)
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}
	if err != nil {
		var te *ryu.TransportError
		if errors.As(err, &te) {
			result.StatusCode = te.StatusCode
		}
		result.Err = err
		result.Error = err.Error()
	}
	if printErr := o.print(cmd, result, output.ApplyResults([]model.ApplyResult{result})); printErr != nil {
		return printErr
	}
	return err
}

func newAddFlowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-flow DPID FLOW",
		Short: "Add a flow entry to a switch",
		Example: `  ryu-ofctl add-flow 1 "in_port=1,actions=output:2"
  ryu-ofctl add-flow 0x2a "priority=100,tcp,nw_dst=10.0.0.1,tp_dst=80,actions=output:3"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dpid, err := parser.ParseDPID(args[0])
			if err != nil {
				return err
			}
			entry, err := parser.ParseFlowSpec(args[1])
			if err != nil {
				return err
			}
			return opts.runFlowOp(cmd, model.ModeAdd, dpid, entry, opts.client.InsertFlow)
		},
	}
}

func newDelFlowsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "del-flows DPID [FLOW]",
		Short: "Delete the flow entries of a switch that match FLOW, or all of them",
		Example: `  ryu-ofctl del-flows 1 "in_port=1"
  ryu-ofctl del-flows 1 "out_port=2"
  ryu-ofctl del-flows 1`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dpid, err := parser.ParseDPID(args[0])
			if err != nil {
				return err
			}
			entry := flow.NewFlowEntry()
			if len(args) == 2 {
				if entry, err = parser.ParseFlowSpec(args[1]); err != nil {
					return err
				}
			}
			return opts.runFlowOp(cmd, model.ModeDelete, dpid, entry, opts.client.DeleteFlow)
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear DPID",
		Short: "Delete every flow entry of a switch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dpid, err := parser.ParseDPID(args[0])
			if err != nil {
				return err
			}
			return opts.runFlowOp(cmd, model.ModeDelete, dpid, nil,
				func(ctx context.Context, dpid flow.DatapathID, _ *flow.FlowEntry) (*ryu.Response, error) {
					return opts.client.DeleteAllFlows(ctx, dpid)
				})
		},
	}
}

func newSwitchesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switches",
		Short: "List the switches connected to the controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			dpids, err := opts.client.ListSwitches(ctx)
			if err != nil {
				return err
			}
			return opts.print(cmd, dpids, output.Switches(dpids))
		},
	}
}

func newLinksCmd(opts *rootOptions) *cobra.Command {
	var dpidArg string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List the links between switches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			var (
				links []flow.Link
				err   error
			)
			if dpidArg != "" {
				dpid, perr := parser.ParseDPID(dpidArg)
				if perr != nil {
					return perr
				}
				links, err = opts.client.ListSwitchLinks(ctx, dpid)
			} else {
				links, err = opts.client.ListLinks(ctx)
			}
			if err != nil {
				return err
			}
			return opts.print(cmd, links, output.Links(links))
		},
	}
	cmd.Flags().StringVar(&dpidArg, "dpid", "", "Only list the links of this switch")
	return cmd
}

func newMacCmd(opts *rootOptions) *cobra.Command {
	var (
		hostsFile string
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "mac [MAC]",
		Short: "Find the switch port where a host was last seen",
		Example: `  ryu-ofctl mac 00:11:22:33:44:55
  ryu-ofctl mac --file hosts.csv -w 8`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (hostsFile != "") {
				return fmt.Errorf("exactly one of MAC or --file must be given")
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			macs := args
			if hostsFile != "" {
				f, err := os.Open(hostsFile)
				if err != nil {
					return err
				}
				defer f.Close()
				if macs, err = parser.ParseMACList(f); err != nil {
					return fmt.Errorf("error parsing host file: %w", err)
				}
				slog.Info("Host file parsed", "path", hostsFile, "macs", len(macs))
			} else {
				// A single lookup reports a malformed MAC as an error.
				loc, err := opts.client.GetMacIngressPort(ctx, args[0])
				if err != nil && !errors.Is(err, ryu.ErrHostNotFound) {
					return err
				}
				result := model.LookupResult{MAC: args[0], Found: err == nil, Location: loc}
				if loc != nil {
					result.MAC = loc.MAC
				}
				results := []model.LookupResult{result}
				return opts.print(cmd, results, output.Hosts(results))
			}

			results := engine.LookupHosts(ctx, opts.client, macs, workers)
			return opts.print(cmd, results, output.Hosts(results))
		},
	}
	cmd.Flags().StringVar(&hostsFile, "file", "", "CSV file with a MAC column to look up in bulk")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of concurrent lookups")
	return cmd
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		provider   string
		rulesFile  string
		rulesDB    string
		dpidFilter string
		mode       string
		clearFirst bool
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Add or delete a whole rule set",
		Long: `apply loads flow rules from a rules file ("<dpid> <flow>" per line) or from
the cfg_flow table of a MariaDB database and sends them to the controller.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dpid *flow.DatapathID
			if dpidFilter != "" {
				d, err := parser.ParseDPID(dpidFilter)
				if err != nil {
					return err
				}
				dpid = &d
			}
			if !cmd.Flags().Changed("workers") && opts.cfg.Workers > 0 {
				workers = opts.cfg.Workers
			}

			slog.Info("Loading rules...", "provider", provider)
			rules, err := loadRules(provider, rulesFile, rulesDB, dpid)
			if err != nil {
				slog.Error("Failed to load rules", "error", err)
				return err
			}
			slog.Info("Successfully loaded rules", "count", len(rules))

			applier, err := engine.NewApplier(opts.client, model.Mode(mode), workers)
			if err != nil {
				return err
			}
			applier.ClearFirst = clearFirst

			ctx, cancel := opts.context(cmd)
			defer cancel()
			startTime := time.Now()
			results, err := applier.Apply(ctx, rules)
			if err != nil {
				slog.Error("Apply aborted", "error", err)
				return err
			}
			succeeded, failed := engine.Summarize(results)
			slog.Info("Apply complete", "succeeded", succeeded, "failed", failed, "duration", time.Since(startTime))

			if err := opts.print(cmd, results, output.ApplyResults(results)); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d rules failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "file", "Rule provider type: 'file' or 'mariadb'")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "Rules file (for 'file' provider)")
	cmd.Flags().StringVar(&rulesDB, "db", "", "Database connection string (for 'mariadb' provider)")
	cmd.Flags().StringVar(&dpidFilter, "dpid", "", "Only apply the rules of this switch")
	cmd.Flags().StringVar(&mode, "mode", string(model.ModeAdd), "Apply mode: 'add' or 'delete'")
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "Clear the flow table of every switch in the rule set first")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of concurrent requests")
	return cmd
}
