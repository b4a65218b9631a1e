package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ryu-ofctl/internal/model"
	"ryu-ofctl/pkg/flow"
	"ryu-ofctl/pkg/ryu"
)

// FlowProgrammer is the part of the controller client the applier drives.
type FlowProgrammer interface {
	InsertFlow(ctx context.Context, dpid flow.DatapathID, entry *flow.FlowEntry) (*ryu.Response, error)
	DeleteFlow(ctx context.Context, dpid flow.DatapathID, entry *flow.FlowEntry) (*ryu.Response, error)
	DeleteAllFlows(ctx context.Context, dpid flow.DatapathID) (*ryu.Response, error)
}

// Applier pushes a rule set to the controller with a bounded number of
// requests in flight.
type Applier struct {
	programmer FlowProgrammer
	mode       model.Mode
	workers    int

	// ClearFirst empties every switch named by the rule set, once, before any
	// rule is sent.
	ClearFirst bool
}

func NewApplier(programmer FlowProgrammer, mode model.Mode, workers int) (*Applier, error) {
	if mode != model.ModeAdd && mode != model.ModeDelete {
		return nil, fmt.Errorf("unknown apply mode: %s", mode)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Applier{programmer: programmer, mode: mode, workers: workers}, nil
}

// Apply sends every rule and returns one result per rule, in input order. A
// failed rule does not stop the others; only a failed pre-clear aborts.
func (a *Applier) Apply(ctx context.Context, rules []model.Rule) ([]model.ApplyResult, error) {
	if a.ClearFirst {
		if err := a.clearSwitches(ctx, rules); err != nil {
			return nil, err
		}
	}

	results := make([]model.ApplyResult, len(rules))
	g := new(errgroup.Group)
	g.SetLimit(a.workers)
	for i := range rules {
		i := i
		rule := rules[i]
		g.Go(func() error {
			results[i] = a.applyOne(ctx, rule)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (a *Applier) applyOne(ctx context.Context, rule model.Rule) model.ApplyResult {
	result := model.ApplyResult{Source: rule.Source, DPID: rule.DPID, Mode: a.mode}

	var (
		resp *ryu.Response
		err  error
	)
	switch a.mode {
	case model.ModeAdd:
		resp, err = a.programmer.InsertFlow(ctx, rule.DPID, rule.Entry)
	case model.ModeDelete:
		resp, err = a.programmer.DeleteFlow(ctx, rule.DPID, rule.Entry)
	}
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
		slog.Warn("Rule failed", "source", rule.Source, "dpid", rule.DPID.String(), "mode", a.mode, "error", err)
		return result
	}
	slog.Debug("Rule applied", "source", rule.Source, "dpid", rule.DPID.String(), "mode", a.mode)
	return result
}

func (a *Applier) clearSwitches(ctx context.Context, rules []model.Rule) error {
	seen := make(map[flow.DatapathID]bool)
	for _, rule := range rules {
		if seen[rule.DPID] {
			continue
		}
		seen[rule.DPID] = true
		slog.Info("Clearing switch flow table", "dpid", rule.DPID.String())
		if _, err := a.programmer.DeleteAllFlows(ctx, rule.DPID); err != nil {
			return fmt.Errorf("failed to clear switch %s: %w", rule.DPID, err)
		}
	}
	return nil
}

// Summarize counts succeeded and failed results.
func Summarize(results []model.ApplyResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed
}
