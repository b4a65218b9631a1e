package engine

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ryu-ofctl/internal/model"
	"ryu-ofctl/pkg/flow"
	"ryu-ofctl/pkg/ryu"
)

type HostLocator interface {
	GetMacIngressPort(ctx context.Context, mac string) (*flow.HostLocation, error)
}

// LookupHosts resolves the ingress port of every MAC, workers at a time.
// Unknown hosts are reported as not found rather than as errors.
func LookupHosts(ctx context.Context, locator HostLocator, macs []string, workers int) []model.LookupResult {
	results := make([]model.LookupResult, len(macs))
	g := new(errgroup.Group)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range macs {
		i := i
		mac := macs[i]
		g.Go(func() error {
			result := model.LookupResult{MAC: mac}
			loc, err := locator.GetMacIngressPort(ctx, mac)
			switch {
			case err == nil:
				result.Found = true
				result.Location = loc
			case errors.Is(err, ryu.ErrHostNotFound):
				slog.Debug("Host not found", "mac", mac)
			default:
				result.Error = err.Error()
				slog.Warn("Host lookup failed", "mac", mac, "error", err)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	return results
}
