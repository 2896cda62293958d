// Package reachable checks whether a host answers over ICMP echo or accepts a
// TCP connection.
//
// A target is parsed from a host[:port] specification and bound to a probe
// strategy:
//
//	target, err := reachable.ParseTarget("mempool.space", reachable.StrategyICMP)
//	if err != nil {
//		return err
//	}
//
//	status, err := target.CheckAvailability(ctx)
//
// CheckAvailability resolves the host with the configured ResolvePolicy,
// probes the selected addresses and folds the outcomes into one Status. The
// Status is meaningful even when an error is returned. For periodic checks of
// many targets see the async subpackage.
package reachable
