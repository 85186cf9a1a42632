// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	ClassifyTotal      = expvar.NewInt("mnemos_classify_total")
	RememberTotal      = expvar.NewInt("mnemos_remember_total")
	SearchTotal        = expvar.NewInt("mnemos_search_total")
	SearchPartialFails = expvar.NewInt("mnemos_search_partial_failures_total")
	ForgetTotal        = expvar.NewInt("mnemos_forget_total")
	RulesFiredTotal    = expvar.NewInt("mnemos_rules_fired_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
