package triage

// Finding identifiers with a triage chain.
const (
	IDDebugCode        = "spo-001-debug-code"
	IDUnsafeRegExp     = "hcc-008-unsafe-regexp"
	IDSuperglobals     = "spo-002-superglobals"
	IDUnsanitizedRead  = "unsanitized-superglobal-read"
	IDRESTNoPagination = "rest-no-pagination"
	IDWPDBNoPrepare    = "wpdb-query-no-prepare"
	IDMissingCapCheck  = "spo-004-missing-cap-check"
	IDAjaxPolling      = "ajax-polling-unbounded"
	IDWPQueryUnbounded = "wp-query-unbounded"
	IDHTTPNoTimeout    = "http-no-timeout"
	IDNPlusOne         = "n-plus-one-pattern"
)

// entry is a chain plus the text used when its category was observed.
type entry struct {
	chain          *Chain
	narrative      string
	recommendation string
}

// declared is the table in declaration order. Narrative and recommendations
// follow this order.
var declared = []entry{
	{debugCodeChain, narrativeDebug, recDebug},
	{httpNoTimeoutChain, narrativeHTTP, recHTTP},
	{superglobalsChain, narrativeSuperglobals, recSuperglobals},
	{unsanitizedReadChain, narrativeUnsanitized, recUnsanitized},
	{unsafeRegExpChain, narrativeRegExp, recRegExp},
	{wpdbNoPrepareChain, narrativeWPDB, recWPDB},
	{missingCapCheckChain, narrativeCapCheck, recCapCheck},
	{restNoPaginationChain, narrativeREST, recREST},
	{ajaxPollingChain, narrativeAjax, recAjax},
	{wpQueryUnboundedChain, narrativeWPQuery, recWPQuery},
	{nPlusOneChain, narrativeNPlusOne, recNPlusOne},
}

// table is built once and never mutated.
var table = func() map[string]entry {
	m := make(map[string]entry, len(declared))
	for _, e := range declared {
		if _, dup := m[e.chain.ID]; dup {
			panic("triage: duplicate chain " + e.chain.ID)
		}
		m[e.chain.ID] = e
	}
	return m
}()

// Lookup returns the chain for a finding identifier.
func Lookup(id string) (*Chain, bool) {
	e, ok := table[id]
	if !ok {
		return nil, false
	}
	return e.chain, true
}

// Recognized reports whether id has a chain.
func Recognized(id string) bool {
	_, ok := table[id]
	return ok
}

// Chains returns every chain in declaration order.
func Chains() []*Chain {
	out := make([]*Chain, 0, len(declared))
	for _, e := range declared {
		out = append(out, e.chain)
	}
	return out
}
