package triage

import (
	"fmt"
	"strings"
)

const narrativeIntro = "This triage pass reviews a subset of findings to separate likely true issues from policy/heuristic noise."

// Per-category narrative sentences.
const (
	narrativeDebug        = "Shipped JavaScript contains `debugger;` statements, which are confirmed issues regardless of where they live."
	narrativeHTTP         = "Remote HTTP calls without an explicit timeout are confirmed: a slow upstream can hold a PHP worker for the full default."
	narrativeSuperglobals = "Direct superglobal writes are classified from the scanner's guard/sanitization flags where present, otherwise from nearby nonce checks and comments."
	narrativeUnsanitized  = "Unsanitized superglobal reads are cleared only when a cast or nonce check is visible nearby; the rest need a look at how the value is used."
	narrativeRegExp       = "Dynamic RegExp construction is cleared when metacharacters are escaped first; hits in bundled code are hard to validate from patterns alone."
	narrativeWPDB         = "Unprepared $wpdb queries were checked for constant SQL and for interpolated table names."
	narrativeCapCheck     = "Admin hooks flagged for a missing capability check were compared against WordPress menu registration calls, which take a capability argument."
	narrativeREST         = "REST routes flagged for missing pagination were checked for single-resource and action routes."
	narrativeAjax         = "AJAX polling loops were checked for focus gating; ungated loops need their interval and server-side throttling reviewed."
	narrativeWPQuery      = "Unbounded WP_Query calls were checked for ID-only result sets."
	narrativeNPlusOne     = "Metadata reads inside loops were checked for cache priming and loop shape: reads of one object's fields are a single query, while loops over many objects without priming are real N+1 patterns."
)

// Per-category recommendations.
const (
	recDebug        = "Remove/strip `debugger;` statements from shipped JS assets (or upgrade/patch the vendored library that contains them)."
	recHTTP         = "Add explicit `timeout` arguments to `wp_remote_get/wp_remote_post/wp_remote_request` calls where missing."
	recSuperglobals = "Avoid writing to superglobals; where unavoidable, guard the write with a nonce/capability check and sanitize the value."
	recUnsanitized  = "For superglobal reads, ensure values are validated/sanitized before use and that nonce/capability checks exist on the request path."
	recRegExp       = "Escape user-influenced input before building a RegExp, or upgrade the bundled library that does not."
	recWPDB         = "Use $wpdb->prepare() for every query that includes a variable, and whitelist table or column names that cannot be parameterized."
	recCapCheck     = "Confirm every admin hook and menu registration specifies an appropriate capability."
	recREST         = "For REST endpoints, confirm which routes return potentially large collections; add `per_page`/limit constraints there (action/single-item routes may not need pagination)."
	recAjax         = "Pause polling when the tab is hidden, use a generous interval, and throttle or cache the server-side handler."
	recWPQuery      = "Bound WP_Query calls with posts_per_page, or request `'fields' => 'ids'` when only IDs are needed."
	recNPlusOne     = "Prime metadata caches (update_meta_cache(), cache_users(), update_post_caches()) before loops that read metadata of many objects."
)

// ruleNotes add a counted sentence to a category's narrative when the named
// rule decided at least one of its findings. Keyed by chain ID, then rule.
var ruleNotes = map[string]map[string]string{
	IDWPDBNoPrepare: {
		"constant-found-rows": "%d of them are constant queries that need no prepare().",
		"truncate-table":      "%d of them truncate a table whose interpolated name must be confirmed internal.",
	},
	IDMissingCapCheck: {
		"menu-registration": "%d of them register admin menus, where the WordPress menu API enforces the capability argument.",
	},
	IDRESTNoPagination: {
		"single-resource-route": "%d of them are single-resource or action routes, where pagination does not apply.",
	},
	IDWPQueryUnbounded: {
		"ids-only-query": "%d of them fetch IDs only, which keeps the unbounded result cheap.",
	},
}

const recFallback = "Review the triaged findings individually; none of them fall into a category with a specific recommendation."

// observed returns the declared entries with at least one record, in
// declaration order.
func observed(records []Record) []entry {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		seen[r.Key.ID] = true
	}
	var out []entry
	for _, e := range declared {
		if seen[e.chain.ID] {
			out = append(out, e)
		}
	}
	return out
}

// Narrative summarizes the triaged records. It mentions only categories that
// were observed.
func Narrative(records []Record) string {
	if len(records) == 0 {
		return narrativeIntro + " No recognized findings were reviewed."
	}
	c := Aggregate(records)
	parts := []string{
		narrativeIntro,
		fmt.Sprintf("Of %d reviewed findings, %d are confirmed issues, %d are likely false positives and %d need manual review.",
			c.Reviewed, c.Confirmed, c.FalsePositives, c.NeedsReview),
	}
	fired := firedRules(records)
	for _, e := range observed(records) {
		parts = append(parts, categoryNarrative(e, fired[e.chain.ID]))
	}
	if n := thirdPartyCount(records); n > 0 {
		parts = append(parts, fmt.Sprintf(
			"%d of the reviewed findings are in bundled/minified or third-party code; these are marked Needs Review unless a clear mitigation is visible.", n))
	}
	return strings.Join(parts, "\n\n")
}

// Recommendations lists one action per observed category, in declaration
// order, or a single generic action when none was observed.
func Recommendations(records []Record) []string {
	obs := observed(records)
	if len(obs) == 0 {
		return []string{recFallback}
	}
	out := make([]string, 0, len(obs))
	for _, e := range obs {
		out = append(out, e.recommendation)
	}
	return out
}

// firedRules counts decisions per chain ID and rule name.
func firedRules(records []Record) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, r := range records {
		if out[r.Key.ID] == nil {
			out[r.Key.ID] = make(map[string]int)
		}
		out[r.Key.ID][r.Rule]++
	}
	return out
}

// categoryNarrative is the category sentence followed by a note for each
// rule that fired, in chain order.
func categoryNarrative(e entry, fired map[string]int) string {
	notes := ruleNotes[e.chain.ID]
	if len(notes) == 0 {
		return e.narrative
	}
	parts := []string{e.narrative}
	for _, r := range e.chain.Rules {
		if n := fired[r.Name]; n > 0 && notes[r.Name] != "" {
			parts = append(parts, fmt.Sprintf(notes[r.Name], n))
		}
	}
	return strings.Join(parts, " ")
}

func thirdPartyCount(records []Record) int {
	n := 0
	for _, r := range records {
		if r.ThirdParty {
			n++
		}
	}
	return n
}
