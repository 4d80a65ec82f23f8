package triage

import (
	"strings"

	"wpcc/cli/internal/evidence"
)

// Unconditional-severity categories: no mitigating context to check.

var debugCodeChain = &Chain{
	ID:       IDDebugCode,
	Category: "debugger statements",
	Default: Rule{
		Name: "debugger-always-confirmed",
		When: always,
		Then: fixed(Confirmed, High,
			"Contains a `debugger;` statement in shipped JS. This pauses execution whenever devtools are open and is "+
				"normally unintended for production builds (even if located in a vendored library)."),
	},
}

var httpNoTimeoutChain = &Chain{
	ID:       IDHTTPNoTimeout,
	Category: "HTTP requests without timeout",
	Default: Rule{
		Name: "http-timeout-always-confirmed",
		When: always,
		Then: fixed(Confirmed, Medium,
			"Remote requests should pass an explicit timeout to avoid long hangs under network issues; "+
				"WordPress applies a default, but relying on it hides the intended bound."),
	},
}

// Structured-flag category. When the scanner reports guarded/sanitized the
// 2x2 table decides; text heuristics run only when both flags are absent.

func flagsKnown(s *evidence.Set) bool {
	return s.Finding.Guarded.Known() || s.Finding.Sanitized.Known()
}

func flagsAre(guarded, sanitized bool) func(*evidence.Set) bool {
	return func(s *evidence.Set) bool {
		return flagsKnown(s) &&
			s.Finding.Guarded.IsTrue() == guarded &&
			s.Finding.Sanitized.IsTrue() == sanitized
	}
}

func directSuperglobalMessage(s *evidence.Set) bool {
	msg := strings.ToLower(strings.TrimSpace(s.Finding.Message))
	return strings.HasPrefix(msg, "direct superglobal")
}

func isCommentLine(s *evidence.Set) bool {
	c := s.Code
	return strings.HasPrefix(c, "*") || strings.HasPrefix(c, "/*") || strings.HasPrefix(c, "//")
}

var superglobalsChain = &Chain{
	ID:       IDSuperglobals,
	Category: "direct superglobal manipulation",
	Rules: []Rule{
		{
			Name: "flags-guarded-sanitized",
			When: flagsAre(true, true),
			Then: fixed(FalsePositive, High,
				"Scanner reports the write is guarded by an authorization/nonce check and the value is sanitized before use."),
		},
		{
			Name: "flags-guarded-unsanitized",
			When: flagsAre(true, false),
			Then: fixed(NeedsReview, Medium,
				"Scanner reports the write is guarded but the value is not shown to be sanitized; confirm it is constrained before use."),
		},
		{
			Name: "flags-unguarded-sanitized",
			When: flagsAre(false, true),
			Then: fixed(NeedsReview, Medium,
				"Scanner reports the value is sanitized but no authorization/nonce guard was found on the path; confirm who can reach it."),
		},
		{
			Name: "flags-unguarded-unsanitized",
			When: flagsKnown,
			Then: fixed(Confirmed, High,
				"Scanner reports neither an authorization/nonce guard nor sanitization for this superglobal write."),
		},
		{
			Name: "comment-or-docblock",
			When: func(s *evidence.Set) bool { return directSuperglobalMessage(s) && isCommentLine(s) },
			Then: fixed(FalsePositive, High,
				"This hit appears to be inside a comment/docblock (mentions superglobals but does not access them)."),
		},
		{
			Name: "nonce-helper-nearby",
			When: func(s *evidence.Set) bool { return directSuperglobalMessage(s) && s.TextHas("verify_request_nonce") },
			Then: fixed(FalsePositive, Medium,
				"Nonce verification is performed via a helper (`verify_request_nonce`) in close proximity; direct access is part of a validated flow."),
		},
		{
			Name: "request-write",
			When: func(s *evidence.Set) bool { return strings.HasPrefix(s.Code, "$_REQUEST") },
			Then: fixed(NeedsReview, Medium,
				"Writes to $_REQUEST; verify this cannot be influenced by attackers and does not bypass validation logic."),
		},
		{
			Name: "vendor-location",
			When: func(s *evidence.Set) bool { return s.Vendor },
			Then: fixed(NeedsReview, Low,
				"Located in vendored code; validate whether it is executed in your runtime context and whether upstream validation exists."),
		},
	},
	Default: Rule{
		Name: "superglobal-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"Superglobal usage detected; confirm sanitization and nonce/capability checks for the execution path."),
	},
}

var unsanitizedReadChain = &Chain{
	ID:       IDUnsanitizedRead,
	Category: "unsanitized superglobal reads",
	Rules: []Rule{
		{
			Name: "absint-cast-nearby",
			When: func(s *evidence.Set) bool { return s.TextHas("absint(") },
			Then: fixed(FalsePositive, Medium,
				"Value is cast/sanitized (e.g., absint) in close proximity; ensure no earlier use of the raw value."),
		},
		{
			Name: "admin-referer-check-nearby",
			When: func(s *evidence.Set) bool { return s.TextHas("check_admin_referer") },
			Then: fixed(FalsePositive, Medium,
				"Nonce verification is present in the nearby control flow; remaining risk depends on usage of the value."),
		},
	},
	Default: Rule{
		Name: "unsanitized-read-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"Superglobal value is read directly; verify sanitization/validation happens before use in sensitive sinks."),
	},
}

// Pattern-escape category. An escaping idiom is a hard override; otherwise
// third-party location only lowers confidence.

var regexEscapeIdioms = []string{
	`replace(/([.*+?^${}()|\[\]\/\\])/g`,
	`replace(/[.*+?^${}()|[\]\\]/g`,
	"escapeRegExp(",
	"escapeRegex(",
	"preg_quote(",
}

var unsafeRegExpChain = &Chain{
	ID:       IDUnsafeRegExp,
	Category: "dynamic RegExp construction",
	Rules: []Rule{
		{
			Name: "regex-escaped",
			When: func(s *evidence.Set) bool { return s.TextHasAny(regexEscapeIdioms...) },
			Then: fixed(FalsePositive, High,
				"The code escapes regex metacharacters before constructing RegExp, which mitigates injection."),
		},
		{
			Name: "third-party-bundle",
			When: func(s *evidence.Set) bool { return s.ThirdParty() },
			Then: fixed(NeedsReview, Low,
				"The pattern is in bundled/minified or third-party code. Manual review needed to confirm whether the "+
					"RegExp inputs are attacker-controlled and whether escaping/constraints exist upstream."),
		},
	},
	Default: Rule{
		Name: "regexp-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"RegExp is constructed from a variable; confirm whether the variable is derived from user input and whether it is escaped/validated."),
	},
}

var wpdbNoPrepareChain = &Chain{
	ID:       IDWPDBNoPrepare,
	Category: "unprepared $wpdb queries",
	Rules: []Rule{
		{
			Name: "constant-found-rows",
			When: func(s *evidence.Set) bool { return s.CodeHas("SELECT FOUND_ROWS()") },
			Then: fixed(FalsePositive, High,
				"`SELECT FOUND_ROWS()` contains no external inputs; prepare() is not necessary for a constant query."),
		},
		{
			Name: "truncate-table",
			When: func(s *evidence.Set) bool { return s.CodeHas("TRUNCATE TABLE") },
			Then: fixed(NeedsReview, Medium,
				"TRUNCATE with interpolated table name can be safe if table name is internal/validated; confirm it is not user-controlled."),
		},
	},
	Default: Rule{
		Name: "wpdb-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"Direct SQL query detected; verify no untrusted input is interpolated and prefer $wpdb->prepare() where applicable."),
	},
}

var missingCapCheckChain = &Chain{
	ID:       IDMissingCapCheck,
	Category: "admin capability checks",
	Rules: []Rule{
		{
			Name: "menu-registration",
			When: func(s *evidence.Set) bool { return s.CodeHas("add_menu_page") || s.CodeHas("add_submenu_page") },
			Then: fixed(FalsePositive, Medium,
				"Menu registration typically includes a capability argument; confirm the capability is specified and appropriate."),
		},
	},
	Default: Rule{
		Name: "cap-check-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"Heuristic check: confirm this admin hook/output is gated by capability or only displays non-sensitive content."),
	},
}

var restNoPaginationChain = &Chain{
	ID:       IDRESTNoPagination,
	Category: "REST pagination",
	Rules: []Rule{
		{
			Name: "single-resource-route",
			When: func(s *evidence.Set) bool { return s.CodeHas("/(?P<id>") || s.TextHas("CREATABLE") },
			Then: fixed(FalsePositive, Medium,
				"Endpoint appears to be a single-resource/action route, not a list endpoint; pagination guards are less applicable."),
		},
	},
	Default: Rule{
		Name: "rest-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"Check whether this endpoint returns unbounded lists; if so add per_page/limit constraints."),
	},
}

var ajaxPollingChain = &Chain{
	ID:       IDAjaxPolling,
	Category: "unbounded AJAX polling",
	Rules: []Rule{
		{
			Name: "focus-gated",
			When: func(s *evidence.Set) bool { return s.TextHas("isFocused") },
			Then: fixed(FalsePositive, Medium,
				"Polling is gated by focus/background checks; confirm interval duration and server-side throttling."),
		},
		{
			Name: "third-party-bundle",
			When: func(s *evidence.Set) bool { return s.ThirdParty() },
			Then: fixed(NeedsReview, Low,
				"Bundled/minified code; verify interval duration and whether it can cause excessive server load."),
		},
	},
	Default: Rule{
		Name: "polling-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"setInterval polling detected; verify interval, cancelation, and server-side rate limiting/caching."),
	},
}
