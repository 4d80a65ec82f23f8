package triage

import (
	"fmt"
	"strings"

	"wpcc/cli/internal/evidence"
	"wpcc/cli/internal/heuristics"
)

var wpQueryUnboundedChain = &Chain{
	ID:       IDWPQueryUnbounded,
	Category: "unbounded WP_Query",
	Rules: []Rule{
		{
			Name: "ids-only-query",
			When: func(s *evidence.Set) bool {
				return s.CompactHasAny(`'fields'=>'ids'`, `"fields"=>"ids"`, `'fields'=>"ids"`, `"fields"=>'ids'`)
			},
			Then: fixed(FalsePositive, Medium,
				"Query fetches IDs only (`'fields' => 'ids'`); the unbounded result is a flat integer list rather than full post objects."),
		},
	},
	Default: Rule{
		Name: "wp-query-default",
		When: always,
		Then: fixed(NeedsReview, Medium,
			"Query without an explicit bound; confirm the result set is small or add posts_per_page/no_found_rows constraints."),
	},
}

// Markers for the metadata-in-loop chain.
var (
	explicitCacheCalls = []string{
		"get_transient(", "set_transient(", "get_site_transient(",
		"wp_cache_get(", "wp_cache_set(", "wp_cache_add(", "wp_cache_remember(",
	}
	lowFrequencyPaths = []string{"/emails/", "/email/", "email-"}
	// boundedArgs must not be followed by a negative value ('number' => -1
	// means "all").
	boundedArgs = []string{
		`'number'=>`, `'posts_per_page'=>`, `'limit'=>`,
		`"number"=>`, `"posts_per_page"=>`, `"limit"=>`,
	}
	boundingCalls = []string{"array_slice(", "array_chunk(", "$batch_size"}
)

func cachePrimed(s *evidence.Set) bool {
	_, ok := heuristics.DetectCachePriming(s)
	return ok
}

func primingRationale(s *evidence.Set, tail string) string {
	p, _ := heuristics.DetectCachePriming(s)
	return p.Justification + " " + tail
}

func hasExplicitCache(s *evidence.Set) bool {
	return s.TextHasAny(explicitCacheCalls...)
}

func lowFrequencyContext(s *evidence.Set) bool {
	return s.PathHasAny(lowFrequencyPaths...) || s.TextHas("wp_mail(")
}

func loopBounded(s *evidence.Set) bool {
	if s.CompactHasAny(boundingCalls...) {
		return true
	}
	for _, arg := range boundedArgs {
		rest := s.CompactText
		for {
			i := strings.Index(rest, arg)
			if i < 0 {
				break
			}
			rest = rest[i+len(arg):]
			if rest != "" && rest[0] != '-' {
				return true
			}
		}
	}
	return false
}

func adminOnlyContext(s *evidence.Set) bool {
	if s.PathHasAny("user-admin") {
		return false
	}
	return s.PathHasAny("/admin/") || s.TextHas("is_admin()")
}

var nPlusOneChain = &Chain{
	ID:       IDNPlusOne,
	Category: "metadata reads inside loops",
	Rules: []Rule{
		{
			Name: "primed-single-object",
			When: func(s *evidence.Set) bool { return cachePrimed(s) && heuristics.IsSingleObjectLoop(s) },
			Then: func(s *evidence.Set) Decision {
				shape := heuristics.ClassifyLoop(s)
				return decide(FalsePositive, High, primingRationale(s, fmt.Sprintf(
					"The loop varies only the field/key of one object (%s), so after the first read every lookup is served from the object cache.",
					shape.Basis)))
			},
		},
		{
			Name: "primed-loop-shape-unclear",
			When: cachePrimed,
			Then: func(s *evidence.Set) Decision {
				return decide(NeedsReview, Medium, primingRationale(s,
					"The cache is likely warm, but the loop may iterate more than one object; confirm each iteration reads the same object."))
			},
		},
		{
			Name: "single-object-loop",
			When: heuristics.IsSingleObjectLoop,
			Then: func(s *evidence.Set) Decision {
				shape := heuristics.ClassifyLoop(s)
				return decide(FalsePositive, Medium, fmt.Sprintf(
					"The loop reads several fields of a single object (%s); WordPress loads all metadata for an object on the first read, so this is one query, not N.",
					shape.Basis))
			},
		},
		{
			Name: "explicit-caching",
			When: hasExplicitCache,
			Then: fixed(FalsePositive, Medium,
				"Results are cached explicitly (transients or the object cache) around the loop; repeated runs do not repeat the queries."),
		},
		{
			Name: "low-frequency-context",
			When: lowFrequencyContext,
			Then: fixed(NeedsReview, Medium,
				"Runs in an email/notification context, which executes rarely; the per-iteration queries matter only if recipient lists are large."),
		},
		{
			Name: "bounded-loop",
			When: loopBounded,
			Then: fixed(NeedsReview, Medium,
				"The iteration is bounded (slice, chunk, batch size or an explicit limit); cost grows with the bound, so confirm the bound is small."),
		},
		{
			Name: "admin-only-context",
			When: adminOnlyContext,
			Then: fixed(NeedsReview, Medium,
				"Runs only in wp-admin, where traffic is low; still worth priming caches if the listed set can grow."),
		},
		{
			Name: "multi-object-loop",
			When: func(s *evidence.Set) bool {
				_, ok := heuristics.HasMultiObjectMarker(s)
				return ok
			},
			Then: func(s *evidence.Set) Decision {
				m, _ := heuristics.HasMultiObjectMarker(s)
				return decide(Confirmed, High, fmt.Sprintf(
					"The loop iterates many objects (`%s`) and reads metadata per object without priming the cache: one query per iteration. "+
						"Prime with update_meta_cache()/cache_users() before the loop.", m))
			},
		},
	},
	Default: Rule{
		Name: "loop-shape-unknown",
		When: always,
		Then: fixed(NeedsReview, Low,
			"Metadata is read inside a loop, but the snippet shows neither what the loop iterates nor whether the cache is primed; "+
				"it may be one object's fields (cheap) or many objects (N+1). Inspect the surrounding code."),
	},
}
