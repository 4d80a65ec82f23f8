package heuristics

import (
	"fmt"
	"strings"

	"wpcc/cli/internal/evidence"
)

// Signal names which tier of the cache-priming detector fired.
type Signal string

const (
	SignalPath    Signal = "path"
	SignalPreload Signal = "preload"
	SignalPriming Signal = "priming"
	SignalHook    Signal = "hook"
	SignalView    Signal = "view_param"
)

// CachePriming describes why an object's metadata cache is already warm at
// the flagged location.
type CachePriming struct {
	Kind          ObjectKind
	Signal        Signal
	Marker        string
	Justification string
}

type marker struct {
	text  string // compact form
	kind  ObjectKind
	label string
}

// viewMarkers locate template/view code.
var viewMarkers = []string{"/views/", "/templates/", "/partials/"}

// pathFragments are screen conventions where core loads the edited object
// before the view renders.
var pathFragments = []marker{
	{"user-admin", KindUser, "user admin"},
	{"user-edit", KindUser, "user edit"},
	{"user-profile", KindUser, "user profile"},
	{"profile", KindUser, "profile"},
	{"post-edit", KindPost, "post edit"},
	{"edit-post", KindPost, "post edit"},
	{"meta-box", KindPost, "meta box"},
	{"metabox", KindPost, "meta box"},
}

// preloadMarkers reference an object core has already loaded for the
// current request.
var preloadMarkers = []marker{
	{"get_current_user_id()", KindUser, "the current user"},
	{"wp_get_current_user()", KindUser, "the current user"},
	{"$current_user->ID", KindUser, "the current user"},
	{"$profileuser", KindUser, "the profile screen user"},
	{"IS_PROFILE_PAGE", KindUser, "the profile screen user"},
	{"get_the_ID()", KindPost, "the current loop post"},
	{"global$post", KindPost, "the global post"},
	{"get_queried_object_id()", KindPost, "the queried object"},
}

// primingCalls warm a whole batch of objects in one query.
var primingCalls = []marker{
	{"update_meta_cache('user'", KindUser, "update_meta_cache()"},
	{`update_meta_cache("user"`, KindUser, "update_meta_cache()"},
	{"update_meta_cache('comment'", KindComment, "update_meta_cache()"},
	{`update_meta_cache("comment"`, KindComment, "update_meta_cache()"},
	{"update_meta_cache('term'", KindTerm, "update_meta_cache()"},
	{`update_meta_cache("term"`, KindTerm, "update_meta_cache()"},
	{"update_meta_cache(", KindPost, "update_meta_cache()"},
	{"update_postmeta_cache(", KindPost, "update_postmeta_cache()"},
	{"update_post_caches(", KindPost, "update_post_caches()"},
	{"update_termmeta_cache(", KindTerm, "update_termmeta_cache()"},
	{"cache_users(", KindUser, "cache_users()"},
}

// boundParams are per-object variables a view receives from its controller.
var boundParams = []marker{
	{"$user->ID", KindUser, "$user->ID"},
	{"$user_id", KindUser, "$user_id"},
	{"$post->ID", KindPost, "$post->ID"},
	{"$post_id", KindPost, "$post_id"},
	{"$comment->comment_ID", KindComment, "$comment->comment_ID"},
	{"$term->term_id", KindTerm, "$term->term_id"},
}

var metaReads = []marker{
	{"get_user_meta(", KindUser, "get_user_meta()"},
	{"get_post_meta(", KindPost, "get_post_meta()"},
	{"get_comment_meta(", KindComment, "get_comment_meta()"},
	{"get_term_meta(", KindTerm, "get_term_meta()"},
	{"get_metadata(", "", "get_metadata()"},
}

// InViewPath reports whether the finding lives in view/template code.
func InViewPath(s *evidence.Set) bool {
	return s.PathHasAny(viewMarkers...)
}

// DetectCachePriming reports whether the host framework has already warmed
// an object's metadata cache where the finding sits. Tiers are tried in
// order: path convention, preloaded-object code, view parameters.
func DetectCachePriming(s *evidence.Set) (CachePriming, bool) {
	if cp, ok := primingFromPath(s); ok {
		return cp, true
	}
	if cp, ok := primingFromCode(s); ok {
		return cp, true
	}
	if cp, ok := primingFromViewParams(s); ok {
		return cp, true
	}
	return CachePriming{}, false
}

func primingFromPath(s *evidence.Set) (CachePriming, bool) {
	if !InViewPath(s) {
		return CachePriming{}, false
	}
	m, ok := firstMarker(s.Path, pathFragments)
	if !ok {
		return CachePriming{}, false
	}
	return CachePriming{
		Kind:   m.kind,
		Signal: SignalPath,
		Marker: m.text,
		Justification: fmt.Sprintf(
			"File follows the %s view convention (%q under a views/templates directory); WordPress loads the %s and primes its full meta cache before the view renders, so repeated meta reads are served from the object cache.",
			m.label, m.text, m.kind),
	}, true
}

func primingFromCode(s *evidence.Set) (CachePriming, bool) {
	if m, ok := firstMarker(s.CompactText, primingCalls); ok {
		return CachePriming{
			Kind:   m.kind,
			Signal: SignalPriming,
			Marker: m.text,
			Justification: fmt.Sprintf(
				"Metadata for the %s objects is primed in bulk with %s before it is read, so per-object reads hit the cache.",
				m.kind, m.label),
		}, true
	}
	if m, ok := firstMarker(s.CompactText, preloadMarkers); ok {
		return CachePriming{
			Kind:   m.kind,
			Signal: SignalPreload,
			Marker: m.text,
			Justification: fmt.Sprintf(
				"Code reads metadata of %s (%s), a %s object WordPress has already loaded; the first read primes that %s's whole meta cache.",
				m.label, m.text, m.kind, m.kind),
		}, true
	}
	for _, hook := range hookNames {
		if !registersHook(s.CompactText, hook) {
			continue
		}
		kind := hookKinds[hook]
		return CachePriming{
			Kind:   kind,
			Signal: SignalHook,
			Marker: hook,
			Justification: fmt.Sprintf(
				"Callback runs on the %q hook, which fires after WordPress has cached the %s's metadata.",
				hook, kind),
		}, true
	}
	return CachePriming{}, false
}

func primingFromViewParams(s *evidence.Set) (CachePriming, bool) {
	if !InViewPath(s) {
		return CachePriming{}, false
	}
	param, ok := firstMarker(s.CompactText, boundParams)
	if !ok {
		return CachePriming{}, false
	}
	read, ok := firstMarker(s.CompactText, metaReads)
	if !ok {
		return CachePriming{}, false
	}
	kind := read.kind
	if kind == "" {
		kind = param.kind
	}
	return CachePriming{
		Kind:   kind,
		Signal: SignalView,
		Marker: param.text,
		Justification: fmt.Sprintf(
			"View template reads metadata with %s for a bound %s parameter (%s); the %s's meta cache is primed on the first read.",
			read.label, kind, param.label, kind),
	}, true
}

func registersHook(compact, hook string) bool {
	return strings.Contains(compact, "add_action('"+hook+"'") ||
		strings.Contains(compact, `add_action("`+hook+`"`)
}

func firstMarker(s string, ms []marker) (marker, bool) {
	for _, m := range ms {
		if strings.Contains(s, m.text) {
			return m, true
		}
	}
	return marker{}, false
}
