package heuristics

import (
	"wpcc/cli/internal/evidence"
)

// shortTextThreshold is the compact code+context length below which the
// snippet is too thin to judge and the path convention decides instead.
const shortTextThreshold = 40

// multiObjectMarkers iterate a collection of objects or build one in bulk.
// Compact form.
var multiObjectMarkers = []string{
	"foreach($users",
	"foreach($posts",
	"foreach($orders",
	"foreach($comments",
	"foreach($terms",
	"foreach($products",
	"foreach($user_ids",
	"foreach($post_ids",
	"get_users(",
	"newWP_User_Query(",
	"newWP_Query(",
	"get_posts(",
	"wc_get_orders(",
	"wc_get_products(",
	"get_comments(",
	"get_terms(",
	"->get_results(",
	"have_posts()",
}

// fieldMarkers iterate keys/fields of a single object.
var fieldMarkers = []string{
	"foreach($fields",
	"foreach($meta_keys",
	"foreach($keys",
	"foreach($field_keys",
	"foreach($meta_fields",
	"foreach($profile_fields",
	"foreach($custom_fields",
}

// stableIDMarkers name one object's id that does not change per iteration.
var stableIDMarkers = []string{
	"get_current_user_id()",
	"$profileuser->ID",
	"$user->ID",
	"$user_id",
	"$post->ID",
	"$post_id",
	"get_the_ID()",
}

// singleObjectPaths default to single-object when the snippet is too short.
var singleObjectPaths = []string{"custom-fields", "user-admin", "profile"}

// LoopShape is the loop classifier's verdict and the evidence behind it.
type LoopShape struct {
	// Single is true when the loop varies only the field/key of one object.
	Single bool
	// Multi is true when an explicit multi-object marker was seen.
	Multi bool
	// Basis names the marker or path fragment that decided the shape.
	Basis string
}

// HasMultiObjectMarker reports whether the text iterates or queries many
// objects.
func HasMultiObjectMarker(s *evidence.Set) (string, bool) {
	return evidence.FirstIn(s.CompactText, multiObjectMarkers)
}

// ClassifyLoop decides whether the loop around the finding varies one
// object's fields or many objects. Absent any signal the loop is not treated
// as single-object.
func ClassifyLoop(s *evidence.Set) LoopShape {
	if m, ok := HasMultiObjectMarker(s); ok {
		return LoopShape{Multi: true, Basis: m}
	}
	if field, ok := evidence.FirstIn(s.CompactText, fieldMarkers); ok {
		if id, ok := evidence.FirstIn(s.CompactText, stableIDMarkers); ok {
			return LoopShape{Single: true, Basis: field + " with " + id}
		}
	}
	if len(s.CompactText) < shortTextThreshold && InViewPath(s) {
		if frag, ok := evidence.FirstIn(s.Path, singleObjectPaths); ok {
			return LoopShape{Single: true, Basis: "path " + frag}
		}
	}
	return LoopShape{}
}

// IsSingleObjectLoop reports whether the iteration's object identity is
// constant, so only the first metadata read costs a query.
func IsSingleObjectLoop(s *evidence.Set) bool {
	return ClassifyLoop(s).Single
}
