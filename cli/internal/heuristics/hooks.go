// Package heuristics holds the two analyzers used by the n-plus-one rule:
// cache-priming detection and single- vs multi-object loop classification.
//
// WordPress loads all metadata for an object the first time any one key is
// read (update_meta_cache). A loop that reads many keys of one object is
// therefore one query, while a loop over many objects is one query per
// object unless the caller primes the cache in bulk.
package heuristics

import "sort"

// ObjectKind is the kind of WordPress object whose metadata is cached.
type ObjectKind string

const (
	KindUser    ObjectKind = "user"
	KindPost    ObjectKind = "post"
	KindComment ObjectKind = "comment"
	KindTerm    ObjectKind = "term"
)

// hookKinds maps hooks to the object whose metadata core has already cached
// when the hook fires.
var hookKinds = map[string]ObjectKind{
	"show_user_profile":        KindUser,
	"edit_user_profile":        KindUser,
	"personal_options":         KindUser,
	"personal_options_update":  KindUser,
	"edit_user_profile_update": KindUser,
	"profile_update":           KindUser,
	"user_register":            KindUser,

	"add_meta_boxes":         KindPost,
	"edit_form_after_title":  KindPost,
	"edit_form_after_editor": KindPost,
	"save_post":              KindPost,
	"the_post":               KindPost,

	"comment_post": KindComment,
	"edit_comment": KindComment,

	"edit_term":    KindTerm,
	"created_term": KindTerm,
	"edited_term":  KindTerm,
}

// hookNames is hookKinds' keys in a fixed order so lookups over text are
// deterministic.
var hookNames = func() []string {
	names := make([]string, 0, len(hookKinds))
	for h := range hookKinds {
		names = append(names, h)
	}
	// Longest first so "edit_user_profile_update" wins over "edit_user_profile".
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

// HookObjectKind returns the object kind whose metadata is cached when hook
// fires.
func HookObjectKind(hook string) (ObjectKind, bool) {
	k, ok := hookKinds[hook]
	return k, ok
}

// Hooks returns the known hook names in lookup order.
func Hooks() []string {
	out := make([]string, len(hookNames))
	copy(out, hookNames)
	return out
}
