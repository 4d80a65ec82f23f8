package heuristics

import (
	"strings"
	"testing"

	"wpcc/cli/internal/evidence"
	"wpcc/cli/internal/findings"
)

func set(file, code string, ctx ...string) *evidence.Set {
	f := findings.Finding{ID: "n-plus-one-pattern", File: file, Code: code}
	for _, c := range ctx {
		f.Context = append(f.Context, findings.ContextLine{Code: c})
	}
	return evidence.Of(f)
}

func TestDetectCachePriming(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		s          *evidence.Set
		wantOK     bool
		wantKind   ObjectKind
		wantSignal Signal
	}{
		{
			name:       "user_admin_view_path_with_empty_code",
			s:          set("plugin/user-admin/views/fields.php", ""),
			wantOK:     true,
			wantKind:   KindUser,
			wantSignal: SignalPath,
		},
		{
			name:       "meta_box_template_path",
			s:          set(`plugin\admin\templates\meta-box-details.php`, ""),
			wantOK:     true,
			wantKind:   KindPost,
			wantSignal: SignalPath,
		},
		{
			name:   "fragment_without_views_marker",
			s:      set("plugin/includes/user-admin.php", ""),
			wantOK: false,
		},
		{
			name:       "current_user_preload",
			s:          set("plugin/includes/account.php", "get_user_meta( get_current_user_id(), $key, true );"),
			wantOK:     true,
			wantKind:   KindUser,
			wantSignal: SignalPreload,
		},
		{
			name:       "current_post_preload_in_context",
			s:          set("theme/single.php", "get_post_meta( $id, $k, true );", "$id = get_the_ID();"),
			wantOK:     true,
			wantKind:   KindPost,
			wantSignal: SignalPreload,
		},
		{
			name:       "bulk_priming_call",
			s:          set("plugin/list.php", "get_user_meta( $user->ID, 'first_name', true );", "update_meta_cache( 'user', $user_ids );"),
			wantOK:     true,
			wantKind:   KindUser,
			wantSignal: SignalPriming,
		},
		{
			name:       "hook_registration",
			s:          set("plugin/hooks.php", "get_user_meta( $uid, $k, true );", "add_action( 'show_user_profile', 'render' );"),
			wantOK:     true,
			wantKind:   KindUser,
			wantSignal: SignalHook,
		},
		{
			name:       "view_param_with_meta_read",
			s:          set("plugin/views/card.php", "echo get_post_meta( $post->ID, 'price', true );"),
			wantOK:     true,
			wantKind:   KindPost,
			wantSignal: SignalView,
		},
		{
			name:   "view_meta_read_without_bound_param",
			s:      set("plugin/views/card.php", "echo get_post_meta( $p, 'price', true );"),
			wantOK: false,
		},
		{
			name:   "plain_multi_object_loop",
			s:      set("plugin/includes/report.php", "get_user_meta( $u->ID, 'x', true );", "foreach ( get_users() as $u ) {"),
			wantOK: false,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cp, ok := DetectCachePriming(tt.s)
			if ok != tt.wantOK {
				t.Fatalf("DetectCachePriming ok = %v, want %v (%+v)", ok, tt.wantOK, cp)
			}
			if !ok {
				return
			}
			if cp.Kind != tt.wantKind || cp.Signal != tt.wantSignal {
				t.Errorf("got kind=%s signal=%s, want kind=%s signal=%s", cp.Kind, cp.Signal, tt.wantKind, tt.wantSignal)
			}
			if cp.Justification == "" || !strings.Contains(cp.Justification, string(cp.Kind)) {
				t.Errorf("justification should name the object kind: %q", cp.Justification)
			}
		})
	}
}

func TestClassifyLoop(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		s          *evidence.Set
		wantSingle bool
		wantMulti  bool
	}{
		{
			name:      "multi_object_query",
			s:         set("plugin/report.php", "get_user_meta( $user->ID, 'x', true );", "$users = get_users( array( 'role' => 'subscriber' ) );", "foreach ( $users as $user ) {"),
			wantMulti: true,
		},
		{
			name:       "field_loop_with_stable_id",
			s:          set("plugin/account.php", "$values[ $key ] = get_user_meta( $user_id, $key, true );", "foreach ( $fields as $key => $label ) {"),
			wantSingle: true,
		},
		{
			name:      "multi_marker_wins_over_field_marker",
			s:         set("plugin/x.php", "get_post_meta( $post->ID, $k, true );", "foreach ( $posts as $post ) { foreach ( $fields as $k ) {"),
			wantMulti: true,
		},
		{
			name: "field_loop_without_stable_id",
			s:    set("plugin/x.php", "get_user_meta( $u, $key, true );", "foreach ( $fields as $key ) {"),
		},
		{
			name:       "short_text_user_admin_view",
			s:          set("plugin/user-admin/views/extra.php", ""),
			wantSingle: true,
		},
		{
			name:       "short_text_custom_fields_template",
			s:          set("plugin/templates/custom-fields.php", "get_meta($k);"),
			wantSingle: true,
		},
		{
			name: "short_text_outside_known_paths",
			s:    set("plugin/includes/loop.php", "get_meta($k);"),
		},
		{
			name: "no_signal_defaults_to_not_single",
			s:    set("plugin/includes/loop.php", "$v = get_post_meta( $item_id, 'some_long_meta_key_name', true );"),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ClassifyLoop(tt.s)
			if got.Single != tt.wantSingle || got.Multi != tt.wantMulti {
				t.Errorf("ClassifyLoop = %+v, want single=%v multi=%v", got, tt.wantSingle, tt.wantMulti)
			}
			if IsSingleObjectLoop(tt.s) != tt.wantSingle {
				t.Errorf("IsSingleObjectLoop disagrees with ClassifyLoop")
			}
		})
	}
}

func TestHookObjectKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		hook string
		want ObjectKind
		ok   bool
	}{
		{"show_user_profile", KindUser, true},
		{"add_meta_boxes", KindPost, true},
		{"comment_post", KindComment, true},
		{"edited_term", KindTerm, true},
		{"init", "", false},
	}
	for _, tt := range tests {
		got, ok := HookObjectKind(tt.hook)
		if got != tt.want || ok != tt.ok {
			t.Errorf("HookObjectKind(%q) = %q, %v; want %q, %v", tt.hook, got, ok, tt.want, tt.ok)
		}
	}
	hooks := Hooks()
	if len(hooks) != len(hookKinds) {
		t.Fatalf("Hooks() len = %d, want %d", len(hooks), len(hookKinds))
	}
	for i := 1; i < len(hooks); i++ {
		if len(hooks[i]) > len(hooks[i-1]) {
			t.Errorf("Hooks() not longest-first at %d: %q after %q", i, hooks[i], hooks[i-1])
		}
	}
}
