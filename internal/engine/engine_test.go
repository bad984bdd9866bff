package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagtidy/tagtidy/internal/ruleset"
	"github.com/tagtidy/tagtidy/internal/testutil"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	docs, err := ruleset.LoadEmbedded()
	require.NoError(t, err)
	eng, err := New(Config{Documents: docs, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return eng
}

func TestEvaluate_FaceVisibleRequirements(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"front view"}, nil)

	// Face is visible (no "from behind"), so the face categories are hard
	// requirements.
	assert.ElementsMatch(t, []string{"gaze", "expression", "mouth_state"}, hints.MissingRequired)
	// framing and eyes_state degrade to warnings by policy.
	assert.Contains(t, hints.PossiblyMissing, "framing")
	assert.Contains(t, hints.PossiblyMissing, "eyes_state")
	// pose is gated on an external signal nobody supplied.
	assert.Contains(t, hints.NotRequired, "pose")
	assert.Empty(t, hints.Forbidden)
	assert.Empty(t, hints.Invalid)
}

func TestEvaluate_CloseUpRelaxation(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"close-up"},
		map[string]bool{"lower_body_and_ground_contact_visible": true})

	assert.Contains(t, hints.NotRequired, "pose")
	assert.Contains(t, hints.NotRequired, "view_angle")
	assert.NotContains(t, hints.MissingRequired, "pose")
	assert.NotContains(t, hints.MissingRequired, "view_angle")
}

func TestEvaluate_SingletonViolation(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"smile", "frown"}, nil)
	assert.Contains(t, hints.Invalid, "expression")
}

func TestEvaluate_ForbiddenWhenFaceHidden(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"from behind", "smile", "looking at viewer"}, nil)

	assert.Contains(t, hints.Forbidden, "smile")
	assert.Contains(t, hints.Forbidden, "looking at viewer")
	// With the face hidden, face categories stop being required.
	assert.NotContains(t, hints.MissingRequired, "expression")
	assert.NotContains(t, hints.MissingRequired, "gaze")
	assert.NotContains(t, hints.MissingRequired, "mouth_state")
}

func TestEvaluate_PoseRequiredWhenGroundContactVisible(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"front view", "smile", "looking at viewer", "open mouth"},
		map[string]bool{"lower_body_and_ground_contact_visible": true})

	// Triggered and missing, but the policy softens pose to a warning.
	assert.Contains(t, hints.PossiblyMissing, "pose")
	assert.NotContains(t, hints.MissingRequired, "pose")
	assert.Empty(t, hints.MissingRequired)
}

func TestEvaluate_PoseSatisfied(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"standing", "front view", "smile", "looking at viewer", "open mouth"},
		map[string]bool{"lower_body_and_ground_contact_visible": true})

	assert.NotContains(t, hints.PossiblyMissing, "pose")
	assert.NotContains(t, hints.MissingRequired, "pose")
}

func TestEvaluate_TagPolicyInfo(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate([]string{"Identity-Token", "front view"}, nil)

	require.Contains(t, hints.Info, "identity token")
	// Info severity routes into possibly_missing alongside its own list.
	assert.Contains(t, hints.PossiblyMissing, "identity token")
}

func TestEvaluate_UnknownTagsIgnored(t *testing.T) {
	eng := newTestEngine(t)

	base := eng.Evaluate([]string{"front view"}, nil)
	noisy := eng.Evaluate([]string{"front view", "completely made up tag"}, nil)
	assert.Equal(t, base, noisy)
}

func TestEvaluate_BucketsAlwaysPresent(t *testing.T) {
	eng := newTestEngine(t)

	hints := eng.Evaluate(nil, nil)
	assert.NotNil(t, hints.MissingRequired)
	assert.NotNil(t, hints.PossiblyMissing)
	assert.NotNil(t, hints.NotRequired)
	assert.Nil(t, hints.Forbidden)
	assert.Nil(t, hints.Info)
}

func TestEvaluate_Deterministic(t *testing.T) {
	eng := newTestEngine(t)
	tags := []string{"close up", "smile", "frown", "identity token", "from above"}
	signals := map[string]bool{"lower_body_and_ground_contact_visible": false}

	want := eng.Evaluate(tags, signals)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := eng.Evaluate(tags, signals)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestCategorize(t *testing.T) {
	eng := newTestEngine(t)

	got := eng.Categorize([]string{"Full-Body", "smile", "nonsense", "identity token"})
	assert.Equal(t, []string{"full body"}, got["framing"])
	assert.Equal(t, []string{"smile"}, got["expression"])
	// Unrecognized and tier-3 tags never appear in the category mapping.
	assert.Len(t, got, 2)
}

func TestHintOptions(t *testing.T) {
	eng := newTestEngine(t)

	opts := eng.HintOptions("view_angle")
	assert.Equal(t, "view_angle", opts.Category)
	assert.Contains(t, opts.Options, "front view")
	assert.False(t, opts.AllowsFreeform)

	opts = eng.HintOptions("arm_hand_position")
	assert.True(t, opts.AllowsFreeform)

	opts = eng.HintOptions("no_such_category")
	assert.Equal(t, "no_such_category", opts.Category)
	assert.Empty(t, opts.Options)
	assert.False(t, opts.AllowsFreeform)
}

func TestNew_WithoutPolicy(t *testing.T) {
	docs, err := ruleset.LoadEmbedded()
	require.NoError(t, err)
	docs.Policy = nil

	eng, err := New(Config{Documents: docs, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.False(t, eng.HasPolicy())

	// Without a policy every missing requirement is a hard error and the
	// signal-gated categories lose their softening.
	hints := eng.Evaluate([]string{"front view"}, nil)
	assert.ElementsMatch(t, []string{"gaze", "expression", "mouth_state"}, hints.MissingRequired)
	assert.NotContains(t, hints.PossiblyMissing, "framing")
}

func TestNew_PolicyVersionMismatch(t *testing.T) {
	docs, err := ruleset.LoadEmbedded()
	require.NoError(t, err)
	docs.Policy.TaxonomyVersion = "0.0.1"

	_, err = New(Config{Documents: docs, Logger: testutil.NewTestLogger(t)})
	assert.Error(t, err)
}

func TestNew_NoDocuments(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
