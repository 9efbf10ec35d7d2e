package services

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/stretchr/testify/assert"
)

func TestApplicabilityTableIsComplete(t *testing.T) {
	assert.NoError(t, checkApplicabilityTable())
}

func TestIsApplicable(t *testing.T) {
	assert.False(t, IsApplicable(models.ActionDeleteResource, models.KindUser))
	assert.False(t, IsApplicable(models.ActionHideResource, models.KindNovel))
	assert.False(t, IsApplicable(models.ActionDeleteResource, models.KindChapter))
	assert.True(t, IsApplicable(models.ActionDeleteResource, models.KindComment))
	assert.True(t, IsApplicable(models.ActionHideResource, models.KindForumComment))
	assert.False(t, IsApplicable("shadowban", models.KindComment))

	for _, kind := range models.AllKinds {
		assert.True(t, IsApplicable(models.ActionNone, kind), kind)
		assert.True(t, IsApplicable(models.ActionBanAuthor, kind), kind)
	}
}

func TestDestroyActionsOnlyApplyToDestroyableKinds(t *testing.T) {
	for _, action := range models.AllActions {
		if EffectFor(action).Type != InvokeDestroy {
			continue
		}
		for _, kind := range models.AllKinds {
			_, destroyable := targets.Destroyable(kind)
			assert.Equal(t, destroyable, IsApplicable(action, kind), "%s on %s", action, kind)
		}
	}
}

func TestEffectFor(t *testing.T) {
	assert.Equal(t, Effect{Type: NoEffect}, EffectFor(models.ActionNone))
	assert.Equal(t, Effect{Type: InvokeDestroy, Mode: targets.ModeHide}, EffectFor(models.ActionHideResource))
	assert.Equal(t, Effect{Type: InvokeDestroy, Mode: targets.ModeDelete}, EffectFor(models.ActionDeleteResource))
	assert.Equal(t, Effect{Type: NotifyAuthor, Level: LevelSuspension}, EffectFor(models.ActionSuspendAuthor))
	assert.Equal(t, "ban", EffectFor(models.ActionBanAuthor).Level.String())
}
