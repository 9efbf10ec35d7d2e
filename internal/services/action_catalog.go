package services

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
)

type applicability uint8

const (
	notApplicable applicability = iota + 1
	applicable
)

// applicabilityTable must list every (action, kind) cell. A zero cell means the
// table was not updated for a new action or kind, and init panics on it.
var applicabilityTable = map[models.ModerationAction]map[models.ReportTargetKind]applicability{
	models.ActionNone: {
		models.KindUser: applicable, models.KindNovel: applicable, models.KindChapter: applicable,
		models.KindComment: applicable, models.KindForumPost: applicable, models.KindForumComment: applicable,
	},
	models.ActionHideResource: {
		models.KindUser: notApplicable, models.KindNovel: notApplicable, models.KindChapter: notApplicable,
		models.KindComment: applicable, models.KindForumPost: applicable, models.KindForumComment: applicable,
	},
	models.ActionDeleteResource: {
		models.KindUser: notApplicable, models.KindNovel: notApplicable, models.KindChapter: notApplicable,
		models.KindComment: applicable, models.KindForumPost: applicable, models.KindForumComment: applicable,
	},
	models.ActionWarnAuthor: {
		models.KindUser: applicable, models.KindNovel: applicable, models.KindChapter: applicable,
		models.KindComment: applicable, models.KindForumPost: applicable, models.KindForumComment: applicable,
	},
	models.ActionSuspendAuthor: {
		models.KindUser: applicable, models.KindNovel: applicable, models.KindChapter: applicable,
		models.KindComment: applicable, models.KindForumPost: applicable, models.KindForumComment: applicable,
	},
	models.ActionBanAuthor: {
		models.KindUser: applicable, models.KindNovel: applicable, models.KindChapter: applicable,
		models.KindComment: applicable, models.KindForumPost: applicable, models.KindForumComment: applicable,
	},
}

func init() {
	if err := checkApplicabilityTable(); err != nil {
		panic(err)
	}
}

func checkApplicabilityTable() error {
	for _, action := range models.AllActions {
		row, ok := applicabilityTable[action]
		if !ok {
			return fmt.Errorf("action catalog: no row for action %q", action)
		}
		for _, kind := range models.AllKinds {
			if row[kind] == 0 {
				return fmt.Errorf("action catalog: no cell for (%s, %s)", action, kind)
			}
		}
	}
	return nil
}

// IsApplicable reports whether action may be taken on a report of kind.
func IsApplicable(action models.ModerationAction, kind models.ReportTargetKind) bool {
	return applicabilityTable[action][kind] == applicable
}

// EffectType classifies what resolving with an action does outside the report.
type EffectType int

const (
	NoEffect EffectType = iota
	InvokeDestroy
	NotifyAuthor
)

// WarningLevel orders author sanctions by severity.
type WarningLevel int

const (
	LevelWarning WarningLevel = iota + 1
	LevelSuspension
	LevelBan
)

func (l WarningLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelSuspension:
		return "suspension"
	case LevelBan:
		return "ban"
	}
	return "none"
}

type Effect struct {
	Type  EffectType
	Mode  targets.DestroyMode
	Level WarningLevel
}

var effects = map[models.ModerationAction]Effect{
	models.ActionNone:           {Type: NoEffect},
	models.ActionHideResource:   {Type: InvokeDestroy, Mode: targets.ModeHide},
	models.ActionDeleteResource: {Type: InvokeDestroy, Mode: targets.ModeDelete},
	models.ActionWarnAuthor:     {Type: NotifyAuthor, Level: LevelWarning},
	models.ActionSuspendAuthor:  {Type: NotifyAuthor, Level: LevelSuspension},
	models.ActionBanAuthor:      {Type: NotifyAuthor, Level: LevelBan},
}

// EffectFor classifies action. Unknown actions have no effect.
func EffectFor(action models.ModerationAction) Effect {
	return effects[action]
}
