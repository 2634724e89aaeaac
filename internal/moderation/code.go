package moderation

import (
	"fmt"
	"math/rand/v2"
	"time"

	"warden/internal/models"
	"warden/internal/observability"

	"gorm.io/gorm"
)

// Decision codes are 6-digit numeric strings shown to affected users. They
// are a display aid, not a key: the check-then-insert race and the timestamp
// fallback may occasionally produce duplicates, which is acceptable.
const (
	decisionCodeSpace    = 1_000_000
	decisionCodeAttempts = 5
)

// generateDecisionCode picks a 6-digit code not already present among
// existing decisions. After exhausting its attempts it falls back to a
// timestamp-derived code. A failing lookup treats the candidate as
// available; code generation never blocks an action.
func generateDecisionCode(tx *gorm.DB) string {
	for i := 0; i < decisionCodeAttempts; i++ {
		code := fmt.Sprintf("%06d", rand.IntN(decisionCodeSpace))

		var count int64
		err := tx.Model(&models.ModerationDecision{}).
			Where("decision_code = ?", code).
			Count(&count).Error
		if err != nil || count == 0 {
			return code
		}
	}

	observability.DecisionCodeFallbacks.Inc()
	return fmt.Sprintf("%06d", time.Now().UnixNano()%decisionCodeSpace)
}
