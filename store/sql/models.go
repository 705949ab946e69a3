package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type decisionRow struct {
	bun.BaseModel `bun:"table:autopilot_decisions,alias:ad"`

	ID         string          `bun:"id,pk"`
	Topic      string          `bun:"topic,notnull"`
	ItemID     string          `bun:"item_id,notnull"`
	UserID     string          `bun:"user_id"`
	UserName   string          `bun:"user_name"`
	OccurredAt time.Time       `bun:"occurred_at,nullzero,notnull"`
	Decisions  []decisionEntry `bun:"decisions,type:jsonb,notnull"`
	Confidence float64         `bun:"confidence,notnull"`
	Features   map[string]any  `bun:"features,type:jsonb,notnull"`
	Outcome    string          `bun:"outcome,notnull"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// decisionEntry is the JSON shape one matched rule takes inside the
// decisions column.
type decisionEntry struct {
	Rule      string   `json:"rule"`
	Priority  int      `json:"priority"`
	Actions   []string `json:"actions"`
	Reasoning string   `json:"reasoning,omitempty"`
}
