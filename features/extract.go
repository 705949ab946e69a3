package features

import (
	"strings"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

// Attribute names shared with the rule table and the confidence scorer.
const (
	KeyTopic                = "topic"
	KeyEntityKind           = "entity_kind"
	KeyUserID               = "user_id"
	KeyUserName             = "user_name"
	KeyTitle                = "title"
	KeyDescription          = "description"
	KeyJobStatus            = "job_status"
	KeyClientName           = "client_name"
	KeyAssignee             = "assignee"
	KeyTotal                = "total"
	KeyCreator              = "creator"
	KeyCreatorResolved      = "creator_resolved"
	KeyEnriched             = "enriched"
	KeyHourOfDay            = "hour_of_day"
	KeyDayOfWeek            = "day_of_week"
	KeyIsWeekend            = "is_weekend"
	KeyIsAfterHours         = "is_after_hours"
	KeyHasEmergencyKeywords = "has_emergency_keywords"
	KeyHighValue            = "high_value"
	KeyUnassigned           = "unassigned"
	KeyCurrentCapacity      = "current_capacity"
	KeyAvailableTechnicians = "available_technicians"
)

// business hours run 08:00 to 17:59 local to the evaluation clock
const (
	businessHoursStart = 8
	businessHoursEnd   = 18
)

const highValueThreshold = 5000.0

// EmergencyKeywords is the fixed list matched case-insensitively against an
// entity's title and description.
var EmergencyKeywords = []string{
	"emergency",
	"urgent",
	"leak",
	"flood",
	"no heat",
	"no power",
	"gas smell",
	"burst pipe",
}

// Extract derives the attribute set for one processing attempt. Temporal
// attributes use the supplied clock so a retried event reflects the time of
// the attempt, not of receipt.
func Extract(data core.EnrichedData, pctx core.PipelineContext, now time.Time) core.FeatureSet {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	set := core.FeatureSet{
		KeyTopic:                string(data.Event.Topic),
		KeyEntityKind:           string(data.Event.Topic.EntityKind()),
		KeyUserID:               strings.TrimSpace(data.Event.UserID),
		KeyUserName:             strings.TrimSpace(data.Event.UserName),
		KeyEnriched:             data.Enriched,
		KeyCreator:              strings.TrimSpace(data.Creator),
		KeyCreatorResolved:      data.CreatorResolved,
		KeyCurrentCapacity:      float64(pctx.CurrentCapacity),
		KeyAvailableTechnicians: float64(len(pctx.AvailableTechnicians)),
	}

	title := strings.TrimSpace(data.Entity.Title)
	description := strings.TrimSpace(data.Entity.Description)
	set[KeyTitle] = title
	set[KeyDescription] = description
	set[KeyJobStatus] = strings.TrimSpace(data.Entity.Status)
	set[KeyClientName] = strings.TrimSpace(data.Entity.ClientName)
	set[KeyAssignee] = strings.TrimSpace(data.Entity.Assignee)
	set[KeyTotal] = data.Entity.Total

	hour := now.Hour()
	weekday := now.Weekday()
	set[KeyHourOfDay] = float64(hour)
	set[KeyDayOfWeek] = weekday.String()
	set[KeyIsWeekend] = weekday == time.Saturday || weekday == time.Sunday
	set[KeyIsAfterHours] = hour < businessHoursStart || hour >= businessHoursEnd

	set[KeyHasEmergencyKeywords] = containsEmergencyKeyword(title + " " + description)
	set[KeyHighValue] = data.Entity.Total >= highValueThreshold
	set[KeyUnassigned] = data.Enriched && strings.TrimSpace(data.Entity.Assignee) == ""

	return set
}

func containsEmergencyKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range EmergencyKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
