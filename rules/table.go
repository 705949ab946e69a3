package rules

import (
	"time"

	"github.com/fieldline/go-autopilot/features"
)

// Action identifiers the default table dispatches. The actions package
// registers an executor for each.
const (
	ActionNotifyEmergencyTeam       = "notify_emergency_team"
	ActionSuggestPriorityScheduling = "suggest_priority_scheduling"
	ActionNotifyManagement          = "notify_management"
	ActionAssignSeniorTechnician    = "assign_senior_technician"
	ActionSendOnCallAlert           = "send_on_call_alert"
	ActionSuggestAssignment         = "suggest_assignment"
	ActionApplyWeekendProtocol      = "apply_weekend_protocol"
	ActionSendWelcomeMessage        = "send_welcome_message"
)

// DefaultTable is the rule set loaded at startup. Order matters: equal
// priorities resolve ties by position in this table.
func DefaultTable() []Rule {
	return []Rule{
		{
			Name:     "emergency_response",
			Priority: 100,
			Conditions: []Condition{
				FlagCondition{Feature: features.KeyHasEmergencyKeywords},
			},
			Actions: []string{ActionNotifyEmergencyTeam, ActionSuggestPriorityScheduling},
		},
		{
			Name:     "high_value_job",
			Priority: 80,
			Conditions: []Condition{
				ThresholdCondition{Feature: features.KeyTotal, Min: 5000},
			},
			Actions: []string{ActionNotifyManagement, ActionAssignSeniorTechnician},
		},
		{
			Name:     "after_hours_intake",
			Priority: 60,
			Conditions: []Condition{
				FlagCondition{Feature: features.KeyIsAfterHours},
				FlagCondition{Feature: features.KeyIsWeekend},
			},
			Actions: []string{ActionSendOnCallAlert},
		},
		{
			Name:     "unassigned_job",
			Priority: 50,
			Conditions: []Condition{
				FlagCondition{Feature: features.KeyUnassigned},
			},
			Actions: []string{ActionSuggestAssignment},
		},
		{
			Name:     "weekend_schedule",
			Priority: 40,
			Conditions: []Condition{
				DayOfWeekCondition{
					Feature: features.KeyDayOfWeek,
					Days:    []time.Weekday{time.Saturday, time.Sunday},
				},
			},
			Actions: []string{ActionApplyWeekendProtocol},
		},
		{
			Name:     "new_client_welcome",
			Priority: 30,
			Conditions: []Condition{
				KeywordCondition{
					Feature:  features.KeyTopic,
					Keywords: []string{"client_create"},
				},
			},
			Actions: []string{ActionSendWelcomeMessage},
		},
	}
}
