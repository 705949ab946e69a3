package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldline/go-autopilot/core"
	"github.com/fieldline/go-autopilot/features"
	"github.com/fieldline/go-autopilot/rules"
)

// Notification channels the builtin actions publish to.
const (
	ChannelEmergency  = "emergency"
	ChannelManagement = "management"
	ChannelOnCall     = "on-call"
	ChannelDispatch   = "dispatch"
	ChannelClients    = "clients"
)

// DefaultRegistry wires an executor for every action the default rule table
// references. Notification failures are logged by the dispatcher and not
// retried.
func DefaultRegistry(notifier core.Notifier) *Registry {
	return NewRegistry(
		notifyAction(rules.ActionNotifyEmergencyTeam, ChannelEmergency, notifier, func(input Input) string {
			return fmt.Sprintf("Emergency reported on %s %q by %s",
				input.Features.Text(features.KeyEntityKind),
				entityLabel(input),
				actorLabel(input))
		}),
		notifyAction(rules.ActionNotifyManagement, ChannelManagement, notifier, func(input Input) string {
			return fmt.Sprintf("High-value %s %q at $%.2f needs review",
				input.Features.Text(features.KeyEntityKind),
				entityLabel(input),
				input.Features.Number(features.KeyTotal))
		}),
		notifyAction(rules.ActionSendOnCallAlert, ChannelOnCall, notifier, func(input Input) string {
			return fmt.Sprintf("After-hours activity on %s %q", input.Event.Topic, entityLabel(input))
		}),
		notifyAction(rules.ActionSendWelcomeMessage, ChannelClients, notifier, func(input Input) string {
			return fmt.Sprintf("Welcome aboard, %s", entityLabel(input))
		}),
		ActionFunc{ActionName: rules.ActionSuggestPriorityScheduling, Fn: suggestPriorityScheduling},
		ActionFunc{ActionName: rules.ActionAssignSeniorTechnician, Fn: suggestTechnician("senior")},
		ActionFunc{ActionName: rules.ActionSuggestAssignment, Fn: suggestTechnician("next_available")},
		ActionFunc{ActionName: rules.ActionApplyWeekendProtocol, Fn: applyWeekendProtocol},
	)
}

func notifyAction(name string, channel string, notifier core.Notifier, message func(Input) string) Action {
	return ActionFunc{
		ActionName: name,
		Fn: func(ctx context.Context, input Input) (map[string]any, error) {
			body := message(input)
			if notifier != nil {
				if err := notifier.Send(ctx, channel, body); err != nil {
					return nil, err
				}
			}
			return map[string]any{
				"channel": channel,
				"message": body,
			}, nil
		},
	}
}

func suggestPriorityScheduling(_ context.Context, input Input) (map[string]any, error) {
	slot := "next_business_hour"
	if input.Features.Bool(features.KeyHasEmergencyKeywords) {
		slot = "immediate"
	}
	return map[string]any{
		"suggestion": "priority_schedule",
		"slot":       slot,
		"item_id":    input.Event.ItemID,
	}, nil
}

func suggestTechnician(pool string) func(ctx context.Context, input Input) (map[string]any, error) {
	return func(_ context.Context, input Input) (map[string]any, error) {
		result := map[string]any{
			"suggestion": "assign_technician",
			"pool":       pool,
			"item_id":    input.Event.ItemID,
		}
		if len(input.Context.AvailableTechnicians) > 0 {
			result["candidate"] = strings.TrimSpace(input.Context.AvailableTechnicians[0])
		}
		return result, nil
	}
}

func applyWeekendProtocol(_ context.Context, input Input) (map[string]any, error) {
	return map[string]any{
		"protocol": "weekend",
		"item_id":  input.Event.ItemID,
		"day":      input.Features.Text(features.KeyDayOfWeek),
	}, nil
}

func entityLabel(input Input) string {
	if title := strings.TrimSpace(input.Data.Entity.Title); title != "" {
		return title
	}
	if client := strings.TrimSpace(input.Data.Entity.ClientName); client != "" {
		return client
	}
	return input.Event.ItemID
}

func actorLabel(input Input) string {
	if creator := strings.TrimSpace(input.Data.Creator); creator != "" && input.Data.CreatorResolved {
		return creator
	}
	if name := strings.TrimSpace(input.Event.UserName); name != "" {
		return name
	}
	return "Unknown"
}
