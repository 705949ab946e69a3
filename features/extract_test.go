package features

import (
	"testing"
	"time"

	"github.com/fieldline/go-autopilot/core"
)

func enrichedJob(title string, description string) core.EnrichedData {
	return core.EnrichedData{
		Event: core.Event{
			Topic:    core.TopicJobCreate,
			ItemID:   "job-1",
			UserID:   "u-austin",
			UserName: "Austin",
		},
		Entity: core.EntitySnapshot{
			Kind:        "job",
			Title:       title,
			Description: description,
			Status:      "open",
			ClientName:  "Acme Plumbing",
			Total:       1200,
		},
		Enriched:        true,
		Creator:         "Austin",
		CreatorResolved: true,
	}
}

func TestExtractDetectsEmergencyKeywords(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	set := Extract(enrichedJob("Emergency leak in basement", ""), core.PipelineContext{}, now)
	if !set.Bool(KeyHasEmergencyKeywords) {
		t.Fatalf("expected emergency keyword match")
	}

	set = Extract(enrichedJob("URGENT: water everywhere", ""), core.PipelineContext{}, now)
	if !set.Bool(KeyHasEmergencyKeywords) {
		t.Fatalf("expected case-insensitive keyword match")
	}

	set = Extract(enrichedJob("Routine maintenance visit", "quarterly filter swap"), core.PipelineContext{}, now)
	if set.Bool(KeyHasEmergencyKeywords) {
		t.Fatalf("expected no keyword match for routine work")
	}
}

func TestExtractTemporalFeaturesUseEvaluationClock(t *testing.T) {
	saturdayNight := time.Date(2025, 6, 14, 22, 30, 0, 0, time.UTC)
	set := Extract(enrichedJob("Routine visit", ""), core.PipelineContext{}, saturdayNight)
	if set.Number(KeyHourOfDay) != 22 {
		t.Fatalf("expected hour 22, got %v", set.Number(KeyHourOfDay))
	}
	if set.Text(KeyDayOfWeek) != "Saturday" {
		t.Fatalf("expected Saturday, got %q", set.Text(KeyDayOfWeek))
	}
	if !set.Bool(KeyIsWeekend) || !set.Bool(KeyIsAfterHours) {
		t.Fatalf("expected weekend after-hours flags, got %#v", set)
	}

	tuesdayMorning := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	set = Extract(enrichedJob("Routine visit", ""), core.PipelineContext{}, tuesdayMorning)
	if set.Bool(KeyIsWeekend) || set.Bool(KeyIsAfterHours) {
		t.Fatalf("expected business-hours weekday, got %#v", set)
	}
}

func TestExtractDefaultsNeutralValuesWithoutEnrichment(t *testing.T) {
	data := core.EnrichedData{
		Event: core.Event{Topic: core.Topic("SOMETHING_ELSE"), ItemID: "x-1"},
	}
	set := Extract(data, core.PipelineContext{}, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	if set.Text(KeyTitle) != "" || set.Text(KeyClientName) != "" || set.Text(KeyJobStatus) != "" {
		t.Fatalf("expected empty text defaults, got %#v", set)
	}
	if set.Number(KeyTotal) != 0 {
		t.Fatalf("expected zero total, got %v", set.Number(KeyTotal))
	}
	if set.Bool(KeyEnriched) || set.Bool(KeyCreatorResolved) || set.Bool(KeyHasEmergencyKeywords) {
		t.Fatalf("expected false boolean defaults, got %#v", set)
	}
	if set.Bool(KeyUnassigned) {
		t.Fatalf("unenriched data must not report unassigned")
	}
}

func TestExtractContextAndValueFeatures(t *testing.T) {
	data := enrichedJob("Replace water heater", "")
	data.Entity.Total = 7200
	data.Entity.Assignee = ""
	pctx := core.PipelineContext{
		CurrentCapacity:      4,
		AvailableTechnicians: []string{"Dana", "Priya", "Marcus"},
	}
	set := Extract(data, pctx, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	if !set.Bool(KeyHighValue) {
		t.Fatalf("expected high-value flag at total 7200")
	}
	if !set.Bool(KeyUnassigned) {
		t.Fatalf("expected unassigned flag for enriched job with no assignee")
	}
	if set.Number(KeyCurrentCapacity) != 4 || set.Number(KeyAvailableTechnicians) != 3 {
		t.Fatalf("expected context features, got %#v", set)
	}
}
