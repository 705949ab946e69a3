package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fieldline/go-autopilot/core"
)

// DecisionStore archives processed decision records in SQL. It backs the
// core.DecisionArchive contract; the in-memory history ring remains the
// scoring source of truth.
type DecisionStore struct {
	db   *bun.DB
	repo repository.Repository[*decisionRow]
	now  func() time.Time
}

func NewDecisionStore(db *bun.DB) (*DecisionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*decisionRow](db, decisionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid decision repository wiring: %w", err)
		}
	}
	return &DecisionStore{db: db, repo: repo, now: time.Now}, nil
}

func (s *DecisionStore) Save(ctx context.Context, record core.DecisionRecord) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: decision store is not configured")
	}
	id := strings.TrimSpace(record.ID)
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := record.Timestamp.UTC()
	if timestamp.IsZero() {
		timestamp = s.now().UTC()
	}
	outcome := string(record.Outcome)
	if outcome == "" {
		outcome = string(core.OutcomePending)
	}

	row := &decisionRow{
		ID:         id,
		Topic:      string(record.Event.Topic),
		ItemID:     record.Event.ItemID,
		UserID:     record.Event.UserID,
		UserName:   record.Event.UserName,
		OccurredAt: timestamp,
		Decisions:  decisionsToEntries(record.Decisions),
		Confidence: record.Confidence,
		Features:   featuresToMap(record.Features),
		Outcome:    outcome,
	}

	_, err := s.repo.Create(ctx, row)
	return err
}

func (s *DecisionStore) SaveOutcome(ctx context.Context, recordID string, outcome core.Outcome) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: decision store is not configured")
	}
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return fmt.Errorf("sqlstore: record id is required")
	}
	res, err := s.db.NewUpdate().
		Model((*decisionRow)(nil)).
		Set("outcome = ?", string(outcome)).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", recordID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("sqlstore: decision record %q not found", recordID)
	}
	return nil
}

func (s *DecisionStore) List(ctx context.Context, filter core.ArchiveFilter) ([]core.DecisionRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: decision store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("occurred_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if topic := strings.TrimSpace(string(filter.Topic)); topic != "" {
		selectors = append(selectors, repository.SelectBy("topic", "=", topic))
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		selectors = append(selectors, repository.SelectBy("user_id", "=", userID))
	}
	if outcome := strings.TrimSpace(string(filter.Outcome)); outcome != "" {
		selectors = append(selectors, repository.SelectBy("outcome", "=", outcome))
	}

	rows, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	records := make([]core.DecisionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToDomain(row))
	}
	return records, nil
}

// Prune removes archived records older than the retention cutoff and
// returns how many rows were deleted.
func (s *DecisionStore) Prune(ctx context.Context, retention time.Duration) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: decision store is not configured")
	}
	if retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-retention)
	res, err := s.db.NewDelete().
		Model((*decisionRow)(nil)).
		Where("occurred_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func decisionsToEntries(decisions []core.Decision) []decisionEntry {
	entries := make([]decisionEntry, 0, len(decisions))
	for _, decision := range decisions {
		entries = append(entries, decisionEntry{
			Rule:      decision.Rule,
			Priority:  decision.Priority,
			Actions:   append([]string(nil), decision.Actions...),
			Reasoning: decision.Reasoning,
		})
	}
	return entries
}

func featuresToMap(set core.FeatureSet) map[string]any {
	out := make(map[string]any, len(set))
	for key, value := range set {
		out[key] = value
	}
	return out
}

func rowToDomain(row *decisionRow) core.DecisionRecord {
	if row == nil {
		return core.DecisionRecord{}
	}
	decisions := make([]core.Decision, 0, len(row.Decisions))
	for _, entry := range row.Decisions {
		decisions = append(decisions, core.Decision{
			Rule:      entry.Rule,
			Priority:  entry.Priority,
			Actions:   append([]string(nil), entry.Actions...),
			Reasoning: entry.Reasoning,
		})
	}
	features := make(core.FeatureSet, len(row.Features))
	for key, value := range row.Features {
		features[key] = value
	}
	return core.DecisionRecord{
		ID:        row.ID,
		Timestamp: row.OccurredAt,
		Event: core.Event{
			Topic:      core.Topic(row.Topic),
			ItemID:     row.ItemID,
			UserID:     row.UserID,
			UserName:   row.UserName,
			OccurredAt: row.OccurredAt,
		},
		Decisions:  decisions,
		Confidence: row.Confidence,
		Features:   features,
		Outcome:    core.Outcome(row.Outcome),
	}
}

var _ core.DecisionArchive = (*DecisionStore)(nil)
