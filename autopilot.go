package autopilot

import "github.com/fieldline/go-autopilot/core"

type Config = core.Config

type WebhookConfig = core.WebhookConfig
type QueueConfig = core.QueueConfig
type ConfidenceConfig = core.ConfidenceConfig
type HistoryConfig = core.HistoryConfig
type PlatformConfig = core.PlatformConfig
type ArchiveConfig = core.ArchiveConfig

type Event = core.Event
type Topic = core.Topic
type PipelineContext = core.PipelineContext
type InboundRequest = core.InboundRequest
type InboundResult = core.InboundResult
type AnalysisResult = core.AnalysisResult
type Decision = core.Decision
type DecisionRecord = core.DecisionRecord
type Outcome = core.Outcome
type ArchiveFilter = core.ArchiveFilter
type StatsSnapshot = core.StatsSnapshot
type PerformanceMetrics = core.PerformanceMetrics

type DecisionArchive = core.DecisionArchive
type Notifier = core.Notifier

const (
	TopicJobCreate     = core.TopicJobCreate
	TopicJobUpdate     = core.TopicJobUpdate
	TopicClientCreate  = core.TopicClientCreate
	TopicClientUpdate  = core.TopicClientUpdate
	TopicQuoteCreate   = core.TopicQuoteCreate
	TopicQuoteUpdate   = core.TopicQuoteUpdate
	TopicInvoiceCreate = core.TopicInvoiceCreate
	TopicInvoiceUpdate = core.TopicInvoiceUpdate

	OutcomePending = core.OutcomePending
	OutcomeSuccess = core.OutcomeSuccess
	OutcomeFailure = core.OutcomeFailure
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
