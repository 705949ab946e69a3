package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessEventMessage]  = (*ProcessEventCommand)(nil)
	_ gocmd.Commander[ReportOutcomeMessage] = (*ReportOutcomeCommand)(nil)
	_ gocmd.Commander[FlushArchiveMessage]  = (*FlushArchiveCommand)(nil)
	_ gocmd.Commander[PruneArchiveMessage]  = (*PruneArchiveCommand)(nil)
)
