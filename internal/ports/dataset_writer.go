package ports

import (
	"github.com/mikey/mailbox-auditor/internal/core"
)

// DatasetWriter defines the interface for exporting audit data to flat files
type DatasetWriter interface {
	// WriteSenderReport writes per-sender metrics to path
	WriteSenderReport(path string, senders []core.SenderStats) error

	// WriteDataset writes the per-message dataset to path
	WriteDataset(path string, records []core.MessageRecord) error
}
