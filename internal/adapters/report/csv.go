package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mikey/mailbox-auditor/internal/core"
	"go.uber.org/zap"
)

// CSVWriter exports audit data as CSV files
type CSVWriter struct {
	logger *zap.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(logger *zap.Logger) *CSVWriter {
	return &CSVWriter{
		logger: logger,
	}
}

// WriteSenderReport writes per-sender metrics to path
func (w *CSVWriter) WriteSenderReport(path string, senders []core.SenderStats) error {
	header := []string{
		"sender", "messages", "unread", "opened",
		"unread_rate", "open_rate", "ignorance_score",
		"tier", "intent", "intent_confidence", "last_received",
	}

	rows := make([][]string, 0, len(senders))
	for _, s := range senders {
		lastReceived := ""
		if !s.LastReceived.IsZero() {
			lastReceived = s.LastReceived.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			s.Address,
			strconv.Itoa(s.MessageCount),
			strconv.Itoa(s.UnreadCount),
			strconv.Itoa(s.OpenedCount),
			formatRate(s.UnreadRate),
			formatRate(s.OpenRate),
			formatRate(s.IgnoranceScore),
			string(s.Tier),
			string(s.Intent),
			formatRate(s.IntentConfidence),
			lastReceived,
		})
	}

	if err := w.writeFile(path, header, rows); err != nil {
		return err
	}
	w.logger.Info("Wrote sender report",
		zap.String("path", path),
		zap.Int("senders", len(senders)))
	return nil
}

// WriteDataset writes the per-message dataset to path
func (w *CSVWriter) WriteDataset(path string, records []core.MessageRecord) error {
	header := []string{
		"id", "sender", "subject", "received_at",
		"is_unread", "is_opened", "category",
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		receivedAt := ""
		if !rec.ReceivedAt.IsZero() {
			receivedAt = rec.ReceivedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			rec.ID,
			rec.Sender,
			rec.Subject,
			receivedAt,
			strconv.FormatBool(rec.IsUnread),
			strconv.FormatBool(rec.IsOpened),
			rec.Category,
		})
	}

	if err := w.writeFile(path, header, rows); err != nil {
		return err
	}
	w.logger.Info("Wrote message dataset",
		zap.String("path", path),
		zap.Int("messages", len(records)))
	return nil
}

// writeFile writes a header and rows to a CSV file, creating parent
// directories as needed
func (w *CSVWriter) writeFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
