// Package csvlog appends the agent's tick, decision, and order rows to CSV files.
package csvlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05.000"
	orderTimestamp = "2006-01-02 15:04:05"

	// NotAvailable marks statistics columns before the window first fills.
	NotAvailable = "N/A"
)

// writer is a mutex-guarded append-only CSV file. The header row is written
// only when the file does not already exist.
type writer struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
}

func newWriter(path string, header []string) (*writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	w := &writer{file: file, csv: csv.NewWriter(file)}
	if fresh {
		if err := w.append(header); err != nil {
			file.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *writer) append(row []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(row); err != nil {
		return err
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *writer) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	w.csv.Flush()
	err := w.file.Close()
	w.file = nil
	return err
}

// TickLog records every ingested tick.
type TickLog struct{ w *writer }

// OpenTickLog creates or appends to the raw tick file at path.
func OpenTickLog(path string) (*TickLog, error) {
	w, err := newWriter(path, []string{"date", "time", "symbol", "price"})
	if err != nil {
		return nil, fmt.Errorf("open tick log: %w", err)
	}
	return &TickLog{w: w}, nil
}

// Append writes one row for the tick.
func (l *TickLog) Append(tk signal.Tick) error {
	return l.w.append([]string{
		tk.Ts.Format(dateLayout),
		tk.Ts.Format(timeLayout),
		tk.Symbol,
		fmt.Sprintf("%.5f", tk.Price),
	})
}

// Close flushes and closes the file.
func (l *TickLog) Close() error { return l.w.close() }

// DecisionLog records one row per scheduler evaluation: the window contents
// with variance, slope, and trend once the window is full, and a fill-state
// marker with N/A statistics before that.
type DecisionLog struct{ w *writer }

// OpenDecisionLog creates or appends to the aggregated file at path.
func OpenDecisionLog(path string) (*DecisionLog, error) {
	w, err := newWriter(path, []string{"date", "time", "symbol", "prices", "variance", "slope", "trend"})
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	return &DecisionLog{w: w}, nil
}

// AppendPending writes the pre-fill row for a window holding have of want prices.
func (l *DecisionLog) AppendPending(ts time.Time, symbol string, have, want int) error {
	return l.w.append([]string{
		ts.Format(dateLayout),
		ts.Format(timeLayout),
		symbol,
		fmt.Sprintf("window %d/%d", have, want),
		NotAvailable,
		NotAvailable,
		NotAvailable,
	})
}

// AppendSnapshot writes the evaluated row for a full window.
func (l *DecisionLog) AppendSnapshot(ts time.Time, symbol string, prices []float64, snap signal.TrendSnapshot) error {
	joined := make([]string, len(prices))
	for i, p := range prices {
		joined[i] = fmt.Sprintf("%.5f", p)
	}
	return l.w.append([]string{
		ts.Format(dateLayout),
		ts.Format(timeLayout),
		symbol,
		strings.Join(joined, ";"),
		fmt.Sprintf("%.6f", snap.Variance),
		fmt.Sprintf("%.6f", snap.Slope),
		string(snap.Trend),
	})
}

// Close flushes and closes the file.
func (l *DecisionLog) Close() error { return l.w.close() }

// OrderLog records one row per successful order submission.
type OrderLog struct{ w *writer }

// OpenOrderLog creates or appends to the order file at path.
func OpenOrderLog(path string) (*OrderLog, error) {
	w, err := newWriter(path, []string{"Ticket", "Order", "Time", "Symbol", "Type", "Volume", "Price", "Profit", "Comment"})
	if err != nil {
		return nil, fmt.Errorf("open order log: %w", err)
	}
	return &OrderLog{w: w}, nil
}

// Append writes one row for a completed submission. seq is the scheduler's
// running order attempt number.
func (l *OrderLog) Append(ticket int64, seq int, ts time.Time, symbol string, side execution.Side, volume, price, profit float64, comment string) error {
	return l.w.append([]string{
		fmt.Sprintf("%d", ticket),
		fmt.Sprintf("%d", seq),
		ts.Format(orderTimestamp),
		symbol,
		string(side),
		fmt.Sprintf("%g", volume),
		fmt.Sprintf("%.5f", price),
		fmt.Sprintf("%.2f", profit),
		comment,
	})
}

// Close flushes and closes the file.
func (l *OrderLog) Close() error { return l.w.close() }
