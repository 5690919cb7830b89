package filestore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

// HistoryStore appends one "<unix>, <usd>" line per cycle to portfolio.csv.
type HistoryStore struct {
	path string
	mu   sync.Mutex
}

var _ port.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a HistoryStore rooted at dataPath.
func NewHistoryStore(dataPath string) *HistoryStore {
	return &HistoryStore{path: filepath.Join(dataPath, HistoryFileName)}
}

// Append adds a line and syncs the file.
func (h *HistoryStore) Append(_ context.Context, point entity.HistoryPoint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history %s: %w", h.path, err)
	}
	if _, err := fmt.Fprintf(f, "%d, %s\n", point.Timestamp, point.ValueUSD.String()); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync history: %w", err)
	}
	return f.Close()
}

// Last returns the final line of the file.
func (h *HistoryStore) Last(ctx context.Context) (entity.HistoryPoint, bool, error) {
	points, err := h.List(ctx, 1)
	if err != nil || len(points) == 0 {
		return entity.HistoryPoint{}, false, err
	}
	return points[0], true, nil
}

// List returns up to limit most recent points, oldest first.
func (h *HistoryStore) List(_ context.Context, limit int) ([]entity.HistoryPoint, error) {
	h.mu.Lock()
	data, ok, err := utils.ReadFileIfExists(h.path)
	h.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", h.path, err)
	}
	if !ok {
		return nil, nil
	}

	var points []entity.HistoryPoint
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		point, err := parseHistoryLine(line)
		if err != nil {
			return nil, fmt.Errorf("history %s line %d: %w", h.path, lineNo, err)
		}
		points = append(points, point)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}

	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points, nil
}

func parseHistoryLine(line string) (entity.HistoryPoint, error) {
	ts, value, found := strings.Cut(line, ",")
	if !found {
		return entity.HistoryPoint{}, fmt.Errorf("expected \"<unix>, <usd>\", got %q", line)
	}
	timestamp, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return entity.HistoryPoint{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	usd, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return entity.HistoryPoint{}, fmt.Errorf("invalid value %q: %w", value, err)
	}
	return entity.HistoryPoint{Timestamp: timestamp, ValueUSD: usd}, nil
}
