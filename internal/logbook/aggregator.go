package logbook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kioskd/internal/bus"
	"kioskd/internal/infrastructure/logging"
)

const (
	// DefaultMaxFileSize is the size at which writing moves to a new file.
	DefaultMaxFileSize = 5 * 1024 * 1024

	// flushThreshold is the buffered entry count that forces a flush.
	flushThreshold = 100

	// receiveTimeout paces the consume loop so timed flushes and shutdown
	// checks happen even when no entries arrive.
	receiveTimeout = 500 * time.Millisecond

	// bufferHardCap and bufferTrimTo bound memory when the log file is
	// unwritable. Once the retained buffer exceeds the hard cap it is
	// trimmed to the most recent bufferTrimTo entries.
	bufferHardCap = 1000
	bufferTrimTo  = 500

	// recentCap bounds the in-memory ring served to the control API.
	recentCap = 500

	filePrefix     = "kiosk_"
	filePattern    = "kiosk_*.log"
	retentionCheck = 24 * time.Hour
)

// Sink receives every consumed log entry. Implementations must not block;
// slow sinks stall the aggregation loop.
type Sink interface {
	Publish(entry bus.LogEntry)
}

// Deps holds the dependencies required by the aggregator.
type Deps struct {
	// Queue is the shared log queue the aggregator consumes. Required.
	Queue *bus.Queue[bus.LogEntry]

	// Dir is the directory holding the timestamped log files. Created if
	// missing. Required.
	Dir string

	// MaxFileSize overrides the rotation threshold in bytes.
	// Zero means DefaultMaxFileSize.
	MaxFileSize int64

	// RetentionDays bounds the age of log files. Files older than this are
	// pruned at startup and daily thereafter. Zero disables pruning.
	RetentionDays int

	// Logger is the operational logger. Required.
	Logger *logging.Logger
}

// Aggregator consumes the log queue, batches entries into timestamp-named
// disk files with size-based rotation, keeps a bounded ring of recent
// entries for the control API, and fans entries out to registered sinks.
//
// It is the queue's only consumer. Start launches the consume loop; Close
// stops it, drains whatever is still queued and performs a final flush.
type Aggregator struct {
	queue       *bus.Queue[bus.LogEntry]
	dir         string
	maxFileSize int64
	retention   time.Duration
	logger      *logging.Logger

	activeFile string
	buffer     []bus.LogEntry
	lastPrune  time.Time

	mu     sync.Mutex
	recent []bus.LogEntry
	sinks  []Sink

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New creates an aggregator from deps. The log directory is created and the
// first active file name chosen; the consume loop does not run until Start
// is called.
func New(deps Deps) (*Aggregator, error) {
	if deps.Queue == nil {
		return nil, fmt.Errorf("log queue is required")
	}
	if deps.Dir == "" {
		return nil, fmt.Errorf("log directory is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := os.MkdirAll(deps.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxSize := deps.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Aggregator{
		queue:       deps.Queue,
		dir:         deps.Dir,
		maxFileSize: maxSize,
		retention:   time.Duration(deps.RetentionDays) * 24 * time.Hour,
		logger:      deps.Logger.With("component", "logbook"),
		ctx:         ctx,
		cancel:      cancel,
	}
	a.rotate()
	return a, nil
}

// RegisterSink adds a sink that will receive every consumed entry.
// Safe to call before or after Start.
func (a *Aggregator) RegisterSink(s Sink) {
	if s == nil {
		return
	}
	a.mu.Lock()
	a.sinks = append(a.sinks, s)
	a.mu.Unlock()
}

// Start launches the consume loop. It returns immediately.
func (a *Aggregator) Start() {
	a.pruneAged(time.Now())
	a.lastPrune = time.Now()

	a.wg.Add(1)
	go a.run()

	a.logger.Info("log aggregation started", "file", filepath.Base(a.activeFile))
}

// Close stops the consume loop, drains any queued entries and flushes the
// buffer to disk. It is safe to call more than once.
func (a *Aggregator) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		a.wg.Wait()

		for {
			entry, ok := a.queue.TryReceive()
			if !ok {
				break
			}
			a.consume(entry)
		}
		a.closeErr = a.flush()
		a.logger.Info("log aggregation stopped")
	})
	return a.closeErr
}

// Recent returns a copy of the in-memory ring, oldest first. A non-empty
// category restricts the result to entries whose category name matches it
// exactly.
func (a *Aggregator) Recent(category string) []bus.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]bus.LogEntry, 0, len(a.recent))
	for _, e := range a.recent {
		if category != "" && e.Category.String() != category {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ClearRecent empties the in-memory ring. Files on disk are unaffected.
func (a *Aggregator) ClearRecent() {
	a.mu.Lock()
	a.recent = nil
	a.mu.Unlock()
}

func (a *Aggregator) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		default:
		}

		entry, ok := a.queue.Receive(receiveTimeout)
		if ok {
			a.consume(entry)
			if len(a.buffer) >= flushThreshold {
				if err := a.flush(); err != nil {
					a.logger.Error("log flush failed", "error", err)
				}
			}
		} else if len(a.buffer) > 0 {
			if err := a.flush(); err != nil {
				a.logger.Error("log flush failed", "error", err)
			}
		}

		if a.retention > 0 && time.Since(a.lastPrune) >= retentionCheck {
			a.pruneAged(time.Now())
			a.lastPrune = time.Now()
		}
	}
}

// consume buffers an entry for the next flush, records it in the recent
// ring and hands it to every sink.
func (a *Aggregator) consume(entry bus.LogEntry) {
	a.buffer = append(a.buffer, entry)

	a.mu.Lock()
	a.recent = append(a.recent, entry)
	if len(a.recent) > recentCap {
		a.recent = a.recent[len(a.recent)-recentCap:]
	}
	sinks := a.sinks
	a.mu.Unlock()

	for _, s := range sinks {
		s.Publish(entry)
	}
}

// flush appends the buffered entries to the active file, moving to a fresh
// file first when the active one has outgrown the size threshold. On write
// failure the buffer is retained for the next attempt, trimmed to its
// newest entries if it has grown past the hard cap.
func (a *Aggregator) flush() error {
	if len(a.buffer) == 0 {
		return nil
	}

	if info, err := os.Stat(a.activeFile); err == nil && info.Size() > a.maxFileSize {
		a.rotate()
	}

	var sb strings.Builder
	for _, e := range a.buffer {
		fmt.Fprintf(&sb, "%s | %-8s | %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Category, e.Message)
	}

	if err := a.appendToFile(a.activeFile, sb.String()); err != nil {
		if len(a.buffer) > bufferHardCap {
			a.buffer = a.buffer[len(a.buffer)-bufferTrimTo:]
		}
		return fmt.Errorf("failed to write log file: %w", err)
	}

	a.buffer = a.buffer[:0]
	return nil
}

func (a *Aggregator) appendToFile(path, data string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// rotate points writing at a fresh timestamp-named file. The previous file
// is left as-is and never appended again. A numeric suffix keeps names
// unique when rotations land in the same second.
func (a *Aggregator) rotate() {
	stamp := time.Now().Format("20060102_150405")
	target := filepath.Join(a.dir, fmt.Sprintf("%s%s.log", filePrefix, stamp))
	for i := 1; target == a.activeFile || fileExists(target); i++ {
		target = filepath.Join(a.dir, fmt.Sprintf("%s%s_%d.log", filePrefix, stamp, i))
	}
	a.activeFile = target
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// pruneAged removes log files whose modification time is older than the
// retention window. The active file is never pruned.
func (a *Aggregator) pruneAged(now time.Time) {
	if a.retention <= 0 {
		return
	}

	matches, err := filepath.Glob(filepath.Join(a.dir, filePattern))
	if err != nil {
		return
	}
	cutoff := now.Add(-a.retention)
	for _, m := range matches {
		if m == a.activeFile {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			a.logger.Error("failed to prune log file", "file", filepath.Base(m), "error", err)
			continue
		}
		a.logger.Info("pruned aged log file", "file", filepath.Base(m))
	}
}
