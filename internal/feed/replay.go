package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"RiskSentinel/internal/model"
)

// ReplayFeed replays JSON-lines ticks such as
//
//	{"symbol":"AAPL","price":175.3,"timestamp":"2024-01-02T15:04:05Z"}
//
// Malformed lines are logged and skipped. Each Subscribe reopens the source.
type ReplayFeed struct {
	open   func() (io.ReadCloser, error)
	name   string
	delay  time.Duration
	logger *zap.Logger
}

// NewReplayFile replays ticks from a file, pausing delay between ticks.
func NewReplayFile(path string, delay time.Duration, logger *zap.Logger) *ReplayFeed {
	return &ReplayFeed{
		open:   func() (io.ReadCloser, error) { return os.Open(path) },
		name:   "replay:" + path,
		delay:  delay,
		logger: logger,
	}
}

// NewReplayReader replays ticks from a reader; open is called on every Subscribe.
func NewReplayReader(open func() io.Reader, logger *zap.Logger) *ReplayFeed {
	return &ReplayFeed{
		open:   func() (io.ReadCloser, error) { return io.NopCloser(open()), nil },
		name:   "replay",
		logger: logger,
	}
}

func (f *ReplayFeed) Name() string { return f.name }

type rawTick struct {
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Timestamp string   `json:"timestamp"`
}

// ParseTick decodes one JSON-lines record. Price validity is left to the store.
func ParseTick(line string) (model.Tick, error) {
	var raw rawTick
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return model.Tick{}, errors.Wrap(err, "decode tick")
	}
	if raw.Symbol == "" {
		return model.Tick{}, errors.New("tick without symbol")
	}
	if raw.Price == nil {
		return model.Tick{}, errors.Errorf("tick %s without price", raw.Symbol)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return model.Tick{}, errors.Wrapf(err, "tick %s timestamp", raw.Symbol)
	}
	return model.Tick{Symbol: raw.Symbol, Price: *raw.Price, Timestamp: ts}, nil
}

// Subscribe streams ticks in file order and closes the channel at EOF.
func (f *ReplayFeed) Subscribe(ctx context.Context) (<-chan model.Tick, error) {
	rc, err := f.open()
	if err != nil {
		return nil, errors.Wrap(err, "open replay source")
	}
	out := make(chan model.Tick)
	go func() {
		defer close(out)
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			tick, err := ParseTick(line)
			if err != nil {
				f.logger.Warn("skip malformed tick", zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}
			if f.delay > 0 {
				select {
				case <-time.After(f.delay):
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			f.logger.Error("replay read failed", zap.String("feed", f.name), zap.Error(err))
		}
	}()
	return out, nil
}
