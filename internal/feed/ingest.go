package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/BRO3886/opensearch-resource-store/internal/queue"
	"github.com/BRO3886/opensearch-resource-store/internal/types"
)

const maxLine = 4 * 1024 * 1024

// Ingest enqueues every valid event of a JSON lines stream onto topic and
// returns how many were enqueued. Malformed, invalid and future events are
// logged and skipped.
func Ingest(ctx context.Context, r io.Reader, enqueuer queue.Enqueuer, topic string) (int, error) {
	log.Infof("[ingestion] started")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	enqueued := 0
	for i := 0; scanner.Scan(); i++ {
		if err := ctx.Err(); err != nil {
			return enqueued, err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event types.Event
		if err := json.Unmarshal(line, &event); err != nil {
			log.Warnf("[ingestion] error unmarshalling event %d: %v", i, err)
			continue
		}
		if err := event.Validate(); err != nil {
			log.Warnf("[ingestion] event %d: %v", i, err)
			continue
		}
		if time.UnixMilli(event.TimeStamp).After(time.Now()) {
			log.Warnf("[ingestion] event %d is in the future", i)
			continue
		}

		if err := enqueuer.Enqueue(ctx, topic, append([]byte(nil), line...)); err != nil {
			log.Errorf("[ingestion] error enqueuing event %d: %v", i, err)
			continue
		}
		enqueued++
		log.Debugf("[ingestion] enqueued event %d", i)
	}
	if err := scanner.Err(); err != nil {
		return enqueued, err
	}

	log.Infof("[ingestion] completed, %d events enqueued", enqueued)
	return enqueued, nil
}
