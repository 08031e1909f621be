package pipeline

import (
	"encoding/json"
	"log"
	"time"
)

// eventLog writes the board's human-readable lines and structured events.
type eventLog struct {
	logger   *log.Logger
	pipeline PipelineType
}

func (l *eventLog) printf(format string, args ...interface{}) {
	l.logger.Printf("[Board] "+format, args...)
}

// event writes one structured JSON log line at info level.
func (l *eventLog) event(eventType string, data map[string]interface{}) {
	l.eventAt("info", eventType, data)
}

func (l *eventLog) eventAt(level, eventType string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = level
	data["component"] = "board"
	data["event_type"] = eventType
	data["pipeline"] = string(l.pipeline)

	jsonData, err := json.Marshal(data)
	if err != nil {
		l.printf("Failed to marshal log event: %v", err)
		return
	}

	l.logger.Println(string(jsonData))
}
