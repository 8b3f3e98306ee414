package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the wall-clock layout used on the wire and in CSV files.
const TimeLayout = "02.01.2006 15:04"

// ParseTime parses TimeLayout as UTC. "null" and "" mean no time.
func ParseTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(TimeLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", value, err)
	}
	return &parsed, nil
}

func FormatTime(value *time.Time) string {
	if value == nil {
		return "null"
	}
	return value.Format(TimeLayout)
}

type wireTime struct {
	value *time.Time
}

func (t wireTime) MarshalJSON() ([]byte, error) {
	if t.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.value.Format(TimeLayout))
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.value = parsed
	return nil
}

type wireEntity struct {
	ID          int64    `json:"id"`
	Type        string   `json:"type,omitempty"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
	StartTime   wireTime `json:"startTime"`
	Duration    int      `json:"duration"`
	EndTime     wireTime `json:"endTime"`
	EpicID      *int64   `json:"epicId,omitempty"`
	SubtaskIDs  []int64  `json:"subtaskIds,omitempty"`
}

func (w wireEntity) checkType(kind Kind) error {
	if w.Type == "" {
		return nil
	}
	got, err := ParseKind(w.Type)
	if err != nil {
		return err
	}
	if got != kind {
		return fmt.Errorf("expected type %s, got %s", kind, got)
	}
	return nil
}

func (w wireEntity) task(kind Kind) (Task, error) {
	if err := w.checkType(kind); err != nil {
		return Task{}, err
	}
	status, err := ParseStatus(w.Status)
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:          w.ID,
		Name:        w.Name,
		Status:      status,
		Description: w.Description,
		StartTime:   w.StartTime.value,
		Duration:    w.Duration,
	}.Normalized(), nil
}

func wireFromTask(t Task, kind Kind) wireEntity {
	return wireEntity{
		ID:          t.ID,
		Type:        string(kind),
		Name:        t.Name,
		Status:      string(t.Status),
		Description: t.Description,
		StartTime:   wireTime{t.StartTime},
		Duration:    t.Duration,
		EndTime:     wireTime{t.EndTime()},
	}
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFromTask(t, KindTask))
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var w wireEntity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := w.task(KindTask)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

func (s Subtask) MarshalJSON() ([]byte, error) {
	w := wireFromTask(s.Task, KindSubtask)
	epicID := s.EpicID
	w.EpicID = &epicID
	return json.Marshal(w)
}

func (s *Subtask) UnmarshalJSON(data []byte) error {
	var w wireEntity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	task, err := w.task(KindSubtask)
	if err != nil {
		return err
	}
	if w.EpicID == nil {
		return fmt.Errorf("subtask %d: epicId is required", w.ID)
	}
	*s = Subtask{Task: task, EpicID: *w.EpicID}
	return nil
}

func (e Epic) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntity{
		ID:          e.ID,
		Type:        string(KindEpic),
		Name:        e.Name,
		Status:      string(e.Status()),
		Description: e.Description,
		StartTime:   wireTime{e.derived.StartTime},
		Duration:    e.derived.Duration,
		EndTime:     wireTime{e.derived.EndTime},
		SubtaskIDs:  e.SubtaskIDs(),
	})
}

// UnmarshalJSON reads the epic's own fields. Status, schedule and subtasks
// are derived by the store, so incoming values for them are ignored.
func (e *Epic) UnmarshalJSON(data []byte) error {
	var w wireEntity
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if err := w.checkType(KindEpic); err != nil {
		return err
	}
	*e = NewEpic(w.ID, w.Name, w.Description)
	return nil
}

// DecodeEntity decodes a JSON object whose "type" field names its kind.
func DecodeEntity(data []byte) (Entity, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}
	kind, err := ParseKind(header.Type)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindEpic:
		var epic Epic
		err = json.Unmarshal(data, &epic)
		return epic, err
	case KindSubtask:
		var subtask Subtask
		err = json.Unmarshal(data, &subtask)
		return subtask, err
	default:
		var task Task
		err = json.Unmarshal(data, &task)
		return task, err
	}
}
