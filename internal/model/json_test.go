package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTaskJSONUsesWallClockLayout(t *testing.T) {
	task := NewTask("Task A", StatusNew, "Task A description", at(12, 45), 15)
	task.ID = 1

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	body := string(data)
	for _, want := range []string{`"startTime":"10.06.2022 12:45"`, `"endTime":"10.06.2022 13:00"`, `"type":"TASK"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}

	var decoded Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if decoded.ID != 1 || decoded.Name != "Task A" || decoded.Duration != 15 {
		t.Fatalf("unexpected decoded task %+v", decoded)
	}
	if decoded.StartTime == nil || !decoded.StartTime.Equal(*task.StartTime) {
		t.Fatalf("expected start %v, got %v", task.StartTime, decoded.StartTime)
	}
}

func TestTaskJSONAcceptsNullStrings(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"name":"x","status":"done","startTime":"null","duration":-3}`), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if task.StartTime != nil {
		t.Fatalf("expected nil start, got %v", task.StartTime)
	}
	if task.Duration != 0 {
		t.Fatalf("expected clamped duration, got %d", task.Duration)
	}
	if task.Status != StatusDone {
		t.Fatalf("expected DONE, got %s", task.Status)
	}
}

func TestSubtaskJSONRequiresEpic(t *testing.T) {
	var subtask Subtask
	if err := json.Unmarshal([]byte(`{"name":"x","status":"NEW"}`), &subtask); err == nil {
		t.Fatalf("expected error for subtask without epicId")
	}
	if err := json.Unmarshal([]byte(`{"id":5,"name":"x","status":"NEW","epicId":3}`), &subtask); err != nil {
		t.Fatalf("unmarshal subtask: %v", err)
	}
	if subtask.EpicID != 3 || subtask.ID != 5 {
		t.Fatalf("unexpected subtask %+v", subtask)
	}

	data, err := json.Marshal(subtask)
	if err != nil {
		t.Fatalf("marshal subtask: %v", err)
	}
	if !strings.Contains(string(data), `"epicId":3`) || !strings.Contains(string(data), `"type":"SUBTASK"`) {
		t.Fatalf("unexpected subtask json %s", data)
	}
}

func TestEpicJSONIgnoresDerivedFields(t *testing.T) {
	var epic Epic
	payload := `{"id":3,"type":"EPIC","name":"Epic A","status":"DONE","duration":500,"startTime":"01.01.2022 10:00","subtaskIds":[7,8]}`
	if err := json.Unmarshal([]byte(payload), &epic); err != nil {
		t.Fatalf("unmarshal epic: %v", err)
	}
	if epic.Status() != StatusNew || epic.Duration() != 0 || epic.StartTime() != nil {
		t.Fatalf("derived fields must be ignored, got %s/%d/%v", epic.Status(), epic.Duration(), epic.StartTime())
	}
	if len(epic.SubtaskIDs()) != 0 {
		t.Fatalf("subtask ids must be ignored, got %v", epic.SubtaskIDs())
	}
}

func TestDecodeEntity(t *testing.T) {
	tests := []struct {
		payload string
		want    Kind
	}{
		{payload: `{"type":"task","name":"t"}`, want: KindTask},
		{payload: `{"type":"EPIC","name":"e"}`, want: KindEpic},
		{payload: `{"type":"Subtask","name":"s","epicId":1}`, want: KindSubtask},
	}
	for _, tc := range tests {
		entity, err := DecodeEntity([]byte(tc.payload))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.payload, err)
		}
		if entity.Ref().Kind != tc.want {
			t.Fatalf("decode %s: expected %s, got %s", tc.payload, tc.want, entity.Ref().Kind)
		}
	}
	if _, err := DecodeEntity([]byte(`{"type":"story"}`)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestTaskJSONRejectsWrongType(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"type":"EPIC","name":"x"}`), &task); err == nil {
		t.Fatalf("expected error decoding an epic into a task")
	}
}
