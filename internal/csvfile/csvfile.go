// Package csvfile stores tracker snapshots in a CSV file: a header, one record
// per entity, a blank line, a record listing the view history and a final
// record holding the id counter.
//
//	id,type,name,status,description,start,duration,epic
//	1,TASK,Task,NEW,Description,10.06.2022 10:30,30,
//	2,EPIC,Epic,DONE,Description,null,0,
//	3,SUBTASK,Subtask,DONE,Description,null,0,2
//
//	3,1
//	next_id,4
//
// The history record is left out when nothing was viewed. Files without a
// counter record still load; the counter is then recomputed from the ids.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

var header = []string{"id", "type", "name", "status", "description", "start", "duration", "epic"}

const counterKey = "next_id"

// ParseError reports a malformed record and the line it starts on.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type File struct {
	path string
}

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Close() error {
	return nil
}

// Save replaces the file atomically.
func (f *File) Save(_ context.Context, snapshot model.Snapshot) error {
	data, err := Encode(snapshot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := atomic.WriteFile(f.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Load reads the file. A missing file is an empty snapshot.
func (f *File) Load(context.Context) (model.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	return Decode(data)
}

func Encode(snapshot model.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range snapshot.Rows() {
		if err := w.Write(encodeRow(row)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	buf.WriteByte('\n')
	if len(snapshot.History) > 0 {
		ids := make([]string, 0, len(snapshot.History))
		for _, id := range snapshot.History {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		if err := w.Write(ids); err != nil {
			return nil, err
		}
	}
	if snapshot.NextID > 0 {
		if err := w.Write([]string{counterKey, strconv.FormatInt(snapshot.NextID, 10)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRow(row model.Row) []string {
	epic := ""
	if row.Kind == model.KindSubtask {
		epic = strconv.FormatInt(row.EpicID, 10)
	}
	return []string{
		strconv.FormatInt(row.ID, 10),
		string(row.Kind),
		row.Name,
		string(row.Status),
		row.Description,
		model.FormatTime(row.StartTime),
		strconv.Itoa(row.Duration),
		epic,
	}
}

// Decode parses file contents. The trailing history and counter records are
// recognised by the blank line in front of them; the csv reader drops blank
// lines, so the gap shows up as a jump in line numbers.
func Decode(data []byte) (model.Snapshot, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	var (
		rows    []model.Row
		tail    model.Snapshot
		inTail  bool
		endLine int
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Snapshot{}, err
		}
		line, _ := r.FieldPos(0)

		switch {
		case endLine == 0:
			if len(record) != len(header) || record[0] != header[0] {
				return model.Snapshot{}, &ParseError{Line: line, Err: fmt.Errorf("missing header")}
			}
		case inTail || line > endLine+1:
			inTail = true
			if err := decodeTail(record, &tail); err != nil {
				return model.Snapshot{}, &ParseError{Line: line, Err: err}
			}
		default:
			row, err := decodeRow(record)
			if err != nil {
				return model.Snapshot{}, &ParseError{Line: line, Err: err}
			}
			rows = append(rows, row)
		}
		// the last field never spans lines, so its position ends the record
		endLine, _ = r.FieldPos(len(record) - 1)
	}

	return model.SnapshotFromRows(rows, tail.History, tail.NextID)
}

func decodeRow(record []string) (model.Row, error) {
	if len(record) != len(header) {
		return model.Row{}, fmt.Errorf("expected %d fields, got %d", len(header), len(record))
	}

	var (
		row model.Row
		err error
	)
	if row.ID, err = strconv.ParseInt(record[0], 10, 64); err != nil {
		return model.Row{}, fmt.Errorf("id: %w", err)
	}
	if row.Kind, err = model.ParseKind(record[1]); err != nil {
		return model.Row{}, err
	}
	row.Name = record[2]
	if row.Status, err = model.ParseStatus(record[3]); err != nil {
		return model.Row{}, err
	}
	row.Description = record[4]
	if row.StartTime, err = model.ParseTime(record[5]); err != nil {
		return model.Row{}, fmt.Errorf("start: %w", err)
	}
	if row.Duration, err = strconv.Atoi(record[6]); err != nil {
		return model.Row{}, fmt.Errorf("duration: %w", err)
	}
	if row.Kind == model.KindSubtask {
		if row.EpicID, err = strconv.ParseInt(record[7], 10, 64); err != nil {
			return model.Row{}, fmt.Errorf("epic: %w", err)
		}
	}
	return row, nil
}

// decodeTail reads one record after the blank line: the history, then the
// counter, each at most once.
func decodeTail(record []string, tail *model.Snapshot) error {
	if tail.NextID != 0 {
		return fmt.Errorf("unexpected record after %s", counterKey)
	}
	if record[0] == counterKey {
		if len(record) != 2 {
			return fmt.Errorf("%s: expected 2 fields, got %d", counterKey, len(record))
		}
		nextID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil || nextID <= 0 {
			return fmt.Errorf("%s: invalid value %q", counterKey, record[1])
		}
		tail.NextID = nextID
		return nil
	}
	if tail.History != nil {
		return fmt.Errorf("unexpected record after history")
	}
	history, err := decodeHistory(record)
	if err != nil {
		return err
	}
	tail.History = history
	return nil
}

func decodeHistory(record []string) ([]int64, error) {
	history := make([]int64, 0, len(record))
	for _, field := range record {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("history id %q: %w", field, err)
		}
		history = append(history, id)
	}
	return history, nil
}
