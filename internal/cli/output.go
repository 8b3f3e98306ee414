package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

func printEntities[T model.Entity](w io.Writer, entities []T) {
	if len(entities) == 0 {
		fmt.Fprintln(w, "nothing here")
		return
	}
	for _, entity := range entities {
		printEntity(w, entity)
	}
}

func printEntity(w io.Writer, entity model.Entity) {
	ref := entity.Ref()
	var (
		name     string
		status   model.Status
		start    *time.Time
		duration int
	)
	switch value := entity.(type) {
	case model.Task:
		name, status, start, duration = value.Name, value.Status, value.StartTime, value.Duration
	case model.Subtask:
		name, status, start, duration = value.Name, value.Status, value.StartTime, value.Duration
		name = fmt.Sprintf("%s (epic #%d)", name, value.EpicID)
	case model.Epic:
		name, status, start, duration = value.Name, value.Status(), value.StartTime(), value.Duration()
	}
	fmt.Fprintf(w, "#%-4d %-8s %-12s %s%s\n", ref.ID, ref.Kind, status, name, formatSchedule(start, duration))
}

func formatSchedule(start *time.Time, duration int) string {
	if start == nil {
		if duration == 0 {
			return ""
		}
		return fmt.Sprintf("  [unscheduled, %s]", formatMinutes(duration))
	}
	return fmt.Sprintf("  [%s, %s, %s]", model.FormatTime(start), formatMinutes(duration), humanize.Time(*start))
}

func formatMinutes(minutes int) string {
	hours, rest := minutes/60, minutes%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", rest)
	case rest == 0:
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, rest)
}

func printDetails(w io.Writer, entity model.Entity, subtasks []model.Subtask) {
	printEntity(w, entity)
	var description string
	switch value := entity.(type) {
	case model.Task:
		description = value.Description
	case model.Subtask:
		description = value.Description
	case model.Epic:
		description = value.Description
	}
	if description != "" {
		fmt.Fprintf(w, "      %s\n", description)
	}
	if epic, ok := entity.(model.Epic); ok {
		fmt.Fprintf(w, "      %s\n", english.Plural(len(subtasks), "subtask", ""))
		if end := epic.EndTime(); end != nil {
			fmt.Fprintf(w, "      ends %s\n", model.FormatTime(end))
		}
		for _, subtask := range subtasks {
			fmt.Fprint(w, "    ")
			printEntity(w, subtask)
		}
	}
}
