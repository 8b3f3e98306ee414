package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Joseda-hg/tasktracker/internal/config"
	"github.com/Joseda-hg/tasktracker/internal/kv"
	"github.com/Joseda-hg/tasktracker/internal/model"
	"github.com/Joseda-hg/tasktracker/internal/store"
	"github.com/Joseda-hg/tasktracker/internal/web"
)

func serveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP task server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Web.Addr = addr
			}
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				log.Printf("Task server running at http://localhost%s (%s storage)", cfg.Web.Addr, cfg.Storage.Backend)
				return http.ListenAndServe(cfg.Web.Addr, web.NewServer(tracker).Handler())
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides web.addr)")
	return cmd
}

func kvServerCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv-server",
		Short: "Run the key/value storage server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.KV.Addr = addr
			}
			log.Printf("KV server running at http://localhost%s", cfg.KV.Addr)
			return http.ListenAndServe(cfg.KV.Addr, kv.NewServer().Handler())
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides kv.addr)")
	return cmd
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "list [tasks|epics|subtasks]",
		Short:     "List stored entries",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"tasks", "epics", "subtasks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				out := cmd.OutOrStdout()
				which := ""
				if len(args) == 1 {
					which = args[0]
				}
				if which == "" || which == "tasks" {
					printEntities(out, tracker.Tasks())
				}
				if which == "" || which == "epics" {
					printEntities(out, tracker.Epics())
				}
				if which == "" || which == "subtasks" {
					printEntities(out, tracker.Subtasks())
				}
				return nil
			})
		},
	}
}

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry and record the view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				entity, ok, err := tracker.Get(cmd.Context(), id)
				if !ok {
					return fmt.Errorf("no entry with id %d", id)
				}
				var subtasks []model.Subtask
				if entity.Ref().Kind == model.KindEpic {
					subtasks, _ = tracker.EpicSubtasks(id)
				}
				printDetails(cmd.OutOrStdout(), entity, subtasks)
				return err
			})
		},
	}
}

func addCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "add task|epic|subtask",
		Short:     "Add a task, epic or subtask",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"task", "epic", "subtask"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return err
			}
			entity, err := entityFromFlags(cmd, kind)
			if err != nil {
				return err
			}
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				id, err := tracker.Add(cmd.Context(), entity)
				if id == model.NoID {
					return fmt.Errorf("%s rejected: id taken, unknown epic or schedule overlap", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s %d\n", args[0], id)
				return err
			})
		},
	}
	cmd.Flags().String("name", "", "name")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("status", "", "status (NEW, IN_PROGRESS, DONE)")
	cmd.Flags().String("start", "", "start time as "+model.TimeLayout)
	cmd.Flags().Int("duration", 0, "duration in minutes")
	cmd.Flags().Int64("epic", 0, "owning epic (subtasks only)")
	cmd.Flags().Int64("id", 0, "explicit id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func entityFromFlags(cmd *cobra.Command, kind model.Kind) (model.Entity, error) {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	description, _ := flags.GetString("description")
	id, _ := flags.GetInt64("id")
	if kind == model.KindEpic {
		return model.NewEpic(id, name, description), nil
	}

	rawStatus, _ := flags.GetString("status")
	status, err := model.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	rawStart, _ := flags.GetString("start")
	start, err := model.ParseTime(rawStart)
	if err != nil {
		return nil, err
	}
	duration, _ := flags.GetInt("duration")

	task := model.NewTask(name, status, description, start, duration)
	task.ID = id
	if kind == model.KindTask {
		return task, nil
	}
	epicID, _ := flags.GetInt64("epic")
	if epicID == 0 {
		return nil, fmt.Errorf("--epic is required for subtasks")
	}
	return model.Subtask{Task: task, EpicID: epicID}, nil
}

func removeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove an entry, or every entry of a kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allTasks, _ := cmd.Flags().GetBool("all-tasks")
			allEpics, _ := cmd.Flags().GetBool("all-epics")
			allSubtasks, _ := cmd.Flags().GetBool("all-subtasks")
			if len(args) == 0 && !allTasks && !allEpics && !allSubtasks {
				return fmt.Errorf("give an id or one of --all-tasks, --all-epics, --all-subtasks")
			}

			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				ctx := cmd.Context()
				if len(args) == 1 {
					id, err := parseID(args[0])
					if err != nil {
						return err
					}
					removed, err := tracker.Remove(ctx, id)
					if !removed {
						return fmt.Errorf("no entry with id %d", id)
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
				}
				if allSubtasks {
					if err := tracker.RemoveAllSubtasks(ctx); err != nil {
						return err
					}
				}
				if allEpics {
					if err := tracker.RemoveAllEpics(ctx); err != nil {
						return err
					}
				}
				if allTasks {
					if err := tracker.RemoveAllTasks(ctx); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("all-tasks", false, "remove every task")
	cmd.Flags().Bool("all-epics", false, "remove every epic and its subtasks")
	cmd.Flags().Bool("all-subtasks", false, "remove every subtask")
	return cmd
}

func historyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List viewed entries, oldest view first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				printEntities(cmd.OutOrStdout(), tracker.History())
				return nil
			})
		},
	}
}

func scheduleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "List tasks and subtasks by start time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				printEntities(cmd.OutOrStdout(), tracker.Prioritized())
				return nil
			})
		},
	}
}

func exportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the full state as JSON to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(tracker.Export())
			})
		},
	}
}

func importCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the full state with a JSON export (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			var snapshot model.Snapshot
			if err := json.Unmarshal(data, &snapshot); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			return opts.withTracker(cmd, func(tracker *store.Tracker) error {
				if err := tracker.Import(cmd.Context(), snapshot); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks, %d epics, %d subtasks\n",
					len(snapshot.Tasks), len(snapshot.Epics), len(snapshot.Subtasks))
				return nil
			})
		},
	}
}

func configCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if save, _ := cmd.Flags().GetBool("save"); save {
				path, err := opts.resolveConfigPath()
				if err != nil {
					return err
				}
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# saved to %s\n", path)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().Bool("save", false, "write the effective configuration to the config file")
	return cmd
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
