package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintdeck/internal/app"
	"sprintdeck/internal/config"
	"sprintdeck/internal/db"
	"sprintdeck/internal/domain"
	"sprintdeck/internal/migrate"
	"sprintdeck/internal/repo"
	"sprintdeck/internal/server"
	"sprintdeck/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "sd",
	Short: "SprintDeck CLI",
	Long: `SprintDeck is a sprint board for small teams.
Core concepts:
- Workspace: the directory holding sprintdeck.yml and the .sprintdeck service database.
- Board: tasks of the current sprint, one column per status (To Do, In Progress, Review, Done).
- Tasks: work items with a human key like PROJ-101. Keys are assigned by the service; the client shows a provisional key until the service answers.
- Sprints: active, future, or closed. 'sd sprint use' selects the one you work in.
- Comments and subtasks: hang off a task and travel with it.
- Remote: every mutation is applied locally first and mirrored to the service; a failed mirror is a warning, not an error.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPRINTDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor", "", "acting user id (overrides session)")
	rootCmd.PersistentFlags().String("sprint", "", "sprint id (overrides session)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
	_ = viper.BindPFlag("sprint", rootCmd.PersistentFlags().Lookup("sprint"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(sprintCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var key, baseURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create sprintdeck.yml in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg := config.Default()
			if key != "" {
				cfg.Project.Key = key
			}
			if baseURL != "" {
				cfg.API.BaseURL = baseURL
			}
			if err := cfg.Save(workspace); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", config.Path(workspace))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "task key prefix (default PROJ)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "tracker service base URL")
	return cmd
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the sprint board",
		Long:  "One column per status, tasks of the current sprint only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				cols := s.Store.BoardColumns()
				if viper.GetBool("json") {
					return printJSON(cols)
				}
				if sp, ok := s.Store.CurrentSprint(); ok {
					fmt.Printf("Sprint: %s (%s)\n", sp.Name, sp.Status)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				header := table.Row{}
				rows := 0
				for _, c := range cols {
					header = append(header, fmt.Sprintf("%s (%d)", c.Status, len(c.Tasks)))
					if len(c.Tasks) > rows {
						rows = len(c.Tasks)
					}
				}
				tw.AppendHeader(header)
				for i := 0; i < rows; i++ {
					row := table.Row{}
					for _, c := range cols {
						if i < len(c.Tasks) {
							t := c.Tasks[i]
							row = append(row, fmt.Sprintf("%s %s\n%s", t.Key, t.Title, s.Store.AssigneeName(t)))
						} else {
							row = append(row, "")
						}
					}
					tw.AppendRow(row)
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks of the current sprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				tasks := s.Store.SprintTasks()
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Key", "Title", "Status", "Priority", "Type", "Assignee", "Due"})
				for _, t := range tasks {
					due := ""
					if t.DueDate != nil {
						due = *t.DueDate
					}
					tw.AppendRow(table.Row{t.Key, t.Title, t.Status, t.Priority, t.Type, s.Store.AssigneeName(t), due})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func teamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if viper.GetBool("json") {
					return printJSON(s.Store.Users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Email"})
				for _, u := range s.Store.Users {
					name := u.Name
					if u.ID == s.Store.ActorID {
						name += " (you)"
					}
					tw.AppendRow(table.Row{u.ID, name, u.Role, u.Email})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func sprintCmd() *cobra.Command {
	sp := &cobra.Command{Use: "sprint", Short: "Manage sprints"}
	sp.AddCommand(sprintListCmd())
	sp.AddCommand(sprintUseCmd())
	sp.AddCommand(sprintCreateCmd())
	return sp
}

func sprintListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if viper.GetBool("json") {
					return printJSON(s.Store.Sprints)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"", "ID", "Name", "Status", "Start", "End"})
				for _, sp := range s.Store.Sprints {
					marker := ""
					if sp.ID == s.Store.CurrentSprintID {
						marker = "*"
					}
					tw.AppendRow(table.Row{marker, sp.ID, sp.Name, sp.Status, sp.StartDate, sp.EndDate})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func sprintUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Select the working sprint for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default()
			}
			cfg.Session.Sprint = strings.TrimSpace(args[0])
			if err := cfg.Save(workspace); err != nil {
				return err
			}
			fmt.Printf("Sprint %s selected\n", cfg.Session.Sprint)
			return nil
		},
	}
	return cmd
}

func sprintCreateCmd() *cobra.Command {
	var sp domain.Sprint
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a sprint on the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				created, err := s.Client.CreateSprint(ctx, sp)
				if err != nil {
					return err
				}
				return printJSONOrPlain(created)
			})
		},
	}
	cmd.Flags().StringVar(&sp.Name, "name", "", "sprint name")
	cmd.Flags().StringVar(&sp.StartDate, "start", "", "start date")
	cmd.Flags().StringVar(&sp.EndDate, "end", "", "end date")
	cmd.Flags().StringVar(&sp.Goal, "goal", "", "sprint goal")
	cmd.Flags().StringVar(&sp.Status, "status", domain.SprintFuture, "sprint status")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks carry a status (To Do, In Progress, Review, Done), a priority, labels, comments, and subtasks.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskMoveCmd())
	task.AddCommand(taskCommentCmd())
	task.AddCommand(taskLabelCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(subtaskCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var draft store.TaskDraft
	var assignee, due string
	var labels []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in the current sprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("assignee") {
				draft.AssigneeID = &assignee
			}
			if cmd.Flags().Changed("due") {
				draft.DueDate = &due
			}
			draft.Labels = labels
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t := s.Store.CreateTask(draft)
				remote, err := s.Client.CreateTask(ctx, t)
				if err != nil {
					warnSync(err)
				} else {
					s.Store.AdoptKey(t.ID, remote.Key)
					t.Key = remote.Key
				}
				return printJSONOrPlain(t)
			})
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "title")
	cmd.Flags().StringVar(&draft.Description, "description", "", "description")
	cmd.Flags().StringVar(&draft.Status, "status", "", "status")
	cmd.Flags().StringVar(&draft.Priority, "priority", "", "priority (Low, Medium, High, Critical)")
	cmd.Flags().StringVar(&draft.Type, "type", "", "type (Task, Bug)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&due, "due", "", "due date")
	cmd.Flags().StringArrayVar(&labels, "label", []string{}, "label (repeatable)")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				s.Store.OpenTaskID = args[0]
				t, ok := s.Store.OpenTask()
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("%s  %s\n", t.Key, t.Title)
				fmt.Printf("Status: %s  Priority: %s  Type: %s\n", t.Status, t.Priority, t.Type)
				fmt.Printf("Assignee: %s\n", s.Store.AssigneeName(t))
				if t.Description != "" {
					fmt.Printf("\n%s\n", t.Description)
				}
				if len(t.Labels) > 0 {
					fmt.Printf("Labels: %s\n", strings.Join(t.Labels, ", "))
				}
				if t.DueDate != nil {
					fmt.Printf("Due: %s\n", *t.DueDate)
				}
				for _, c := range t.Comments {
					author := c.UserID
					if u, ok := s.Store.UserByID(c.UserID); ok {
						author = u.Name
					}
					fmt.Printf("\n[%s] %s: %s\n", c.CreatedAt, author, c.Text)
				}
				return nil
			})
		},
	}
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, description, status, priority, typ, assignee, due string
	var labels []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch store.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				patch.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				patch.Priority = &priority
			}
			if cmd.Flags().Changed("type") {
				patch.Type = &typ
			}
			if cmd.Flags().Changed("assignee") {
				patch.AssigneeID = &assignee
			}
			if cmd.Flags().Changed("due") {
				patch.DueDate = &due
			}
			if cmd.Flags().Changed("label") {
				patch.Labels = &labels
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, ok := s.Store.UpdateTask(args[0], patch)
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}
				if _, err := s.Client.UpdateTask(ctx, t.ID, t); err != nil {
					warnSync(err)
				}
				return printJSONOrPlain(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&typ, "type", "", "type")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee id (empty clears)")
	cmd.Flags().StringVar(&due, "due", "", "due date (empty clears)")
	cmd.Flags().StringArrayVar(&labels, "label", []string{}, "replace labels (repeatable)")
	return cmd
}

func taskMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := args[1]
			if !domain.ValidStatus(status) {
				return fmt.Errorf("invalid status %q (want one of %s)", status, strings.Join(domain.StatusOrder, ", "))
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, ok := s.Store.MoveTask(args[0], status)
				if !ok {
					return fmt.Errorf("task %s not found", args[0])
				}
				if _, err := s.Client.UpdateTask(ctx, t.ID, t); err != nil {
					warnSync(err)
				}
				fmt.Printf("%s -> %s\n", t.Key, t.Status)
				return nil
			})
		},
	}
	return cmd
}

func taskCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Comment on a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				c, ok := s.Store.AddComment(args[0], text)
				if !ok {
					return fmt.Errorf("nothing to add: unknown task or blank comment")
				}
				if _, err := s.Client.CreateComment(ctx, args[0], c); err != nil {
					warnSync(err)
				}
				return printJSONOrPlain(c)
			})
		},
	}
	return cmd
}

func taskLabelCmd() *cobra.Command {
	label := &cobra.Command{Use: "label", Short: "Manage task labels"}
	label.AddCommand(&cobra.Command{
		Use:   "add <id> <label>",
		Short: "Add a label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, changed := s.Store.AddLabel(args[0], args[1])
				if changed {
					if _, err := s.Client.UpdateTask(ctx, t.ID, t); err != nil {
						warnSync(err)
					}
				}
				return printJSONOrPlain(t.Labels)
			})
		},
	})
	label.AddCommand(&cobra.Command{
		Use:   "remove <id> <label>",
		Short: "Remove a label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, changed := s.Store.RemoveLabel(args[0], args[1])
				if changed {
					if _, err := s.Client.UpdateTask(ctx, t.ID, t); err != nil {
						warnSync(err)
					}
				}
				return printJSONOrPlain(t.Labels)
			})
		},
	})
	return label
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task on the service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Client.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				remaining := make([]domain.Task, 0, len(s.Store.Tasks))
				for _, t := range s.Store.Tasks {
					if t.ID != args[0] {
						remaining = append(remaining, t)
					}
				}
				s.Store.ReplaceTasks(remaining)
				fmt.Println("deleted")
				return nil
			})
		},
	}
	return cmd
}

func subtaskCmd() *cobra.Command {
	sub := &cobra.Command{Use: "subtask", Short: "Manage subtasks"}
	sub.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Client.ListSubtasks(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Done"})
				for _, st := range items {
					done := ""
					if st.Completed {
						done = "x"
					}
					tw.AppendRow(table.Row{st.ID, st.Title, done})
				}
				tw.Render()
				return nil
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "add <task-id> <title>",
		Short: "Add a subtask",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args[1:], " ")
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				st, err := s.Client.CreateSubtask(ctx, args[0], domain.Subtask{Title: title})
				if err != nil {
					return err
				}
				return printJSONOrPlain(st)
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "done <id>",
		Short: "Mark a subtask completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				st, err := s.Client.UpdateSubtask(ctx, args[0], domain.Subtask{Completed: true})
				if err != nil {
					return err
				}
				return printJSONOrPlain(st)
			})
		},
	})
	sub.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Client.DeleteSubtask(ctx, args[0])
			})
		},
	})
	return sub
}

func memberCmd() *cobra.Command {
	member := &cobra.Command{Use: "member", Short: "Manage the roster"}
	var draft store.UserDraft
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a team member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				u := s.Store.AddMember(draft)
				if _, err := s.Client.CreateUser(ctx, u); err != nil {
					warnSync(err)
				}
				return printJSONOrPlain(u)
			})
		},
	}
	add.Flags().StringVar(&draft.Name, "name", "", "display name")
	add.Flags().StringVar(&draft.Email, "email", "", "email")
	add.Flags().StringVar(&draft.Avatar, "avatar", "", "avatar URL")
	add.Flags().StringVar(&draft.Role, "role", "", "role")
	member.AddCommand(add)
	return member
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Service event log",
		Long:  "Audit trail of service-side mutations, read from the local workspace database.",
	}
	var n int
	var evtType, entityKind string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			items, err := r.LatestEvents(cmd.Context(), n, evtType, entityKind)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"TS", "Type", "Entity", "ID", "Payload"})
			for _, e := range items {
				tw.AppendRow(table.Row{e.TS, e.Type, e.EntityKind, e.EntityID, e.Payload})
			}
			tw.Render()
			return nil
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	tail.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	log.AddCommand(tail)
	return log
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tracker service",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := app.ResolveConfig(workspace)
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			handler, err := server.New(server.Config{DB: conn, BasePath: basePath, KeyPrefix: cfg.Project.Key})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving SprintDeck API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3344", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

// --- helpers ---

func withSession(ctx context.Context, fn func(context.Context, *app.Session) error) error {
	s, err := app.Open(ctx, viper.GetString("workspace"), viper.GetString("actor"), viper.GetString("sprint"))
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

func warnSync(err error) {
	fmt.Fprintf(os.Stderr, "warning: remote sync failed: %v\n", err)
}

func printJSONOrPlain(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
