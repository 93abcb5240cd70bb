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

	"twelveweek/internal/app"
	"twelveweek/internal/config"
	"twelveweek/internal/db"
	"twelveweek/internal/engine"
	"twelveweek/internal/migrate"
	"twelveweek/internal/repo"
	"twelveweek/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "twy",
	Short: "Twelveweek CLI",
	Long: `Twelveweek plans goals in 12-week cycles and scores weekly execution.
Core concepts:
- Vision: the long-term aspiration your cycles serve.
- Cycle: a 12-week execution period; one active cycle at a time.
- Goals: 2-3 outcomes per cycle, each driven by recurring tactics.
- Weekly tasks: tactics instantiated into a specific week of the cycle.
- Scorecard: completed/planned per week as a 0-100 execution score;
  the 12-week system treats >=85 as on track.
- Partners: accountability partners and weekly review meetings.
- Event log: diary of changes, view with 'twy log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
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
	viper.SetEnvPrefix("TWELVEWEEK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user", "", "acting user email (defaults to the single workspace user)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func registerCommands() {
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(visionCmd())
	rootCmd.AddCommand(cycleCmd())
	rootCmd.AddCommand(goalCmd())
	rootCmd.AddCommand(tacticCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(scorecardCmd())
	rootCmd.AddCommand(partnerCmd())
	rootCmd.AddCommand(meetingCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- auth ---

func authCmd() *cobra.Command {
	auth := &cobra.Command{Use: "auth", Short: "Accounts and API keys"}
	auth.AddCommand(authRegisterCmd())
	auth.AddCommand(authAPIKeyCmd())
	return auth
}

func authRegisterCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngineOnly(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Register(ctx, email, password, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func authAPIKeyCmd() *cobra.Command {
	key := &cobra.Command{Use: "api-key", Short: "Manage API keys"}
	key.AddCommand(authAPIKeyCreateCmd())
	key.AddCommand(authAPIKeyListCmd())
	key.AddCommand(authAPIKeyDeleteCmd())
	return key
}

func authAPIKeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (the raw key is printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				key, raw, err := e.CreateAPIKey(ctx, userID, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"id": key.ID, "name": key.Name, "key": raw})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func authAPIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				keys, err := e.Repo.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	return cmd
}

func authAPIKeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				keys, err := e.Repo.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				for _, k := range keys {
					if k.ID == args[0] {
						return e.Repo.DeleteAPIKey(ctx, k.ID)
					}
				}
				return repo.ErrNotFound
			})
		},
	}
	return cmd
}

// --- vision ---

func visionCmd() *cobra.Command {
	vision := &cobra.Command{
		Use:   "vision",
		Short: "Long-term vision",
		Long:  "The vision anchors every cycle: a long-term aspiration and a mid-term (3 year) picture that goals should ladder up to.",
	}
	vision.AddCommand(visionShowCmd())
	vision.AddCommand(visionSetCmd())
	return vision
}

func visionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show vision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				v, err := e.GetVision(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	return cmd
}

func visionSetCmd() *cobra.Command {
	var longTerm, midTerm string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set vision statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			var longPtr, midPtr *string
			if cmd.Flags().Changed("long-term") {
				longPtr = &longTerm
			}
			if cmd.Flags().Changed("mid-term") {
				midPtr = &midTerm
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				v, err := e.UpsertVision(ctx, userID, longPtr, midPtr)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	cmd.Flags().StringVar(&longTerm, "long-term", "", "long-term vision statement")
	cmd.Flags().StringVar(&midTerm, "mid-term", "", "mid-term (3 year) vision statement")
	return cmd
}

// --- cycles ---

func cycleCmd() *cobra.Command {
	cycle := &cobra.Command{
		Use:   "cycle",
		Short: "Manage 12-week cycles",
		Long:  "Cycles are 12-week execution periods: upcoming -> active -> completed. Activating a cycle completes any other active one.",
	}
	cycle.AddCommand(cycleCreateCmd())
	cycle.AddCommand(cycleListCmd())
	cycle.AddCommand(cycleShowCmd())
	cycle.AddCommand(cycleCurrentCmd())
	cycle.AddCommand(cycleUpdateCmd())
	return cycle
}

func cycleCreateCmd() *cobra.Command {
	var opts engine.CycleCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				c, err := e.CreateCycle(ctx, userID, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "cycle name")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Status, "status", "upcoming", "status (upcoming, active)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func cycleListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				items, err := e.ListCycles(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func cycleShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				c, err := e.GetCycle(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func cycleCurrentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the active cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				c, err := e.ActiveCycle(ctx, userID)
				if err != nil {
					return err
				}
				if c == nil {
					fmt.Println("no active cycle")
					return nil
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func cycleUpdateCmd() *cobra.Command {
	var name, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p repo.CyclePatch
			if cmd.Flags().Changed("name") {
				p.Name = &name
			}
			if cmd.Flags().Changed("status") {
				p.Status = &status
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				c, err := e.UpdateCycle(ctx, userID, args[0], p)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "cycle name")
	cmd.Flags().StringVar(&status, "status", "", "status (upcoming, active, completed)")
	return cmd
}

// --- goals and tactics ---

func goalCmd() *cobra.Command {
	goal := &cobra.Command{
		Use:   "goal",
		Short: "Manage cycle goals",
		Long:  "Goals are the 2-3 outcomes a cycle is for. Each goal carries tactics, the recurring actions that drive it.",
	}
	goal.AddCommand(goalCreateCmd())
	goal.AddCommand(goalListCmd())
	goal.AddCommand(goalGetCmd())
	goal.AddCommand(goalUpdateCmd())
	goal.AddCommand(goalDeleteCmd())
	return goal
}

func goalCreateCmd() *cobra.Command {
	var opts engine.GoalCreateOptions
	var target float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("target-value") {
				opts.TargetValue = &target
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				if opts.CycleID == "" {
					active, err := e.ActiveCycle(ctx, userID)
					if err != nil {
						return err
					}
					if active == nil {
						return engine.ErrNoActiveCycle
					}
					opts.CycleID = active.ID
				}
				g, err := e.CreateGoal(ctx, userID, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&opts.CycleID, "cycle", "", "cycle id (defaults to the active cycle)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.TargetMetric, "target-metric", "", "metric name")
	cmd.Flags().Float64Var(&target, "target-value", 0, "metric target value")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalListCmd() *cobra.Command {
	var cycleID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				items, err := e.ListGoals(ctx, userID, cycleID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&cycleID, "cycle", "", "cycle filter")
	return cmd
}

func goalGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				g, err := e.GetGoal(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func goalUpdateCmd() *cobra.Command {
	var title, description, status string
	var current float64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p repo.GoalPatch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if cmd.Flags().Changed("status") {
				p.Status = &status
			}
			if cmd.Flags().Changed("current-value") {
				p.CurrentValue = &current
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				g, err := e.UpdateGoal(ctx, userID, args[0], p)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status (active, completed, abandoned)")
	cmd.Flags().Float64Var(&current, "current-value", 0, "metric current value")
	return cmd
}

func goalDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				return e.DeleteGoal(ctx, userID, args[0])
			})
		},
	}
	return cmd
}

func tacticCmd() *cobra.Command {
	tactic := &cobra.Command{Use: "tactic", Short: "Manage goal tactics"}
	tactic.AddCommand(tacticAddCmd())
	tactic.AddCommand(tacticListCmd())
	tactic.AddCommand(tacticUpdateCmd())
	tactic.AddCommand(tacticDeleteCmd())
	return tactic
}

func tacticAddCmd() *cobra.Command {
	var opts engine.TacticCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a tactic to a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				t, err := e.CreateTactic(ctx, userID, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.GoalID, "goal", "", "goal id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Frequency, "frequency", "weekly", "frequency (daily, weekly, specific)")
	cmd.Flags().IntVar(&opts.FrequencyCount, "count", 1, "times per frequency period")
	_ = cmd.MarkFlagRequired("goal")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func tacticListCmd() *cobra.Command {
	var goalID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tactics for a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				items, err := e.ListTactics(ctx, userID, goalID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&goalID, "goal", "", "goal id")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

func tacticUpdateCmd() *cobra.Command {
	var title, description, frequency string
	var count int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update tactic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p repo.TacticPatch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if cmd.Flags().Changed("frequency") {
				p.Frequency = &frequency
			}
			if cmd.Flags().Changed("count") {
				p.FrequencyCount = &count
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				t, err := e.UpdateTactic(ctx, userID, args[0], p)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&frequency, "frequency", "", "frequency (daily, weekly, specific)")
	cmd.Flags().IntVar(&count, "count", 0, "times per frequency period")
	return cmd
}

func tacticDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete tactic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				return e.DeleteTactic(ctx, userID, args[0])
			})
		},
	}
	return cmd
}

// --- weekly tasks ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage weekly tasks",
		Long:  "Weekly tasks are tactics planned into a specific week: pending -> completed (or skipped). The scorecard counts them.",
	}
	task.AddCommand(taskPlanCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDoneCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskPlanCmd() *cobra.Command {
	var opts engine.TaskPlanOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a task into a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				t, err := e.PlanTask(ctx, userID, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.TacticID, "tactic", "", "tactic id")
	cmd.Flags().StringVar(&opts.CycleID, "cycle", "", "cycle id (defaults to the active cycle)")
	cmd.Flags().IntVar(&opts.WeekNumber, "week", 0, "week number 1-12")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("tactic")
	_ = cmd.MarkFlagRequired("week")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List weekly tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				tasks, err := e.ListTasks(ctx, userID, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Week", "Tactic", "Goal", "Status"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.WeekNumber, t.TacticTitle, t.GoalTitle, t.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.CycleID, "cycle", "", "cycle filter (defaults to the active cycle)")
	cmd.Flags().IntVar(&f.WeekNumber, "week", 0, "week filter")
	cmd.Flags().StringVar(&f.TacticID, "tactic", "", "tactic filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var status, notes string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts engine.TaskUpdateOptions
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("notes") {
				opts.Notes = &notes
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				t, err := e.UpdateTask(ctx, userID, args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status (pending, completed, skipped)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := "completed"
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				t, err := e.UpdateTask(ctx, userID, args[0], engine.TaskUpdateOptions{Status: &status})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				return e.DeleteTask(ctx, userID, args[0])
			})
		},
	}
	return cmd
}

// --- scorecard ---

func scorecardCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "scorecard",
		Short: "Weekly execution scorecard",
		Long:  "The scorecard scores a week as completed/planned tasks on a 0-100 scale. Calculate persists the score; current and week read it.",
	}
	sc.AddCommand(scorecardCurrentCmd())
	sc.AddCommand(scorecardWeekCmd())
	sc.AddCommand(scorecardCalculateCmd())
	sc.AddCommand(scorecardHistoryCmd())
	sc.AddCommand(scorecardTrendCmd())
	return sc
}

func scorecardCurrentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current week's scorecard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				sc, err := e.CurrentScorecard(ctx, userID)
				if err != nil {
					return err
				}
				if sc == nil {
					fmt.Println("no active cycle")
					return nil
				}
				return printJSONOrTable(sc)
			})
		},
	}
	return cmd
}

func scorecardWeekCmd() *cobra.Command {
	var week int
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show a specific week's scorecard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				sc, err := e.WeekScorecard(ctx, userID, week)
				if err != nil {
					return err
				}
				if sc == nil {
					fmt.Println("no active cycle")
					return nil
				}
				return printJSONOrTable(sc)
			})
		},
	}
	cmd.Flags().IntVar(&week, "week", 0, "week number 1-12")
	_ = cmd.MarkFlagRequired("week")
	return cmd
}

func scorecardCalculateCmd() *cobra.Command {
	var opts engine.ScorecardCalculateOptions
	var reflection string
	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate and persist a week's score",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("reflection") {
				opts.Reflection = &reflection
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				sc, err := e.CalculateScorecard(ctx, userID, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(sc)
			})
		},
	}
	cmd.Flags().IntVar(&opts.WeekNumber, "week", 0, "week number 1-12 (defaults to the current week)")
	cmd.Flags().StringVar(&reflection, "reflection", "", "weekly reflection note")
	return cmd
}

func scorecardHistoryCmd() *cobra.Command {
	var cycleID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List persisted scorecards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				items, err := e.ScorecardHistory(ctx, userID, cycleID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Week", "Planned", "Completed", "Score"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.WeekNumber, s.PlannedTasks, s.CompletedTasks, s.ExecutionScore})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cycleID, "cycle", "", "cycle id (defaults to all cycles)")
	return cmd
}

func scorecardTrendCmd() *cobra.Command {
	var cycleID string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the score trend across weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				trend, err := e.ScorecardTrend(ctx, userID, cycleID)
				if err != nil {
					return err
				}
				return printJSONOrTable(trend)
			})
		},
	}
	cmd.Flags().StringVar(&cycleID, "cycle", "", "cycle id (defaults to all cycles)")
	return cmd
}

// --- partners and meetings ---

func partnerCmd() *cobra.Command {
	partner := &cobra.Command{
		Use:   "partner",
		Short: "Accountability partners",
		Long:  "Partners review each other's scorecards weekly. Invites are pending until the other side accepts.",
	}
	partner.AddCommand(partnerInviteCmd())
	partner.AddCommand(partnerListCmd())
	partner.AddCommand(partnerAcceptCmd())
	partner.AddCommand(partnerRemoveCmd())
	return partner
}

func partnerInviteCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite a partner by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				p, err := e.InvitePartner(ctx, userID, email)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "partner email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func partnerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List partners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				items, err := e.ListPartners(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func partnerAcceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept a partner invite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				p, err := e.AcceptPartner(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func partnerRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a partnership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				return e.RemovePartner(ctx, userID, args[0])
			})
		},
	}
	return cmd
}

func meetingCmd() *cobra.Command {
	meeting := &cobra.Command{Use: "meeting", Short: "Weekly accountability meetings"}
	meeting.AddCommand(meetingLogCmd())
	meeting.AddCommand(meetingListCmd())
	return meeting
}

func meetingLogCmd() *cobra.Command {
	var opts engine.MeetingCreateOptions
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				m, err := e.CreateMeeting(ctx, userID, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&opts.PartnerID, "partner", "", "partner id")
	cmd.Flags().StringVar(&opts.CycleID, "cycle", "", "cycle id (defaults to the active cycle)")
	cmd.Flags().IntVar(&opts.WeekNumber, "week", 0, "week number (defaults to the current week)")
	cmd.Flags().StringVar(&opts.MeetingDate, "date", "", "meeting date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&opts.Commitments, "commit", []string{}, "commitment for next week (repeatable)")
	cmd.Flags().StringVar(&opts.ReviewNotes, "notes", "", "review notes")
	return cmd
}

func meetingListCmd() *cobra.Command {
	var cycleID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				items, err := e.ListMeetings(ctx, userID, cycleID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&cycleID, "cycle", "", "cycle filter")
	return cmd
}

// --- status and log ---

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the week at a glance",
		Long:  "The scoreboard for your cycle: active cycle, current week, this week's score, goals, and task counts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				d, err := e.GetDashboard(ctx, userID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				if d.Cycle == nil {
					fmt.Println("No active cycle. Start one with twy cycle create --status active.")
					return nil
				}
				fmt.Printf("Cycle: %s (started %s), week %d of 12\n", d.Cycle.Name, d.Cycle.StartDate, d.CurrentWeek)
				if d.Scorecard != nil {
					fmt.Printf("This week: %d/%d tasks done, score %d\n", d.Scorecard.CompletedTasks, d.Scorecard.PlannedTasks, d.Scorecard.ExecutionScore)
				}
				fmt.Println("Goals:")
				for _, g := range d.Goals {
					fmt.Printf("  %s [%s]\n", g.Title, g.Status)
				}
				fmt.Println("Tasks:")
				for status, c := range d.TaskCounts {
					fmt.Printf("  %s: %d\n", status, c)
				}
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: cycle changes, task completions, scorecard runs, and more.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, userID string) error {
				events, err := e.Repo.LatestEvents(ctx, n, userID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Workspace config",
		Long:  "Config is the rulebook (twelveweek.yml): server address, auth settings, cycle length, and webhook targets.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default twelveweek.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists; pass --force to overwrite", path)
				}
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate twelveweek.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err == nil {
				err = cfg.Validate()
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
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
			e := engine.New(conn, cfg)
			secret := cfg.Auth.JWTSecret
			if env := os.Getenv("TWELVEWEEK_AUTH_JWT_SECRET"); env != "" {
				secret = env
			}
			if secret == "" {
				return fmt.Errorf("TWELVEWEEK_AUTH_JWT_SECRET (or auth.jwt_secret in twelveweek.yml) is required for bearer auth")
			}
			authCfg := server.AuthConfig{
				JWTSecret:             secret,
				TokenTTL:              time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
				AllowLegacyUserHeader: cfg.Auth.AllowLegacyUserHeader,
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth:     authCfg,
				Webhooks: server.NewWebhookDispatcher(e),
			})
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
			fmt.Printf("Serving Twelveweek API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine, string) error) error {
	return withEngineOnly(ctx, func(ctx context.Context, e engine.Engine) error {
		u, err := app.ResolveUser(ctx, e.Repo, viper.GetString("user"))
		if err != nil {
			return err
		}
		return fn(ctx, e, u.ID)
	})
}

func withEngineOnly(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
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
	return fn(ctx, engine.New(conn, cfg))
}

func printJSONOrTable(v any) error {
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
