// Command scheduler is the CLI Driver (SPEC_FULL.md §4.11): it loads a
// scenario's configuration documents, runs the Scheduler/Solver Driver,
// prints a one-line status summary (plus the unresolved groups when
// infeasible), and writes the schedule or the infeasible diagnosis
// under debug/<scenario>/. Built with spf13/cobra, following the subcommand-plus-flag
// shape the example corpus uses for small operational CLIs.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bruno.lopes/dutyplanner/internal/api"
	"github.com/bruno.lopes/dutyplanner/internal/config"
	"github.com/bruno.lopes/dutyplanner/internal/engine"
	"github.com/bruno.lopes/dutyplanner/internal/explain"
	"github.com/bruno.lopes/dutyplanner/internal/holidays"
	"github.com/bruno.lopes/dutyplanner/internal/ics"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
	"github.com/bruno.lopes/dutyplanner/internal/store"
)

// Exit codes (spec.md §6).
const (
	exitFeasible     = 0
	exitInfeasible   = 2
	exitConfigError  = 64
	holidayLookahead = 60 // days past the horizon end region holidays are still resolved for
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	exitCode := exitFeasible

	var scenarioDir string
	var dataPath string

	root := &cobra.Command{
		Use:   "scheduler",
		Short: "Generate physician duty schedules from task/physician/calendar configuration",
	}
	root.PersistentFlags().StringVar(&scenarioDir, "scenario-dir", "testdata/scenarios", "directory holding named scenario subdirectories")
	root.PersistentFlags().StringVar(&dataPath, "data", "./data/scheduler.db", "path to the SQLite schedule store")

	var scenario, taskScenario, physicianScenario, calendarScenario, scheduleScenario string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single scenario, or a composition of per-document scenarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, cal, err := loadOne(scenarioDir, scenario, taskScenario, physicianScenario, calendarScenario)
			if err != nil {
				exitCode = exitConfigError
				fmt.Fprintln(os.Stderr, err)
				return nil
			}

			var initial engine.InitialSchedule
			if scheduleScenario != "" {
				initial, err = loadScheduleHint(scenarioDir, scheduleScenario)
				if err != nil {
					exitCode = exitConfigError
					fmt.Fprintln(os.Stderr, err)
					return nil
				}
			}

			st, err := store.Open(dataPath)
			if err != nil {
				exitCode = exitConfigError
				fmt.Fprintln(os.Stderr, err)
				return nil
			}
			defer st.Close()

			code := runOne(cmd, nameFor(scenario, taskScenario, physicianScenario, calendarScenario), reg, cal, initial, st)
			if code != exitFeasible {
				exitCode = code
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&scenario, "scenario", "", "name of a scenario directory holding all three documents")
	runCmd.Flags().StringVar(&taskScenario, "task-scenario", "", "scenario directory to load tasks.json from")
	runCmd.Flags().StringVar(&physicianScenario, "physician-scenario", "", "scenario directory to load physicians.json from")
	runCmd.Flags().StringVar(&calendarScenario, "calendar-scenario", "", "scenario directory to load calendar.json from")
	runCmd.Flags().StringVar(&scheduleScenario, "schedule-scenario", "", "scenario directory holding a schedule.json to use as a solution hint")

	runAllCmd := &cobra.Command{
		Use:   "run-all",
		Short: "Run every combination of task/physician/calendar scenarios under scenario-dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := config.ListScenarios(scenarioDir)
			if err != nil {
				exitCode = exitConfigError
				fmt.Fprintln(os.Stderr, err)
				return nil
			}

			st, err := store.Open(dataPath)
			if err != nil {
				exitCode = exitConfigError
				fmt.Fprintln(os.Stderr, err)
				return nil
			}
			defer st.Close()

			for _, t := range names {
				for _, p := range names {
					for _, c := range names {
						reg, cal, err := config.LoadComposite(scenarioDir, t, p, c)
						name := fmt.Sprintf("%s+%s+%s", t, p, c)
						if err != nil {
							fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
							exitCode = maxExitCode(exitCode, exitConfigError)
							continue
						}
						code := runOne(cmd, name, reg, cal, nil, st)
						exitCode = maxExitCode(exitCode, code)
					}
				}
			}
			return nil
		},
	}

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP boundary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.Open(dataPath)
			if err != nil {
				exitCode = exitConfigError
				fmt.Fprintln(os.Stderr, err)
				return nil
			}
			defer st.Close()

			server := api.NewServer(scenarioDir, st)
			fmt.Fprintf(os.Stdout, "listening on %s\n", addr)
			if err := server.Run(addr); err != nil {
				exitCode = exitConfigError
				fmt.Fprintln(os.Stderr, err)
			}
			return nil
		},
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":"+port, "address to listen on")

	root.AddCommand(runCmd, runAllCmd, serveCmd)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	return exitCode
}

func loadOne(scenarioDir, scenario, taskScenario, physicianScenario, calendarScenario string) (*registry.Registry, *config.CalendarConfig, error) {
	if scenario != "" {
		return config.LoadScenario(scenarioDir, scenario)
	}
	if taskScenario == "" || physicianScenario == "" || calendarScenario == "" {
		return nil, nil, fmt.Errorf("scheduler: either --scenario, or all of --task-scenario/--physician-scenario/--calendar-scenario, must be set")
	}
	return config.LoadComposite(scenarioDir, taskScenario, physicianScenario, calendarScenario)
}

func nameFor(scenario, taskScenario, physicianScenario, calendarScenario string) string {
	if scenario != "" {
		return scenario
	}
	return fmt.Sprintf("%s+%s+%s", taskScenario, physicianScenario, calendarScenario)
}

func maxExitCode(a, b int) int {
	// configuration error outranks infeasible, which outranks feasible:
	// 64 > 2 > 0 already matches numeric ordering.
	if b > a {
		return b
	}
	return a
}

func runOne(cmd *cobra.Command, name string, reg *registry.Registry, cal *config.CalendarConfig, initial engine.InitialSchedule, st *store.Store) int {
	extendedEnd := cal.End.AddDate(0, 0, holidayLookahead)
	predicate := config.HolidayPredicate(holidays.NewSource(), cal, extendedEnd)

	driver := engine.NewDriver(reg, predicate)
	result, err := driver.Generate(cal.Start, cal.End, initial != nil, initial)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return exitConfigError
	}

	if result.Schedule == nil {
		return reportInfeasible(cmd, name, result, st)
	}
	return reportFeasible(cmd, name, result, st)
}

func reportFeasible(cmd *cobra.Command, name string, result *engine.Result, st *store.Store) int {
	data, err := result.Schedule.ToJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return exitConfigError
	}
	if err := st.SaveSchedule(name, string(data), result.Status.String()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: save schedule: %v\n", name, err)
	}

	icsData, err := ics.Export(result.Schedule)
	if err == nil {
		writeArtifact(name, "schedule.ics", icsData)
	}
	writeArtifact(name, "schedule.json", data)

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d physicians assigned)\n", name, result.Status, len(result.Schedule.Assignments))
	return exitFeasible
}

func reportInfeasible(cmd *cobra.Command, name string, result *engine.Result, st *store.Store) int {
	explainer := explain.NewExplainer()
	explanation, _ := explainer.Explain(cmd.Context(), result.Diagnosis)

	traceJSON, err := engine.TraceJSON(result.Diagnosis.Trace)
	if err != nil {
		traceJSON = []byte("{}")
	}
	writeArtifact(name, "trace.json", traceJSON)

	diagJSON, _ := json.MarshalIndent(explanation, "", "  ")
	writeArtifact(name, "diagnosis.json", diagJSON)

	if err := st.SaveScheduleWithTrace(name, "null", result.Status.String(), string(traceJSON)); err != nil {
		fmt.Fprintf(os.Stderr, "%s: save diagnosis: %v\n", name, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d unresolved groups)\n", name, result.Status, len(result.Diagnosis.UnresolvableGroups))
	for _, g := range result.Diagnosis.UnresolvableGroups {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", g)
	}
	if explanation.Prose != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", explanation.Prose)
	}
	return exitInfeasible
}

func loadScheduleHint(scenarioDir, scheduleScenario string) (engine.InitialSchedule, error) {
	path := filepath.Join(scenarioDir, scheduleScenario, "schedule.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schedule hint: %w", err)
	}
	records, err := engine.ScheduleFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("schedule hint: %w", err)
	}
	return engine.HintFromRecords(records), nil
}

func writeArtifact(scenario, filename string, data []byte) {
	dir := filepath.Join("debug", scenario)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, filename), data, 0o644)
}
