// snow-console is the terminal incident console. Without a command it
// opens the interactive view; list, create, edit and delete run a single
// workflow against the proxy API and exit.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/cragr/snow-incident-console/internal/apiclient"
	"github.com/cragr/snow-incident-console/internal/config"
	"github.com/cragr/snow-incident-console/internal/console"
	"github.com/cragr/snow-incident-console/internal/logging"
	"github.com/cragr/snow-incident-console/internal/models"
	"github.com/cragr/snow-incident-console/internal/tui"
)

// probeTimeout bounds the startup session check.
const probeTimeout = 10 * time.Second

type options struct {
	configPath   string
	apiURL       string
	sessionToken string
	logFile      string
	logLevel     string

	field  string
	search string
	yes    bool

	description string
	state       string
	impact      string
	urgency     string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("snow-console", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to YAML console config")
	flagSet.StringVar(&opts.apiURL, "api-url", "", "proxy API base URL (overrides config)")
	flagSet.StringVar(&opts.sessionToken, "session-token", "", "session cookie value (overrides config)")
	flagSet.StringVar(&opts.logFile, "log-file", "", "write JSON log records to this file")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.StringVar(&opts.field, "field", string(console.FieldNumber), "list: search field (number, state, short_description)")
	flagSet.StringVar(&opts.search, "search", "", "list: case-insensitive search term")
	flagSet.BoolVarP(&opts.yes, "yes", "y", false, "delete: skip the confirmation prompt")
	flagSet.StringVar(&opts.description, "description", "", "create/edit: short description")
	flagSet.StringVar(&opts.state, "state", "", "edit: New, In Progress, On Hold, Resolved or Closed")
	flagSet.StringVar(&opts.impact, "impact", "", "create/edit: high, medium, low or 1-3")
	flagSet.StringVar(&opts.urgency, "urgency", "", "create/edit: high, medium, low or 1-3")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.LoadConsole(opts.configPath)
	if err != nil {
		return err
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.sessionToken != "" {
		cfg.SessionToken = opts.sessionToken
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Discard()
	if cfg.LogFile != "" {
		fileLogger, file, err := logging.NewFileLogger(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
		if err != nil {
			return err
		}
		defer file.Close()
		logger = fileLogger
	}

	client, err := apiclient.NewClient(cfg, logging.WithComponent(logger, "apiclient"))
	if err != nil {
		return err
	}

	session := console.NewRemoteSession(client)
	probeCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	probeErr := session.Probe(probeCtx)
	cancel()
	if probeErr != nil {
		logger.Warn("session probe failed", "error", probeErr)
	}

	store := console.NewStore(client, session, logging.WithComponent(logger, "store"))

	args := flagSet.Args()
	command := "tui"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if command == "tui" {
		return runTUI(cfg, client, store, session, logger)
	}

	if !session.Authenticated() {
		if probeErr != nil {
			return fmt.Errorf("cannot reach %s: %w", cfg.APIURL, probeErr)
		}
		return errors.New("not logged in: set --session-token or CONSOLE_SESSION_TOKEN")
	}

	// The process exits after one command, so the post-create refresh is
	// dropped rather than left on a timer that never fires.
	workflows := console.New(client, store, console.Options{
		CreateRefreshDelay: cfg.CreateRefreshDelay,
		Scheduler:          console.DiscardScheduler{},
	}, logging.WithComponent(logger, "console"))

	ctx := context.Background()
	switch command {
	case "list":
		return runList(ctx, store, opts)
	case "create":
		return runCreate(ctx, workflows, opts)
	case "edit":
		return runEdit(ctx, workflows, flagSet, args, opts)
	case "delete":
		return runDelete(ctx, workflows, args, opts)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `snow-console: terminal console for ServiceNow incidents.

Usage:
  snow-console [flags] [command] [args]

Commands:
  tui                     interactive console (default)
  list                    print incidents, optionally filtered
  create                  create an incident (prints the new number; run
                          list afterwards to see it in the list)
  edit <number|sys_id>    update an incident
  delete <number|sys_id>  delete an incident

Examples:
  snow-console --api-url http://localhost:3001
  snow-console list --field state --search "in progress"
  snow-console create --description "VPN down" --impact high --urgency medium
  snow-console edit INC0010001 --state Resolved
  snow-console delete INC0010001 --yes

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

func runTUI(cfg *config.ConsoleConfig, client *apiclient.Client, store *console.Store, session console.Session, logger *slog.Logger) error {
	var program *tea.Program

	workflows := console.New(client, store, console.Options{
		CreateRefreshDelay: cfg.CreateRefreshDelay,
		OnRefresh: func(err error) {
			if program != nil {
				program.Send(tui.RefreshedMsg(err))
			}
		},
	}, logging.WithComponent(logger, "console"))

	program = tea.NewProgram(tui.New(workflows, session), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func runList(ctx context.Context, store *console.Store, opts options) error {
	field, err := console.ParseSearchField(opts.field)
	if err != nil {
		return err
	}
	if err := store.Refresh(ctx); err != nil {
		return errors.New(console.UserMessage(console.OpList, err))
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "NUMBER\tSTATE\tPRIORITY\tIMPACT\tURGENCY\tDESCRIPTION")
	for _, incident := range console.Filter(store.Snapshot(), opts.search, field) {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			incident.Number,
			incident.State,
			orDash(incident.Priority, models.PriorityName),
			orDash(incident.Impact, models.LevelName),
			orDash(incident.Urgency, models.LevelName),
			incident.ShortDescription,
		)
	}
	return writer.Flush()
}

func orDash(value int, name func(int) string) string {
	if value == 0 {
		return "-"
	}
	return fmt.Sprintf("%d - %s", value, name(value))
}

func runCreate(ctx context.Context, workflows *console.Console, opts options) error {
	draft := console.CreateDraft{ShortDescription: opts.description}

	var err error
	if opts.impact != "" {
		if draft.Impact, err = parseLevelFlag("impact", opts.impact); err != nil {
			return err
		}
	}
	if opts.urgency != "" {
		if draft.Urgency, err = parseLevelFlag("urgency", opts.urgency); err != nil {
			return err
		}
	}

	created, err := workflows.Create(ctx, draft)
	if err != nil {
		return errors.New(console.UserMessage(console.OpCreate, err))
	}
	fmt.Printf("created %s (%s)\n", created.Number, created.SysID)
	return nil
}

func runEdit(ctx context.Context, workflows *console.Console, flagSet *pflag.FlagSet, args []string, opts options) error {
	incident, err := lookup(ctx, workflows.Store(), args)
	if err != nil {
		return err
	}

	draft := console.NewEditDraft(incident)
	if flagSet.Changed("description") {
		draft.ShortDescription = opts.description
	}
	if flagSet.Changed("state") {
		state, err := parseStateFlag(opts.state)
		if err != nil {
			return err
		}
		draft.State = state
	}
	if flagSet.Changed("impact") {
		if draft.Impact, err = parseLevelFlag("impact", opts.impact); err != nil {
			return err
		}
	}
	if flagSet.Changed("urgency") {
		if draft.Urgency, err = parseLevelFlag("urgency", opts.urgency); err != nil {
			return err
		}
	}

	if _, err := workflows.Edit(ctx, draft); err != nil {
		return errors.New(console.UserMessage(console.OpUpdate, err))
	}
	fmt.Printf("updated %s\n", incident.Number)
	return nil
}

func runDelete(ctx context.Context, workflows *console.Console, args []string, opts options) error {
	incident, err := lookup(ctx, workflows.Store(), args)
	if err != nil {
		return err
	}

	confirm := console.ConfirmFunc(func(prompt string) bool {
		return opts.yes || promptYes(fmt.Sprintf("%s %s %q", prompt, incident.Number, incident.ShortDescription))
	})
	if !opts.yes && !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("refusing to delete without --yes when stdin is not a terminal")
	}

	deleted, err := workflows.Delete(ctx, incident.SysID, confirm)
	if err != nil {
		return errors.New(console.UserMessage(console.OpDelete, err))
	}
	if !deleted {
		fmt.Println("cancelled")
		return nil
	}
	fmt.Printf("deleted %s\n", incident.Number)
	return nil
}

// lookup refreshes the store and finds the incident named by a number or
// sys_id argument.
func lookup(ctx context.Context, store *console.Store, args []string) (models.Incident, error) {
	if len(args) != 1 {
		return models.Incident{}, errors.New("expected one incident number or sys_id")
	}
	if err := store.Refresh(ctx); err != nil {
		return models.Incident{}, errors.New(console.UserMessage(console.OpList, err))
	}

	if incident, ok := store.Get(args[0]); ok {
		return incident, nil
	}
	for _, incident := range store.Snapshot() {
		if strings.EqualFold(incident.Number, args[0]) {
			return incident, nil
		}
	}
	return models.Incident{}, fmt.Errorf("incident %s not found", args[0])
}

func promptYes(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func parseLevelFlag(name, value string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high":
		return models.LevelHigh, nil
	case "medium":
		return models.LevelMedium, nil
	case "low":
		return models.LevelLow, nil
	}
	level, err := strconv.Atoi(value)
	if err != nil || !models.ValidLevel(level) {
		return 0, fmt.Errorf("--%s must be high, medium, low or 1-3, got %q", name, value)
	}
	return level, nil
}

func parseStateFlag(value string) (string, error) {
	for _, state := range models.States {
		if strings.EqualFold(state, strings.TrimSpace(value)) {
			return state, nil
		}
	}
	return "", fmt.Errorf("--state must be one of %s", strings.Join(models.States, ", "))
}
