package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"evparse/internal/config"
	"evparse/internal/event"
	"evparse/internal/ics"
	appLog "evparse/internal/log"
	"evparse/internal/model"
	"evparse/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	timezone   string
	now        string
	listen     string
	printICS   bool
	store      bool
	agenda     bool
	serve      bool
	verbose    bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	applyFlags(conf, flags)

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Debug("effective config",
		"config_path", flags.configPath,
		"timezone", conf.Timezone,
		"calendar", conf.Calendar,
		"default_duration_minutes", conf.DefaultDurationMinutes,
		"listen", conf.Listen,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, flags, os.Stdin, os.Stdout); err != nil {
		appLog.Error("evparse failed", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.timezone, "tz", "", "IANA timezone (overrides config if set)")
	flag.StringVar(&cfg.now, "now", "", "Reference time in RFC 3339 (default: current time)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.printICS, "ics", false, "Print each event as a VCALENDAR")
	flag.BoolVar(&cfg.store, "out", false, "Append each event to the calendar file")
	flag.BoolVar(&cfg.agenda, "agenda", false, "List upcoming occurrences from the calendar file and exit")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the HTTP API instead of reading stdin")
	flag.BoolVar(&cfg.verbose, "v", false, "Debug logging")

	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "evparse", "config.yaml")
}

// applyFlags lets CLI flags override the config file.
func applyFlags(conf *config.Config, flags flagConfig) {
	if flags.timezone != "" {
		conf.Timezone = flags.timezone
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.verbose {
		conf.LogLevel = string(appLog.LevelDebug)
	}
}

func run(ctx context.Context, conf *config.Config, flags flagConfig, in io.Reader, out io.Writer) error {
	if flags.serve {
		return web.StartServer(ctx, conf)
	}

	loc, err := conf.Location()
	if err != nil {
		return err
	}
	ref, err := referenceTime(flags.now, loc)
	if err != nil {
		return err
	}

	if flags.agenda {
		return printAgenda(out, conf, loc, ref)
	}
	return repl(in, out, conf, flags, ref)
}

// referenceTime returns the fixed reference from -now, or the zero time
// meaning "now" at each line.
func referenceTime(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse -now %q: %w", v, err)
	}
	return t.In(loc), nil
}

// repl reads one event description per line and prints its span.
func repl(in io.Reader, out io.Writer, conf *config.Config, flags flagConfig, ref time.Time) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}
	composer := event.Composer{DefaultDuration: conf.DefaultDuration()}

	fmt.Fprintln(out, "e.g. Lunch at 12pm")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		now := ref
		if now.IsZero() {
			now = time.Now().In(loc)
		}
		span := composer.Build(line, now)
		fmt.Fprintln(out, span.Format())

		ev := span.Event(uuid.NewString(), conf.DefaultSummary)
		if flags.printICS {
			fmt.Fprint(out, ics.Encode([]model.Event{ev}, now))
		}
		if flags.store {
			if err := ics.AppendFile(conf.Calendar, []model.Event{ev}, now); err != nil {
				appLog.Error("failed to store event", err, "path", conf.Calendar)
				continue
			}
			fmt.Fprintf(out, "Saved to %s\n", conf.Calendar)
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// printAgenda lists occurrences from the calendar file for the next
// conf.AgendaDays days.
func printAgenda(out io.Writer, conf *config.Config, loc *time.Location, ref time.Time) error {
	if ref.IsZero() {
		ref = time.Now().In(loc)
	}
	events, err := ics.ReadFile(conf.Calendar, loc)
	if err != nil {
		return err
	}

	start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	res, err := ics.ExpandOccurrences(events, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      start,
		RangeEnd:        start.AddDate(0, 0, conf.AgendaDays),
	})
	if err != nil {
		return err
	}

	if len(res.Occurrences) == 0 {
		fmt.Fprintln(out, "No upcoming events.")
		return nil
	}
	for _, occ := range res.Occurrences {
		if occ.AllDay {
			fmt.Fprintf(out, "%s  all day         %s\n", occ.Start.Format("Mon Jan 02"), occ.Summary)
			continue
		}
		fmt.Fprintf(out, "%s  %s-%s  %s\n", occ.Start.Format("Mon Jan 02"),
			occ.Start.Format("03:04pm"), occ.End.Format("03:04pm"), occ.Summary)
	}
	return nil
}
