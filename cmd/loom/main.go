package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/loomhq/loom/pkg/config"
	loommcp "github.com/loomhq/loom/pkg/mcp"
	"github.com/loomhq/loom/pkg/session"
	"github.com/loomhq/loom/pkg/skills"
	"github.com/loomhq/loom/pkg/telemetry"
	"github.com/loomhq/loom/pkg/transition"
	"github.com/loomhq/loom/pkg/wrapper"
)

const version = "0.3.0"

type globalFlags struct {
	ConfigPath string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(global.ConfigPath)
	if err != nil {
		fatal(err)
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	switch cmd {
	case "skills":
		err = runSkills(global, cfg, sub, args[2:])
	case "wrappers":
		err = runWrappers(global, cfg, sub)
	case "validate":
		err = runValidate(cfg)
	case "mcp":
		err = runMCP(ctx, cfg)
	case "version":
		fmt.Println(version)
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fatal(err)
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	fs := flag.NewFlagSet("loom", flag.ContinueOnError)
	var global globalFlags
	fs.StringVar(&global.ConfigPath, "config", "", "path to loom.yaml")
	fs.BoolVar(&global.JSON, "json", false, "emit JSON output")
	fs.BoolVar(&global.Help, "help", false, "show usage")
	if err := fs.Parse(args); err != nil {
		return globalFlags{}, nil, err
	}
	return global, fs.Args(), nil
}

func loadCatalogs(cfg *config.Config) (*skills.Catalog, *wrapper.Catalog, error) {
	skillCatalog := skills.NewCatalog([]skills.Root{
		{Path: cfg.Skills.BuiltinDir, Source: skills.SourceBuiltin},
		{Path: cfg.Skills.UserDir, Source: skills.SourceUser},
	})
	if _, err := skillCatalog.Reload(); err != nil {
		return nil, nil, fmt.Errorf("loading skills: %w", err)
	}
	wrapperCatalog := wrapper.NewCatalog([]string{cfg.Skills.WrapperDir}, skillCatalog)
	if _, err := wrapperCatalog.Reload(); err != nil {
		return nil, nil, fmt.Errorf("loading wrappers: %w", err)
	}
	return skillCatalog, wrapperCatalog, nil
}

func runSkills(global globalFlags, cfg *config.Config, sub string, rest []string) error {
	skillCatalog, _, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}
	switch sub {
	case "", "list":
		list := skillCatalog.List()
		if global.JSON {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tHOOKS\tSOURCE")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", s.ID, s.Name, s.Type, s.Hooks, s.Source)
		}
		return w.Flush()
	case "show":
		if len(rest) == 0 {
			return fmt.Errorf("usage: loom skills show <id>")
		}
		skill, err := skillCatalog.Get(rest[0])
		if err != nil {
			return err
		}
		if global.JSON {
			return printJSON(skill)
		}
		fmt.Printf("id:            %s\n", skill.ID)
		fmt.Printf("name:          %s\n", skill.Name)
		fmt.Printf("description:   %s\n", skill.Description)
		fmt.Printf("type:          %s\n", skill.Type)
		fmt.Printf("hooks:         %v\n", skill.Hooks)
		fmt.Printf("maxIterations: %d\n", skill.MaxIterations)
		fmt.Printf("doneSignal:    %s\n", skill.DoneSignal)
		fmt.Printf("path:          %s\n", skill.Path)
		fmt.Printf("\n%s\n", skill.PromptTemplate)
		return nil
	default:
		return fmt.Errorf("unknown skills subcommand %q", sub)
	}
}

func runWrappers(global globalFlags, cfg *config.Config, sub string) error {
	_, wrapperCatalog, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}
	switch sub {
	case "", "list":
		list := wrapperCatalog.List()
		if global.JSON {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRE\tPOST")
		for _, wr := range list {
			fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", wr.ID, wr.Name, wr.PreExecutionSkills, wr.PostExecutionSkills)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown wrappers subcommand %q", sub)
	}
}

// runValidate reloads both catalogs and opens the configured event store.
// Invalid skills and dangling wrappers surface as warnings in the logs; the
// command fails only on unreadable roots or a store that cannot be opened.
func runValidate(cfg *config.Config) error {
	skillCatalog, wrapperCatalog, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}
	_, closeStore, err := openEventStore(cfg)
	if err != nil {
		return fmt.Errorf("opening event store: %w", err)
	}
	defer closeStore()
	fmt.Printf("skills: %d\nwrappers: %d\nevent store: %s\n",
		len(skillCatalog.List()), len(wrapperCatalog.List()), cfg.Events.Store)
	return nil
}

func runMCP(ctx context.Context, cfg *config.Config) error {
	// Stdout carries the MCP protocol, so telemetry only goes out over OTLP.
	if cfg.Telemetry.Exporter == "otlp" {
		shutdown, err := telemetry.InitWithConfig("loom", version, telemetry.Config{
			Exporter:     cfg.Telemetry.Exporter,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure: cfg.Telemetry.OTLPInsecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	skillCatalog, wrapperCatalog, err := loadCatalogs(cfg)
	if err != nil {
		return err
	}
	registry := session.NewRegistry()

	// Reload catalogs when manifests change on disk.
	watcher := config.NewWatcher([]string{
		cfg.Skills.BuiltinDir,
		cfg.Skills.UserDir,
		cfg.Skills.WrapperDir,
	}, config.WithWatchInterval(2*time.Second))
	watcher.OnChange(func() {
		if _, err := skillCatalog.Reload(); err != nil {
			return
		}
		_, _ = wrapperCatalog.Reload()
	})
	watcher.Start(ctx)
	defer watcher.Stop()

	server := loommcp.NewServer("loom", version)
	loommcp.RegisterCoordinatorTools(server, skillCatalog, wrapperCatalog, registry)
	return server.ServeStdio()
}

func openEventStore(cfg *config.Config) (transition.EventStore, func() error, error) {
	switch cfg.Events.Store {
	case "memory":
		return transition.NewMemoryEventStore(), func() error { return nil }, nil
	case "", "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Events.Path), 0o755); err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("sqlite", cfg.Events.Path)
		if err != nil {
			return nil, nil, err
		}
		store, err := transition.NewSQLiteEventStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown event store %q", cfg.Events.Store)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Println(`loom - skill hook execution and session state coordinator

Usage:
  loom [flags] <command>

Commands:
  skills list          List skills in the catalog
  skills show <id>     Show one skill, including its prompt template
  wrappers list        List wrappers in the catalog
  validate             Reload catalogs and report admitted entries
  mcp                  Serve read-only coordinator tools over stdio
  version              Print the version

Flags:
  -config <path>       Path to loom.yaml
  -json                Emit JSON output`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "loom: %v\n", err)
	os.Exit(1)
}
