package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"github.com/sqldef/dbevolve"
	"github.com/sqldef/dbevolve/database"
	"github.com/sqldef/dbevolve/database/file"
	"github.com/sqldef/dbevolve/database/mssql"
	"github.com/sqldef/dbevolve/database/mysql"
	"github.com/sqldef/dbevolve/database/postgres"
	"github.com/sqldef/dbevolve/database/sqlite3"
	"github.com/sqldef/dbevolve/schema"
	"github.com/sqldef/dbevolve/util"
	"golang.org/x/term"
)

// version and revision are set via -ldflags
var version = "dev"
var revision = "HEAD"

// exit status when the plan is declined at the prompt
const exitDeclined = 2

type cliOptions struct {
	dbType      string
	schemaFile  string
	currentFile string
	yes         bool
	dryRun      bool
	debug       bool
	config      database.GeneratorConfig
}

var defaultPorts = map[string]uint{
	"postgres": 5432,
	"mysql":    3306,
	"mssql":    1433,
}

func parseOptions(args []string) (database.Config, *cliOptions) {
	var configs []database.GeneratorConfig

	var opts struct {
		Type     string `long:"type" description:"Type of database" choice:"postgres" choice:"mysql" choice:"sqlite3" choice:"mssql" default:"postgres"`
		User     string `short:"u" long:"user" description:"Database user name" value-name:"user_name"`
		Password string `short:"p" long:"password" description:"Database user password, overridden by $PGPASSWORD or $MYSQL_PWD" value-name:"password"`
		Host     string `short:"h" long:"host" description:"Host to connect to the database server" value-name:"host_name" default:"127.0.0.1"`
		Port     uint   `short:"P" long:"port" description:"Port used for the connection, the default port of --type when omitted" value-name:"port_num"`
		Socket   string `short:"S" long:"socket" description:"The socket file to use for connection" value-name:"socket"`
		Prompt   bool   `long:"password-prompt" description:"Force database user password prompt"`
		Schema   string `long:"schema" description:"Read the declared tables from the YAML file, rather than stdin" value-name:"schema_file" default:"-"`
		Current  string `long:"current" description:"Plan against a YAML catalog snapshot instead of a database; the plan is only shown" value-name:"snapshot_file"`
		DryRun   bool   `long:"dry-run" description:"Don't run statements but just show them"`
		Yes      bool   `long:"yes" description:"Apply without asking for confirmation"`
		Debug    bool   `long:"debug" description:"Dump the computed changes to stderr and enable debug logs"`
		Help     bool   `long:"help" description:"Show this help"`
		Version  bool   `long:"version" description:"Show this version"`

		// Custom handlers for config flags to preserve order
		Config       func(string) `long:"config" description:"YAML file to specify: target_tables, skip_tables, dump_concurrency, schema (can be specified multiple times)"`
		ConfigInline func(string) `long:"config-inline" description:"YAML object to specify: target_tables, skip_tables, dump_concurrency, schema (can be specified multiple times)"`
	}

	opts.Config = func(path string) {
		configs = append(configs, database.ParseGeneratorConfig(path))
	}
	opts.ConfigInline = func(yaml string) {
		configs = append(configs, database.ParseGeneratorConfigString(yaml))
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[OPTIONS] [database] < schema.yml"
	args, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Printf("%s (%s)\n", version, revision)
		os.Exit(0)
	}

	options := &cliOptions{
		dbType:      opts.Type,
		schemaFile:  opts.Schema,
		currentFile: opts.Current,
		yes:         opts.Yes,
		dryRun:      opts.DryRun,
		debug:       opts.Debug,
		config:      database.MergeGeneratorConfigs(configs),
	}

	var databaseName string
	switch {
	case len(args) == 0 && options.currentFile == "":
		fmt.Print("No database is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	case len(args) > 1:
		fmt.Printf("Multiple databases are given: %v\n\n", args)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	case len(args) == 1:
		databaseName = args[0]
	}

	password := opts.Password
	for _, env := range []string{"PGPASSWORD", "MYSQL_PWD"} {
		if value, ok := os.LookupEnv(env); ok {
			password = value
		}
	}
	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println()
		password = string(pass)
	}

	port := opts.Port
	if port == 0 {
		port = defaultPorts[opts.Type]
	}

	return database.Config{
		DbName:       databaseName,
		User:         opts.User,
		Password:     password,
		Host:         opts.Host,
		Port:         int(port),
		Socket:       opts.Socket,
		TargetSchema: options.config.TargetSchema,
	}, options
}

func openDatabase(dbType string, config database.Config) (database.Database, error) {
	switch strings.ToLower(dbType) {
	case "postgres":
		return postgres.NewDatabase(config)
	case "mysql":
		return mysql.NewDatabase(config)
	case "sqlite3":
		return sqlite3.NewDatabase(config)
	case "mssql":
		return mssql.NewDatabase(config)
	default:
		return nil, fmt.Errorf("unknown database type: %s", dbType)
	}
}

func main() {
	config, options := parseOptions(os.Args[1:])
	if options.debug {
		util.InitSlog(slog.LevelDebug)
	} else {
		util.InitSlog(slog.LevelInfo)
	}

	buf, err := dbevolve.ReadFile(options.schemaFile)
	if err != nil {
		log.Fatalf("Failed to read '%s': %s", options.schemaFile, err)
	}
	registry := schema.NewRegistry()
	if err := schema.LoadYAML(buf, registry); err != nil {
		log.Fatalf("Failed to load '%s': %s", options.schemaFile, err)
	}

	var db database.Database
	if options.currentFile != "" {
		db, err = file.NewDatabase(options.currentFile)
		// A snapshot cannot be migrated, so only show the plan.
		options.dryRun = true
	} else {
		db, err = openDatabase(options.dbType, config)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if options.debug {
		if err := dumpChanges(ctx, db, registry, options.config); err != nil {
			log.Fatal(err)
		}
	}

	evolveOptions := &dbevolve.Options{
		Interactive: !options.yes && !options.dryRun,
		DryRun:      options.dryRun,
		Config:      options.config,
		Validate:    validatorFor(db.Dialect()),
	}
	if evolveOptions.Interactive {
		confirmer, closeConfirmer, err := openConfirmer(os.Stdin, os.Stdout, openTTY)
		if err != nil {
			log.Fatal(err)
		}
		defer closeConfirmer()
		evolveOptions.Confirmer = confirmer
	}

	err = dbevolve.Evolve(ctx, db, registry, evolveOptions)
	if errors.Is(err, dbevolve.ErrDeclined) {
		fmt.Println("Migration aborted.")
		db.Close()
		os.Exit(exitDeclined)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// openConfirmer reads the answer from stdin when it is a terminal. When the schema was piped
// in, stdin is exhausted and the controlling terminal is asked instead.
func openConfirmer(stdin *os.File, out io.Writer, openTTY func() (*os.File, error)) (dbevolve.Confirmer, func() error, error) {
	if term.IsTerminal(int(stdin.Fd())) {
		return dbevolve.NewTerminalConfirmer(stdin, out), func() error { return nil }, nil
	}
	tty, err := openTTY()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot ask for confirmation, stdin is not a terminal (%w): pass --schema FILE or --yes", err)
	}
	return dbevolve.NewTerminalConfirmer(tty, out), tty.Close, nil
}

func openTTY() (*os.File, error) {
	return os.Open("/dev/tty")
}

// validatorFor returns the plan check of a dialect, nil when there is none.
func validatorFor(dialect string) func([]database.Statement) error {
	switch dialect {
	case "postgres", "postgresql", "pq":
		return postgres.ValidateStatements
	default:
		return nil
	}
}

func dumpChanges(ctx context.Context, db database.Database, registry *schema.Registry, config database.GeneratorConfig) error {
	catalog, err := database.Introspect(ctx, db, config)
	if err != nil {
		return err
	}
	changes, err := schema.GenerateChanges(catalog, registry, config)
	if err != nil {
		return err
	}
	pp.Fprintln(os.Stderr, changes)
	return nil
}
