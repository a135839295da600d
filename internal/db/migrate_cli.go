package db

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
)

// MigrateCLI runs the 'migrate' subcommand against one database file.
type MigrateCLI struct {
	DBPath     string
	Migrations fs.FS
	Out        io.Writer
	In         io.Reader // confirmation source for force
}

// RunMigrateCommand dispatches the 'migrate' subcommand using the embedded
// migrations and the process's stdio.
func RunMigrateCommand(args []string, dbPath string) error {
	cli := &MigrateCLI{DBPath: dbPath, Migrations: MigrationsFS(), Out: os.Stdout, In: os.Stdin}
	return cli.Run(args)
}

// Run executes one migrate action.
func (c *MigrateCLI) Run(args []string) error {
	if len(args) < 1 {
		c.PrintHelp()
		return fmt.Errorf("missing migrate action")
	}
	action := args[0]
	if action == "help" {
		c.PrintHelp()
		return nil
	}

	// Open without migrating; the actions below manage the schema.
	database, err := OpenDB(c.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	needVersion := func() (string, error) {
		if len(args) < 2 {
			return "", fmt.Errorf("usage: deadspace migrate %s <version_number>", action)
		}
		return args[1], nil
	}

	switch action {
	case "up":
		return c.up(database)
	case "down":
		return c.down(database)
	case "status":
		return c.status(database)
	case "version":
		v, err := needVersion()
		if err != nil {
			return err
		}
		return c.migrateTo(database, v)
	case "force":
		v, err := needVersion()
		if err != nil {
			return err
		}
		return c.force(database, v)
	case "baseline":
		v, err := needVersion()
		if err != nil {
			return err
		}
		return c.baseline(database, v)
	default:
		fmt.Fprintf(c.Out, "Unknown migrate action: %s\n\n", action)
		c.PrintHelp()
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

func (c *MigrateCLI) up(database *DB) error {
	log.Printf("Running migrations...")
	if err := database.MigrateUp(c.Migrations); err != nil {
		return err
	}
	version, dirty, _ := database.MigrateVersion(c.Migrations)
	log.Printf("✓ All migrations applied, current version: %d (dirty: %v)", version, dirty)
	return nil
}

func (c *MigrateCLI) down(database *DB) error {
	log.Printf("Rolling back one migration...")
	if err := database.MigrateDown(c.Migrations); err != nil {
		return err
	}
	version, dirty, _ := database.MigrateVersion(c.Migrations)
	log.Printf("✓ Migration rolled back, current version: %d (dirty: %v)", version, dirty)
	return nil
}

func (c *MigrateCLI) status(database *DB) error {
	status, err := database.GetMigrationStatus(c.Migrations)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "=== Migration Status ===")
	fmt.Fprintf(c.Out, "Current version: %d\n", status.CurrentVersion)
	fmt.Fprintf(c.Out, "Latest available: %d\n", status.LatestVersion)
	fmt.Fprintf(c.Out, "Dirty: %v\n", status.Dirty)
	fmt.Fprintf(c.Out, "Schema migrations table exists: %v\n", status.SchemaMigrationsExists)

	switch {
	case status.Dirty:
		fmt.Fprintln(c.Out, "\n⚠️  WARNING: Database is in a dirty state!")
		fmt.Fprintln(c.Out, "A migration failed mid-execution. Inspect the database, then run:")
		fmt.Fprintln(c.Out, "  deadspace migrate force <version>")
	case status.Pending():
		fmt.Fprintf(c.Out, "\n⚠️  Database is %d version(s) behind. Run 'deadspace migrate up'.\n",
			status.LatestVersion-status.CurrentVersion)
	default:
		fmt.Fprintln(c.Out, "\n✓ Database is up to date")
	}
	return nil
}

func parseVersion(s string) (uint, error) {
	var v uint
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid version number: %s", s)
	}
	return v, nil
}

func (c *MigrateCLI) migrateTo(database *DB, versionStr string) error {
	target, err := parseVersion(versionStr)
	if err != nil {
		return err
	}
	log.Printf("Migrating to version %d...", target)
	if err := database.MigrateTo(c.Migrations, target); err != nil {
		return err
	}
	log.Printf("✓ Migrated to version %d", target)
	return nil
}

func (c *MigrateCLI) force(database *DB, versionStr string) error {
	v, err := parseVersion(versionStr)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.Out, "⚠️  WARNING: Forcing migration version to %d\n", v)
	fmt.Fprintln(c.Out, "This should only be used to recover from a dirty migration state.")
	fmt.Fprint(c.Out, "Continue? [y/N]: ")

	response := ""
	if c.In != nil {
		line, _ := bufio.NewReader(c.In).ReadString('\n')
		response = strings.TrimSpace(line)
	}
	if response != "y" && response != "Y" {
		log.Println("Aborted")
		return nil
	}

	if err := database.MigrateForce(c.Migrations, int(v)); err != nil {
		return err
	}
	log.Printf("✓ Migration version forced to %d", v)
	return nil
}

func (c *MigrateCLI) baseline(database *DB, versionStr string) error {
	v, err := parseVersion(versionStr)
	if err != nil {
		return err
	}
	log.Printf("Baselining database at version %d...", v)
	if err := database.BaselineAtVersion(v); err != nil {
		return fmt.Errorf("baseline failed: %w", err)
	}
	log.Printf("✓ Database baselined at version %d", v)
	return nil
}

// PrintHelp displays the help message for the migrate command.
func (c *MigrateCLI) PrintHelp() {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprint(out, `Database Migration Commands

Usage: deadspace migrate <command> [options]

Commands:
  up              Apply all pending migrations
  down            Rollback one migration
  status          Show current migration status and version
  version <N>     Migrate to specific version N
  force <N>       Force migration version to N (recovery only)
  baseline <N>    Set migration version to N without running migrations
  help            Show this help message

Examples:
  deadspace migrate up
  deadspace migrate status
  deadspace migrate version 1

Options:
  -db <path>      Path to the run-history database (default: deadspace.db)
`)
}
