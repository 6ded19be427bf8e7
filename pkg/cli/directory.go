package cli

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/helpdesk/pkg/directory"
)

// loadTable returns the default table, or the table in path when set
func loadTable(path string, logger *logrus.Logger) (*directory.Table, error) {
	table := directory.NewTable(directory.WithLogger(libraryLogger(logger)))
	if path == "" {
		logger.Debug("Using built-in department mappings")
		return table, nil
	}
	if err := table.LoadFile(path); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"file":     path,
		"mappings": table.Len(),
	}).Debug("Loaded department mappings")
	return table, nil
}

func newOUCommand() *Command {
	cmd := &Command{
		Name:        "ou",
		Description: "Look up the organizational unit of a department",
		Flags:       flag.NewFlagSet("ou", flag.ContinueOnError),
		Run:         runOU,
	}

	cmd.Flags.String("mappings", "", "Department mappings file (built-in table when empty)")
	cmd.Flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

func runOU(args []string) error {
	cmd := newOUCommand()
	cmd.Flags.SetOutput(stderr)
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	if cmd.Flags.NArg() != 1 {
		return fmt.Errorf("usage: ou [-mappings file] <department>")
	}
	department := cmd.Flags.Arg(0)

	logger := newLogger(cmd.Flags.Lookup("log-level").Value.String())
	table, err := loadTable(cmd.Flags.Lookup("mappings").Value.String(), logger)
	if err != nil {
		return err
	}

	ou := table.OrganizationalUnit(department)
	if ou == "" {
		return fmt.Errorf("no organizational unit for department %q", department)
	}
	fmt.Fprintln(stdout, ou)
	return nil
}

func newDepartmentsCommand() *Command {
	cmd := &Command{
		Name:        "departments",
		Description: "List department mappings",
		Flags:       flag.NewFlagSet("departments", flag.ContinueOnError),
		Run:         runDepartments,
	}

	cmd.Flags.String("mappings", "", "Department mappings file (built-in table when empty)")
	cmd.Flags.Bool("sorted", false, "Order by department name")
	cmd.Flags.String("format", "table", "Output format (table, yaml, json)")
	cmd.Flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

func runDepartments(args []string) error {
	cmd := newDepartmentsCommand()
	cmd.Flags.SetOutput(stderr)
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	logger := newLogger(cmd.Flags.Lookup("log-level").Value.String())
	table, err := loadTable(cmd.Flags.Lookup("mappings").Value.String(), logger)
	if err != nil {
		return err
	}

	mappings := table.Mappings()
	if cmd.Flags.Lookup("sorted").Value.String() == "true" {
		mappings = table.Sorted()
	}

	switch format := cmd.Flags.Lookup("format").Value.String(); format {
	case "table":
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tDEPARTMENT\tOU")
		for i, m := range mappings {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i, m.Department, m.OrganizationalUnit)
		}
		return tw.Flush()
	case "yaml":
		data, err := directory.MarshalMappings(mappings)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	case "json":
		return writeJSON(mappings)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
