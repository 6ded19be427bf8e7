package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Output streams, replaced in tests
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	stdin  io.Reader = os.Stdin
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "helpdesk",
		Description: "Helpdesk - identity and directory tooling",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("helpdesk", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["resolve"] = newResolveCommand()
	root.Subcommands["check"] = newCheckCommand()
	root.Subcommands["ou"] = newOUCommand()
	root.Subcommands["departments"] = newDepartmentsCommand()
	root.Subcommands["session"] = newSessionCommand()

	return root
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command with args
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(stdout, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(stdout, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(stdout, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
