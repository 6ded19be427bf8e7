package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
)

// resolveResult is the JSON printed by resolve
type resolveResult struct {
	*identity.ResolvedIdentity
	Decision *rbac.Decision `json:"decision,omitempty"`
}

// claimsFlags are shared by the commands that resolve a claims payload
type claimsFlags struct {
	file       *string
	orgDomain  *string
	adminUsers *string
	logLevel   *string
}

func addClaimsFlags(fs *flag.FlagSet) claimsFlags {
	return claimsFlags{
		file:       fs.String("file", "-", "Claims JSON file (- for stdin)"),
		orgDomain:  fs.String("org-domain", identity.DefaultOrgDomain, "Domain appended to bare usernames"),
		adminUsers: fs.String("admin-users", strings.Join(rbac.DefaultAdminUsers, ","), "Comma-separated administrator emails"),
		logLevel:   fs.String("log-level", "warn", "Log level (debug, info, warn, error)"),
	}
}

// service builds an identity service over the claims file
func (f claimsFlags) service(logger *logrus.Logger) (*identity.Service, error) {
	payload, err := readInput(*f.file)
	if err != nil {
		return nil, err
	}
	logger.WithField("bytes", len(payload)).Debug("Read claims payload")

	var admins []string
	for _, email := range strings.Split(*f.adminUsers, ",") {
		if email = strings.TrimSpace(email); email != "" {
			admins = append(admins, email)
		}
	}

	libLogger := libraryLogger(logger)
	source := identity.ClaimsSourceFunc(func(ctx context.Context) ([]byte, error) {
		return payload, nil
	})
	return identity.NewService(source, identity.Options{
		Parser:   identity.NewParser(*f.orgDomain, libLogger),
		Resolver: rbac.NewResolver(rbac.WithAdminUsers(admins...)),
		Logger:   libLogger,
	}), nil
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func newResolveCommand() *Command {
	cmd := &Command{
		Name:        "resolve",
		Description: "Resolve a claims payload into an identity",
		Flags:       flag.NewFlagSet("resolve", flag.ContinueOnError),
		Run:         runResolve,
	}

	addClaimsFlags(cmd.Flags)
	cmd.Flags.Bool("explain", false, "Include the rule that chose the role")

	return cmd
}

func runResolve(args []string) error {
	flags := flag.NewFlagSet("resolve", flag.ContinueOnError)
	flags.SetOutput(stderr)
	claims := addClaimsFlags(flags)
	explain := flags.Bool("explain", false, "Include the rule that chose the role")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*claims.logLevel)
	svc, err := claims.service(logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	id, err := svc.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve identity: %w", err)
	}
	if id == nil {
		return identity.ErrNotAuthenticated
	}

	result := resolveResult{ResolvedIdentity: id}
	if *explain {
		if result.Decision, err = svc.Explain(ctx); err != nil {
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"email": id.Email,
		"role":  id.Role,
	}).Info("Resolved identity")
	return writeJSON(result)
}

func newCheckCommand() *Command {
	cmd := &Command{
		Name:        "check",
		Description: "Check a claims payload for a permission",
		Flags:       flag.NewFlagSet("check", flag.ContinueOnError),
		Run:         runCheck,
	}

	addClaimsFlags(cmd.Flags)
	cmd.Flags.String("permission", "", "Permission tag to check")

	return cmd
}

// ErrPermissionDenied is returned by check when the permission is not held
var ErrPermissionDenied = errors.New("permission denied")

func runCheck(args []string) error {
	flags := flag.NewFlagSet("check", flag.ContinueOnError)
	flags.SetOutput(stderr)
	claims := addClaimsFlags(flags)
	permission := flags.String("permission", "", "Permission tag to check")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *permission == "" {
		return fmt.Errorf("permission is required")
	}
	p, err := rbac.ParsePermission(*permission)
	if err != nil {
		return err
	}

	logger := newLogger(*claims.logLevel)
	svc, err := claims.service(logger)
	if err != nil {
		return err
	}

	if !svc.HasPermission(context.Background(), p) {
		fmt.Fprintf(stdout, "%s: denied\n", p)
		return ErrPermissionDenied
	}
	fmt.Fprintf(stdout, "%s: allowed\n", p)
	return nil
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
