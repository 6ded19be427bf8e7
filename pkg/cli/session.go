package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/helpdesk/pkg/identity"
	"github.com/platinummonkey/helpdesk/pkg/rbac"
	"github.com/platinummonkey/helpdesk/pkg/session"
)

func newSessionCommand() *Command {
	cmd := &Command{
		Name:        "session",
		Description: "Show the identity held by a Redis-backed session",
		Flags:       flag.NewFlagSet("session", flag.ContinueOnError),
		Run:         runSession,
	}

	cmd.Flags.String("redis-url", "redis://localhost:6379/0", "Redis URL")
	cmd.Flags.String("key-prefix", session.DefaultKeyPrefix, "Session key prefix")
	cmd.Flags.String("id", "", "Session id")
	cmd.Flags.String("org-domain", identity.DefaultOrgDomain, "Domain appended to bare usernames")
	cmd.Flags.Bool("explain", false, "Include the rule that chose the role")
	cmd.Flags.Duration("timeout", 5*time.Second, "Redis timeout")
	cmd.Flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	return cmd
}

func runSession(args []string) error {
	cmd := newSessionCommand()
	cmd.Flags.SetOutput(stderr)
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	sessionID := cmd.Flags.Lookup("id").Value.String()
	if sessionID == "" {
		return fmt.Errorf("id is required")
	}
	timeout, err := time.ParseDuration(cmd.Flags.Lookup("timeout").Value.String())
	if err != nil {
		return err
	}

	logger := newLogger(cmd.Flags.Lookup("log-level").Value.String())
	libLogger := libraryLogger(logger)

	store, err := session.OpenRedisStore(session.RedisConfig{
		URL:       cmd.Flags.Lookup("redis-url").Value.String(),
		KeyPrefix: cmd.Flags.Lookup("key-prefix").Value.String(),
	}, nil)
	if err != nil {
		return err
	}

	mgr := session.NewManager(store, session.ManagerOptions{
		Identity: identity.Options{
			Parser: identity.NewParser(cmd.Flags.Lookup("org-domain").Value.String(), libLogger),
		},
		Logger: libLogger,
	})
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc, err := mgr.Service(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	logger.WithField("session", sessionID).Debug("Found session")

	id, err := svc.CurrentIdentity(ctx)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	if id == nil {
		return fmt.Errorf("session %s: %w", sessionID, identity.ErrNoClaims)
	}

	result := resolveResult{ResolvedIdentity: id}
	if cmd.Flags.Lookup("explain").Value.String() == "true" {
		var decision *rbac.Decision
		if decision, err = svc.Explain(ctx); err != nil {
			return err
		}
		result.Decision = decision
	}

	logger.WithFields(logrus.Fields{
		"session": sessionID,
		"role":    id.Role,
	}).Info("Resolved session identity")
	return writeJSON(result)
}
