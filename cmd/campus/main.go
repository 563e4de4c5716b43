package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-campus/cmd/campus/cli"
	"github.com/odyssey-erp/odyssey-campus/internal/app"
)

const usage = `usage: campus <command> [flags]

commands:
  serve          run the HTTP API (default)
  migrate        apply database migrations and exit
  create-admin   create an admin account; the password is read from stdin
  jobs inspect   print queue statistics
  jobs trigger   enqueue a maintenance job (idempotency-cleanup)
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	if command == "jobs" {
		return runJobs(ctx, cfg, args)
	}

	switch command {
	case "serve", "migrate", "create-admin":
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	c, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect dependencies", slog.Any("error", err))
		return 1
	}
	defer c.close()

	switch command {
	case "migrate":
		if err := c.migrate(ctx); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		logger.Info("migrations applied")
		return 0
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		opts := cli.CreateAdminOptions{PasswordInput: os.Stdin}
		fs.StringVar(&opts.Name, "name", "", "display name")
		fs.StringVar(&opts.Username, "username", "", "login username")
		fs.StringVar(&opts.Email, "email", "", "email address")
		fs.StringVar(&opts.Department, "department", "", "department")
		fs.StringVar(&opts.Role, "role", "SUPER_ADMIN", "STAFF_ADMIN or SUPER_ADMIN")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		return cli.CreateAdminCommand(ctx, c.auth, opts)
	default:
		if err := serve(ctx, stop, c); err != nil {
			logger.Error("serve", slog.Any("error", err))
			return 1
		}
		return 0
	}
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()

	switch args[0] {
	case "inspect":
		fs := flag.NewFlagSet("jobs inspect", flag.ContinueOnError)
		jsonOut := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return jobsCLI.InspectCommand(ctx, cli.InspectOptions{JSONOutput: *jsonOut})
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "jobs trigger: job name required")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
		return 0
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}
