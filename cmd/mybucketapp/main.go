package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/haatos/mybucketapp/internal"
	"github.com/haatos/mybucketapp/internal/logger"
	"github.com/haatos/mybucketapp/internal/provisioner"
	"github.com/haatos/mybucketapp/internal/service"
	"github.com/haatos/mybucketapp/internal/settings"
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/haatos/mybucketapp/internal/store"

	_ "modernc.org/sqlite"
)

type CLI struct {
	Config    string `name:"config" default:"environments.yml" env:"MYBUCKETAPP_CONFIG" help:"Path to the environments file"`
	LogLevel  string `name:"log-level" default:"info" env:"MYBUCKETAPP_LOG_LEVEL" help:"debug, info, warn or error"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" env:"MYBUCKETAPP_LOG_FORMAT" help:"text or json"`

	Init   InitCmd   `cmd:"" help:"Write the default environments file when it does not exist"`
	Synth  SynthCmd  `cmd:"" help:"Synthesize the templates of an environment"`
	Diff   DiffCmd   `cmd:"" help:"Compare synthesized templates with deployed stacks"`
	Deploy DeployCmd `cmd:"" help:"Deploy the stacks of an environment"`
	List   ListCmd   `cmd:"" help:"List environments and their stacks"`
}

type InitCmd struct{}

type SynthCmd struct {
	Env     string   `name:"env" required:"" help:"Environment name"`
	Stack   []string `name:"stack" help:"Stack to synthesize (repeatable, default all)"`
	Out     string   `name:"out" default:"stack.out" env:"MYBUCKETAPP_OUT_DIR" help:"Output directory"`
	Format  string   `name:"format" default:"summary" enum:"summary,json,yaml" help:"Print a summary or the templates"`
	Archive bool     `name:"archive" help:"Zip the environment output directory"`
}

type DiffCmd struct {
	Env   string   `name:"env" required:"" help:"Environment name"`
	Stack []string `name:"stack" help:"Stack to compare (repeatable, default all)"`
	Out   string   `name:"out" default:"stack.out" env:"MYBUCKETAPP_OUT_DIR" help:"Output directory"`
	Local bool     `name:"local" help:"Compare with the last recorded synth instead of the live stacks"`
	Fail  bool     `name:"fail" help:"Exit 1 when differences are found"`
}

type DeployCmd struct {
	Env   string   `name:"env" required:"" help:"Environment name"`
	Stack []string `name:"stack" help:"Stack to deploy (repeatable, default all)"`
	Out   string   `name:"out" default:"stack.out" env:"MYBUCKETAPP_OUT_DIR" help:"Output directory"`
}

type ListCmd struct{}

type kongExitCode int

type commandDeps struct {
	clients func(endpoint string) provisioner.ClientFactory
	out     io.Writer
	errOut  io.Writer
}

type app struct {
	config        *internal.Configuration
	db            *sql.DB
	synthService  *service.SynthService
	deployService *service.DeployService
}

func (a *app) Close() error {
	return a.db.Close()
}

func main() {
	os.Exit(run(os.Args[1:], defaultDeps()))
}

func defaultDeps() commandDeps {
	return commandDeps{
		clients: func(endpoint string) provisioner.ClientFactory {
			return provisioner.NewAWSClientFactory(endpoint)
		},
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

func run(args []string, deps commandDeps) (exitCode int) {
	out, errOut := deps.out, deps.errOut
	if err := settings.ReadDotenv(internal.DotEnvPath); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	settings.Settings = settings.NewSettings()

	cli := CLI{}
	parser, err := kong.New(
		&cli,
		kong.Name("mybucketapp"),
		kong.Description("Synthesize, compare and deploy the bucket and delivery pipeline stacks."),
		kong.Writers(out, errOut),
		kong.Exit(func(code int) {
			panic(kongExitCode(code))
		}),
	)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: initialize command parser: %v\n", err)
		return 1
	}
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		code, ok := recovered.(kongExitCode)
		if !ok {
			panic(recovered)
		}
		exitCode = int(code)
	}()
	kctx, err := parser.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		_, _ = fmt.Fprintln(errOut, "Hint: run `mybucketapp --help`.")
		return 1
	}
	logger.Init(errOut, cli.LogLevel, cli.LogFormat)

	if kctx.Command() == "init" {
		internal.InitializeConfiguration(cli.Config)
		_, _ = fmt.Fprintf(out, "configuration at %s\n", cli.Config)
		return 0
	}

	config, err := internal.LoadConfiguration(cli.Config)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		_, _ = fmt.Fprintln(errOut, "Hint: run `mybucketapp init` to write the default environments file.")
		return 1
	}

	ctx := context.Background()
	switch kctx.Command() {
	case "list":
		err = runList(config, out)
	case "synth":
		a := newApp(config, cli.Synth.Out, deps)
		defer a.Close()
		err = runSynth(ctx, cli.Synth, a, out)
	case "diff":
		a := newApp(config, cli.Diff.Out, deps)
		defer a.Close()
		var changed bool
		changed, err = runDiff(ctx, cli.Diff, a, out)
		if err == nil && changed && cli.Diff.Fail {
			return 1
		}
	case "deploy":
		a := newApp(config, cli.Deploy.Out, deps)
		defer a.Close()
		err = runDeploy(ctx, cli.Deploy, a, out)
	default:
		err = fmt.Errorf("unsupported command: %s", kctx.Command())
	}
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(config *internal.Configuration, outDir string, deps commandDeps) *app {
	db := store.InitDatabase(false)
	store.RunMigrations(db, internal.MigrationsDir)

	synthService := service.NewSynthService(
		config,
		store.NewSynthSQLiteStore(db, db),
		outDir,
	)
	deployService := service.NewDeployService(
		synthService,
		deps.clients(settings.Settings.AWSEndpoint),
		store.NewDeploymentSQLiteStore(db, db),
	)
	return &app{
		config:        config,
		db:            db,
		synthService:  synthService,
		deployService: deployService,
	}
}

func runList(config *internal.Configuration, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ENVIRONMENT\tACCOUNT\tREGION\tBUCKETS\tSTACKS")
	for _, env := range config.Environments {
		ds, err := stack.NewDescriptorSet(config.App, env)
		if err != nil {
			return fmt.Errorf("%s: %w", env.Name, err)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			env.Name, env.Account, env.Region, len(env.Buckets), strings.Join(ds.StackNames(), ","),
		)
	}
	return tw.Flush()
}

func runSynth(ctx context.Context, cmd SynthCmd, a *app, out io.Writer) error {
	synths, err := a.synthService.Synthesize(ctx, cmd.Env, cmd.Stack...)
	if err != nil {
		return err
	}

	switch cmd.Format {
	case "json":
		for _, s := range synths {
			_, _ = fmt.Fprintln(out, s.Template)
		}
	case "yaml":
		for i, s := range synths {
			t, err := a.synthService.Template(cmd.Env, s.StackName)
			if err != nil {
				return err
			}
			b, err := t.YAML()
			if err != nil {
				return err
			}
			if i > 0 {
				_, _ = fmt.Fprintln(out, "---")
			}
			_, _ = out.Write(b)
		}
	default:
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "STACK\tSYNTH\tHASH")
		for _, s := range synths {
			_, _ = fmt.Fprintf(tw, "%s\t%d\t%.12s\n", s.StackName, s.SynthID, s.TemplateHash)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if cmd.Archive {
		name, err := a.synthService.Archive(cmd.Env)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "archived to %s\n", name)
	}
	return nil
}

func runDiff(ctx context.Context, cmd DiffCmd, a *app, out io.Writer) (bool, error) {
	diff := a.deployService.Diff
	if cmd.Local {
		diff = a.deployService.DiffLocal
	}
	diffs, err := diff(ctx, cmd.Env, cmd.Stack...)
	if err != nil {
		return false, err
	}

	changed := false
	for _, d := range diffs {
		header := "Stack " + d.Stack
		if !d.Exists {
			header += " (new)"
		}
		_, _ = fmt.Fprintln(out, header)
		if len(d.Changes) == 0 {
			_, _ = fmt.Fprintln(out, "There were no differences")
			continue
		}
		changed = true
		for _, c := range d.Changes {
			_, _ = fmt.Fprintln(out, c.String())
		}
	}
	return changed, nil
}

func runDeploy(ctx context.Context, cmd DeployCmd, a *app, out io.Writer) error {
	deployments, err := a.deployService.Deploy(ctx, cmd.Env, cmd.Stack...)
	for _, d := range deployments {
		line := fmt.Sprintf("%s: %s", d.StackName, d.Status)
		if d.Message != nil {
			line += " (" + *d.Message + ")"
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return err
}
