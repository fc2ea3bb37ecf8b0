package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/marmos91/dittocmis/pkg/config"
	"github.com/marmos91/dittocmis/pkg/repository"
	"github.com/spf13/cobra"
)

// app holds the global flags and the repository opened for one command.
type app struct {
	configPath string
	user       string
	readOnly   bool
	logLevel   string
	jsonOutput bool

	cfg     *config.Config
	metrics *config.MetricsResult
	repo    *config.Repository
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "dittocmis",
		Short:         "DittoCMIS - content repository bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to config file (default $XDG_CONFIG_HOME/dittocmis/config.yaml)")
	flags.StringVarP(&a.user, "user", "u", "", "Principal the operation runs as (default anonymous)")
	flags.BoolVar(&a.readOnly, "read-only", false, "Run as a read-only principal")
	flags.StringVar(&a.logLevel, "log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	flags.BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newInitCommand(a),
		newInfoCommand(a),
		newTypesCommand(a),
		newTypeCommand(a),
		newLsCommand(a),
		newStatCommand(a),
		newParentsCommand(a),
		newGetCommand(a),
		newMkdirCommand(a),
		newPutCommand(a),
		newSetContentCommand(a),
		newRmContentCommand(a),
		newSetCommand(a),
		newRmCommand(a),
		newCheckoutCommand(a),
		newCancelCheckoutCommand(a),
		newCheckinCommand(a),
		newVersionsCommand(a),
		newGCCommand(a),
	)

	return root
}

// bridgeFunc is the body of a command that operates on the repository.
type bridgeFunc func(ctx context.Context, cmd *cobra.Command, args []string, b *cmis.Bridge) error

// run opens the repository, runs fn as the configured principal and closes
// the repository again.
func (a *app) run(fn bridgeFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			if closeErr := a.close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		return fn(a.principalContext(cmd.Context()), cmd, args, a.repo.Bridge)
	}
}

// loadConfig loads the configuration and configures logging.
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(a.logLevel)
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

func (a *app) open(ctx context.Context) error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	if a.metrics == nil {
		a.metrics = config.InitializeMetrics(a.cfg)
	}

	repo, err := config.OpenRepository(ctx, a.cfg, a.metrics)
	if err != nil {
		return err
	}
	a.repo = repo
	return nil
}

func (a *app) close() error {
	if a.repo == nil {
		return nil
	}
	err := a.repo.Close()
	a.repo = nil
	return err
}

func (a *app) principalContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return repository.WithPrincipal(ctx, repository.Principal{Name: a.user, ReadOnly: a.readOnly})
}

// ============================================================================
// Object references
// ============================================================================

// resolve turns a command-line object reference into an object id. References
// starting with "/" are paths; anything else is an id.
func resolve(ctx context.Context, b *cmis.Bridge, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("object reference must not be empty")
	}
	if !strings.HasPrefix(ref, "/") {
		return ref, nil
	}

	obj, err := b.GetObjectByPath(ctx, ref, cmis.ObjectOptions{Filter: cmis.NewFilter(cmis.PropObjectID)})
	if err != nil {
		return "", err
	}
	return obj.ID(), nil
}

// resolveFolder is resolve with the root folder as the default.
func resolveFolder(ctx context.Context, b *cmis.Bridge, args []string) (string, error) {
	if len(args) == 0 {
		return b.RootFolderID(), nil
	}
	return resolve(ctx, b, args[0])
}

// parseAssignments parses key=value arguments. An empty value clears the
// property.
func parseAssignments(args []string) (map[string]any, error) {
	props := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property assignment %q (expected id=value)", arg)
		}
		if value == "" {
			props[key] = nil
		} else {
			props[key] = value
		}
	}
	return props, nil
}

// ============================================================================
// Output
// ============================================================================

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// formatValue renders a property value for tables.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

// printObject prints the properties of obj, one per line, followed by its
// allowable actions when they were requested.
func (a *app) printObject(w io.Writer, obj *cmis.ObjectData) error {
	if a.jsonOutput {
		return a.printJSON(w, objectJSON(obj))
	}

	tw := newTable(w)
	for _, prop := range obj.Properties {
		fmt.Fprintf(tw, "%s\t%s\n", prop.ID, formatValue(prop.Value))
	}
	if obj.AllowableActions != nil {
		actions := make([]string, 0, len(obj.AllowableActions))
		for _, action := range obj.AllowableActions.List() {
			actions = append(actions, string(action))
		}
		fmt.Fprintf(tw, "allowableActions\t%s\n", strings.Join(actions, ","))
	}
	return tw.Flush()
}

// objectJSON flattens obj into a property map.
func objectJSON(obj *cmis.ObjectData) map[string]any {
	out := make(map[string]any, len(obj.Properties)+1)
	for _, prop := range obj.Properties {
		out[prop.ID] = prop.Value
	}
	if obj.AllowableActions != nil {
		out["allowableActions"] = obj.AllowableActions.List()
	}
	return out
}

// printID prints the id of a created or updated object.
func (a *app) printID(w io.Writer, key, id string) error {
	if a.jsonOutput {
		return a.printJSON(w, map[string]string{key: id})
	}
	_, err := fmt.Fprintln(w, id)
	return err
}
