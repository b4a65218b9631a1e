package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"k8s.io/utils/ptr"

	"ryu-ofctl/internal/config"
	"ryu-ofctl/internal/metrics"
	"ryu-ofctl/internal/model"
	"ryu-ofctl/internal/output"
	"ryu-ofctl/internal/parser"
	"ryu-ofctl/pkg/flow"
	"ryu-ofctl/pkg/ryu"
)

type rootOptions struct {
	configFile  string
	host        string
	port        int
	priority    uint16
	logLevel    string
	logFile     string
	outputFmt   string
	metricsFile string

	cfg    *config.Config
	format output.Format
	client *ryu.Client
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "ryu-ofctl",
		Short: "Program and inspect OpenFlow switches through a Ryu controller",
		Long: `ryu-ofctl talks to the REST API of a Ryu SDN controller to add and delete
flow entries and to query the switches, links and hosts it has discovered.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.writeMetrics()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.host, "host", ryu.DefaultHost, "Controller REST API host")
	flags.IntVar(&opts.port, "port", ryu.DefaultPort, "Controller REST API port")
	flags.Uint16Var(&opts.priority, "priority", 0, "Priority sent with added flows that do not set one")
	flags.StringVar(&opts.logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file path (default: stderr)")
	flags.StringVarP(&opts.outputFmt, "output", "o", string(output.FormatTable), "Output format: table, json or yaml")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write controller metrics to this file in textfile format on exit")

	rootCmd.AddCommand(
		newAddFlowCmd(opts),
		newDelFlowsCmd(opts),
		newClearCmd(opts),
		newSwitchesCmd(opts),
		newLinksCmd(opts),
		newMacCmd(opts),
		newApplyCmd(opts),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// complete merges the config file with the flags the user set explicitly and
// builds the controller client.
func (o *rootOptions) complete(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Controller.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Controller.Port = o.port
	}
	if flags.Changed("priority") {
		cfg.Controller.DefaultPriority = ptr.To(o.priority)
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	if o.format, err = output.ParseFormat(o.outputFmt); err != nil {
		return err
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.File)
	slog.SetDefault(logger)

	o.client, err = ryu.NewClient(cfg.ClientConfig(), ryu.WithHTTPClient(&http.Client{}), ryu.WithLogger(logger))
	if err != nil {
		return err
	}
	slog.Debug("Controller client ready", "host", cfg.Controller.Host, "port", cfg.Controller.Port)
	return nil
}

func (o *rootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.cfg != nil && o.cfg.Controller.Timeout > 0 {
		return context.WithTimeout(ctx, o.cfg.Controller.Timeout)
	}
	return context.WithCancel(ctx)
}

func (o *rootOptions) writeMetrics() error {
	if o.cfg == nil || o.cfg.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(o.cfg.MetricsFile); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	slog.Debug("Metrics written", "path", o.cfg.MetricsFile)
	return nil
}

func (o *rootOptions) print(cmd *cobra.Command, obj any, rows []output.TableOutput) error {
	return output.Write(cmd.OutOrStdout(), o.format, obj, rows)
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// The logger is not up yet, so a bad path silently falls back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}

func loadRules(provider, rulesPath, dbConnStr string, dpid *flow.DatapathID) ([]model.Rule, error) {
	switch provider {
	case "file":
		if rulesPath == "" {
			return nil, fmt.Errorf("rules file path must be provided for file provider")
		}
		file, err := os.Open(rulesPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		p := parser.NewFlowFileParser(rulesPath, file)
		if err := p.Parse(); err != nil {
			return nil, err
		}
		if dpid == nil {
			return p.Rules, nil
		}
		var rules []model.Rule
		for _, r := range p.Rules {
			if r.DPID == *dpid {
				rules = append(rules, r)
			}
		}
		return rules, nil
	case "mariadb":
		if dbConnStr == "" {
			return nil, fmt.Errorf("database connection string must be provided for mariadb provider")
		}
		p, err := parser.NewMariaDBParser(dbConnStr, dpid)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		if err := p.Parse(); err != nil {
			return nil, err
		}
		return p.Rules, nil
	default:
		return nil, fmt.Errorf("unknown rule provider: %s", provider)
	}
}
