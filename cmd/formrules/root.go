package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formrules/internal/config"
	"github.com/goliatone/go-formrules/internal/logging"
	"github.com/goliatone/go-formrules/internal/metrics"
	"github.com/goliatone/go-formrules/pkg/form"
	"github.com/goliatone/go-formrules/pkg/formdef"
	"github.com/goliatone/go-formrules/pkg/validation"
	"github.com/goliatone/go-formrules/pkg/visibility"
)

const definitionFetchTimeout = 15 * time.Second

// app holds dependencies shared by every subcommand.
type app struct {
	v           *viper.Viper
	cfgFile     string
	showMetrics bool

	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		logger: zap.NewNop(),
		out:    out,
		errOut: errOut,
	}

	root := &cobra.Command{
		Use:   "formrules",
		Short: "Conditional visibility and validation for dynamic farmer forms",
		Long: `formrules evaluates the conditional logic and validation rules of
Digital Farmer Registry form definitions. It can lint a definition, evaluate a
set of answers against it, fill it interactively and store submissions.`,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			defer func() { _ = a.logger.Sync() }()
			if a.showMetrics && a.metrics != nil {
				return a.metrics.WriteSummary(a.errOut)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .formrules.yaml in the working or home directory)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console or json")
	flags.String("locale", "", "locale for validation messages")
	flags.Bool("strict", false, "check definitions against the shape schema")
	flags.BoolVar(&a.showMetrics, "metrics", false, "print rule engine counters to stderr on exit")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("locale", flags.Lookup("locale"))
	_ = a.v.BindPFlag("strict", flags.Lookup("strict"))

	root.AddCommand(
		newLintCmd(a),
		newEvalCmd(a),
		newFillCmd(a),
		newPollCmd(a),
		newSubmitCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.metrics = metrics.New(nil)
	return nil
}

func (a *app) messages() (*validation.Messages, error) {
	opts := []validation.MessageOption{
		validation.WithLocale(a.cfg.Locale),
		validation.WithMissingTranslationHandler(func(locale, key, fallback string, err error) string {
			if a.cfg.MessagesFile != "" {
				a.logger.Debug("message translation missing",
					zap.String("locale", locale),
					zap.String("key", key),
					zap.Error(err),
				)
			}
			return fallback
		}),
	}
	if a.cfg.MessagesFile != "" {
		catalog, err := loadCatalog(a.cfg.MessagesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, validation.WithTranslator(catalog))
	}
	return validation.NewMessages(opts...), nil
}

func (a *app) formOptions() ([]form.Option, error) {
	msgs, err := a.messages()
	if err != nil {
		return nil, err
	}
	evaluator := visibility.New(
		visibility.WithLogger(a.logger),
		visibility.WithObserver(a.metrics),
	)
	validator := validation.New(
		validation.WithLogger(a.logger),
		validation.WithMessages(msgs),
		validation.WithObserver(a.metrics),
	)
	return []form.Option{
		form.WithEvaluator(evaluator),
		form.WithValidator(validator),
		form.WithLogger(a.logger),
		form.WithObserver(a.metrics),
		form.WithClearHidden(a.cfg.ClearHidden),
	}, nil
}

func (a *app) parseOptions() []formdef.ParseOption {
	if a.cfg.Strict {
		return []formdef.ParseOption{formdef.WithShapeCheck()}
	}
	return nil
}

// loadDefinition reads a definition from a path or URL. With operation set
// the document is treated as OpenAPI.
func (a *app) loadDefinition(ctx context.Context, location, operation string, extra ...formdef.ParseOption) (*formdef.Definition, error) {
	src, err := formdef.ParseSource(location)
	if err != nil {
		return nil, err
	}
	parse := append(a.parseOptions(), extra...)
	parse = append(parse, formdef.WithSourceName(location))
	loader := formdef.NewLoader(
		formdef.WithHTTPFallback(definitionFetchTimeout),
		formdef.WithParseOptions(parse...),
	)
	if strings.TrimSpace(operation) == "" {
		return loader.Load(ctx, src)
	}
	raw, err := loader.LoadBytes(ctx, src)
	if err != nil {
		return nil, err
	}
	return formdef.FromOpenAPI(ctx, raw, operation, parse...)
}

// loadValues reads answers from a JSON or YAML file.
func loadValues(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	values := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &values)
	default:
		err = json.Unmarshal(raw, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("decode values %s: %w", path, err)
	}
	return values, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
