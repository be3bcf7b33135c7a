// podraft — AI-assisted drafting of gettext PO translation catalogs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/podraft/podraft/backend"
	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/config"
	"github.com/podraft/podraft/diff"
	"github.com/podraft/podraft/dispatch"
	"github.com/podraft/podraft/i18n"
	"github.com/podraft/podraft/langmeta"
	"github.com/podraft/podraft/merge"
	"github.com/podraft/podraft/pipeline"
	"github.com/podraft/podraft/settings"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var configPath string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "podraft",
		Short: "AI-assisted drafting of gettext PO translation catalogs",
		Long: `podraft — draft translations for gettext PO catalogs with AI backends.

The workflow has three stages: extract the entries that need translation
(optionally against a base catalog revision), send them to a backend in
batches, and merge the drafts back in. Drafted entries are marked with a
translator comment so reviewers can find them; reviewed translations are
never overwritten.

Commands:
  status      Show catalog translation statistics
  init        Create a podraft.yaml configuration file
  diff        Extract entries that need translation
  translate   Draft translations using an AI backend
  merge       Apply drafts from another catalog
  auth        Manage backend API keys

Backends:
  ollama      Local Ollama server (no API key)
  openai      OpenAI-compatible hosted endpoint
  gemini      Google Gemini (generateContent API)
  anthropic   Anthropic messages API`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&configPath, "config", config.FileName, "Configuration file path")

	root.AddCommand(
		newStatusCmd(),
		newInitCmd(),
		newDiffCmd(),
		newTranslateCmd(),
		newMergeCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		var cfgErr *config.ConfigError
		var bErr *backend.Error
		switch {
		case errors.As(err, &cfgErr):
			logError("configuration: %v", cfgErr)
		case errors.As(err, &bErr):
			logError("backend: %v", bErr)
		default:
			logError("%v", err)
		}
		os.Exit(1)
	}
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("podraft version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init (write a starter podraft.yaml)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a podraft.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileExists(configPath) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath, data, 0644); err != nil {
				return err
			}
			logSuccess("wrote %s", configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}

// ---------------------------------------------------------------------------
// status (read-only translation statistics)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog translation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input = input
			}
			if cfg.Input == "" {
				return &config.ConfigError{Field: "input", Msg: "no input catalog (set input in podraft.yaml or pass --input)"}
			}
			return runStatus(cfg)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Catalog to inspect")
	return cmd
}

func runStatus(cfg *config.Config) error {
	c, err := catalog.ParseFile(cfg.Input)
	if err != nil {
		return err
	}

	total, translated, fuzzy, untranslated := c.Stats()

	lang := c.HeaderField("Language")
	if lang == "" {
		lang = cfg.Language
	}

	fmt.Fprintf(os.Stderr, "\n%s%s%s (%s)\n", colorBlue, cfg.Input, colorReset, langmeta.Name(lang))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	pct := 0
	if total > 0 {
		pct = translated * 100 / total
	}
	fmt.Fprintf(os.Stderr, "  %s\n", progressBar(pct, 30))
	fmt.Fprintf(os.Stderr, "  %s: %d / %d\n", i18n.T("translated"), translated, total)
	fmt.Fprintf(os.Stderr, "  fuzzy: %d\n", fuzzy)
	fmt.Fprintf(os.Stderr, "  untranslated: %d\n", untranslated)

	drafts := 0
	for _, e := range c.Entries {
		if !e.Obsolete && e.HasTranslatorComment(merge.Marker) {
			drafts++
		}
	}
	if drafts > 0 {
		fmt.Fprintf(os.Stderr, "  unreviewed drafts: %d\n", drafts)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// ---------------------------------------------------------------------------
// diff (extract entries that need translation)
// ---------------------------------------------------------------------------

func newDiffCmd() *cobra.Command {
	var input, base, out string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Extract entries that need translation",
		Long: `Extract the untranslated entries of a catalog, optionally restricted to
entries absent from a base catalog revision. The extracted entries are
written as a PO template to stdout or --out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input = input
			}
			if base != "" {
				cfg.Base = base
			}
			if cfg.Input == "" {
				return &config.ConfigError{Field: "input", Msg: "no input catalog (set input in podraft.yaml or pass --input)"}
			}
			return runDiff(cfg, out)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Current catalog")
	cmd.Flags().StringVar(&base, "base", "", "Base catalog revision to diff against")
	cmd.Flags().StringVar(&out, "out", "", "Write the extracted entries to this file (default: stdout)")
	return cmd
}

func runDiff(cfg *config.Config, out string) error {
	current, err := catalog.ParseFile(cfg.Input)
	if err != nil {
		return err
	}

	var pending []*catalog.Entry
	if cfg.Base != "" {
		base, err := catalog.ParseFile(cfg.Base)
		if err != nil {
			return err
		}
		pending = diff.Extract(base, current)
	} else {
		pending = diff.Pending(current)
	}

	extracted := catalog.New()
	if current.Header != nil {
		extracted.Header = current.Header.Clone()
	}
	for _, e := range pending {
		if err := extracted.Add(e.Clone()); err != nil {
			return err
		}
	}

	logInfo("%s", fmt.Sprintf(i18n.N("%d entry", "%d entries", len(pending)), len(pending)))

	if out != "" {
		return extracted.WriteFile(out)
	}
	return extracted.Write(os.Stdout)
}

// ---------------------------------------------------------------------------
// translate (the main drafting pipeline)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Draft translations using an AI backend",
		Long: `Draft translations for the untranslated entries of a PO catalog.

Reads podraft.yaml for defaults; flags override it. Entries already drafted
in a previous run (tracked in podraft.lock) are not re-sent.

Examples:
  # Draft with a local Ollama model
  podraft translate --provider ollama --model llama3.2

  # Draft only the entries new since a base revision
  podraft translate --base po/ko.po.orig --provider openai --model gpt-4o-mini

  # Hosted endpoint with an API key
  podraft translate --provider anthropic --model claude-haiku --api-key sk-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			return runTranslate(cfg, o.noLock)
		},
	}
	o.register(cmd)
	return cmd
}

func runTranslate(cfg *config.Config, noLock bool) error {
	cfg.Provider.APIKey = settings.ResolveAPIKey(cfg.Provider.ID, cfg.Provider.APIKey)
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = settings.GetBaseURL(cfg.Provider.ID)
	}

	b, err := backend.New(cfg.Provider, cfg.Prompt)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	logInfo("drafting %s (%s) via %s/%s",
		cfg.Input, langmeta.Name(cfg.Language), cfg.Provider.ID, cfg.Provider.Model)

	summary, err := pipeline.Run(ctx, cfg, b, pipeline.Options{
		Generator: "podraft " + version,
		NoLock:    noLock,
		OnProgress: func(done, total int) {
			logInfo("batch %d/%d done", done, total)
		},
		OnLog: logInfo,
	})
	if err != nil {
		return err
	}

	if summary.Sent == 0 {
		logSuccess("%s", i18n.T("Nothing to translate."))
		return nil
	}

	for _, k := range summary.Conflicts {
		logWarning("not merged: %s", k)
	}

	r := summary.Report
	logSuccess("%s %s: %d, %s: %d, %s: %d, %s: %d",
		i18n.T("Done."),
		i18n.T("translated"), r.Translated,
		i18n.T("failed"), r.Failed,
		i18n.T("skipped"), r.Skipped,
		i18n.T("unchanged"), r.Unchanged)

	if r.Failed > 0 {
		return fmt.Errorf("%d entries failed; re-run to retry them", r.Failed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// merge (apply drafts from another catalog)
// ---------------------------------------------------------------------------

func newMergeCmd() *cobra.Command {
	var input, drafts, output string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Apply drafts from another catalog",
		Long: `Merge translated entries from a drafts catalog into the input catalog.

Useful when drafts were produced elsewhere (another machine, a manual edit
of the diff output). The same rules as translate apply: only untranslated
or fuzzy entries are filled, and each filled entry gets the draft marker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input = input
			}
			if cfg.Input == "" {
				return &config.ConfigError{Field: "input", Msg: "no input catalog (set input in podraft.yaml or pass --input)"}
			}
			if drafts == "" {
				return &config.ConfigError{Field: "drafts", Msg: "--drafts is required"}
			}
			if output == "" {
				output = cfg.Input
			}
			return runMerge(cfg.Input, drafts, output)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Catalog to merge into")
	cmd.Flags().StringVar(&drafts, "drafts", "", "Catalog holding the drafted translations")
	cmd.Flags().StringVar(&output, "output", "", "Output path (default: overwrite input)")
	return cmd
}

func runMerge(inputPath, draftsPath, outputPath string) error {
	current, err := catalog.ParseFile(inputPath)
	if err != nil {
		return err
	}
	drafted, err := catalog.ParseFile(draftsPath)
	if err != nil {
		return err
	}

	var entries []dispatch.EntryResult
	for _, e := range drafted.Entries {
		if e.Obsolete || !e.IsTranslated() {
			continue
		}
		entries = append(entries, dispatch.EntryResult{
			Key:    e.Key(),
			Text:   e.MsgStr,
			Status: dispatch.StatusTranslated,
		})
	}

	merged, report, err := merge.Apply(current, []dispatch.Result{{Entries: entries}},
		merge.Options{Generator: "podraft " + version})
	if err != nil {
		var conflict *merge.ConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		for _, k := range conflict.Keys {
			logWarning("not merged: %s", k)
		}
	}

	if err := merged.WriteFile(outputPath); err != nil {
		return err
	}

	logSuccess("%s %s: %d, %s: %d",
		i18n.T("Done."),
		i18n.T("translated"), report.Translated,
		i18n.T("unchanged"), report.Unchanged)
	return nil
}

// ---------------------------------------------------------------------------
// auth (API key management)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage backend API keys",
		Long: fmt.Sprintf(`Manage API keys for hosted backends.

Keys are stored in %s with 0600 permissions.
Lookup order at run time: --api-key flag, then %s, then this store.`,
			settings.FilePath(), settings.EnvVar),
	}
	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)
	return cmd
}

var backendIDs = []string{
	backend.VariantOllama,
	backend.VariantOpenAI,
	backend.VariantGemini,
	backend.VariantAnthropic,
}

func newAuthLoginCmd() *cobra.Command {
	var provider, apiKey, baseURL string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				return &config.ConfigError{Field: "provider", Msg: "--provider is required (ollama, openai, gemini, anthropic)"}
			}
			key := apiKey
			if key == "" {
				fmt.Fprintf(os.Stderr, "API key for %s: ", provider)
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				key = strings.TrimSpace(line)
			}
			if key == "" {
				return fmt.Errorf("empty API key")
			}
			var err error
			if baseURL != "" {
				err = settings.SetAPIKeyWithBaseURL(provider, key, baseURL)
			} else {
				err = settings.SetAPIKey(provider, key)
			}
			if err != nil {
				return err
			}
			logSuccess(i18n.T("API key saved for %s"), provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Backend ID")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (prompted when omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint override to store with the key")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string
	var all bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("all credentials removed")
				return nil
			}
			if provider == "" {
				return &config.ConfigError{Field: "provider", Msg: "--provider is required (or --all)"}
			}
			if err := settings.Remove(provider); err != nil {
				return err
			}
			logSuccess(i18n.T("API key removed for %s"), provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Backend ID")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every stored credential")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored API keys",
		Run: func(cmd *cobra.Command, args []string) {
			store := settings.Load()
			if len(store) == 0 {
				fmt.Fprintln(os.Stderr, "no stored credentials")
				return
			}
			ids := make([]string, 0, len(store))
			for id := range store {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				cred := store[id]
				line := fmt.Sprintf("%-12s %s", id, settings.MaskKey(cred.Key))
				if cred.BaseURL != "" {
					line += "  " + cred.BaseURL
				}
				fmt.Fprintln(os.Stderr, line)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// Configuration loading with flag overrides
// ---------------------------------------------------------------------------

// overrides collects the translate flags that shadow podraft.yaml values.
type overrides struct {
	lang, input, base, output  string
	provider, model            string
	apiKey, baseURL, proxy     string
	batchSize, workers         int
	maxRetries, requestDelayMS int
	glossary, examples, prompt string
	noLock                     bool
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.lang, "lang", "", "Target language code (e.g. ko, pt_BR)")
	cmd.Flags().StringVar(&o.input, "input", "", "Catalog to draft")
	cmd.Flags().StringVar(&o.base, "base", "", "Base catalog revision to diff against")
	cmd.Flags().StringVar(&o.output, "output", "", "Output path (default: overwrite input)")

	cmd.Flags().StringVar(&o.provider, "provider", "", "Backend: ollama, openai, gemini, anthropic")
	cmd.Flags().StringVar(&o.model, "model", "", "Model name")
	cmd.Flags().StringVar(&o.apiKey, "api-key", "", "API key (or "+settings.EnvVar+" env var)")
	cmd.Flags().StringVar(&o.baseURL, "base-url", "", "Backend endpoint override")
	cmd.Flags().StringVar(&o.proxy, "proxy", "", "HTTP/HTTPS proxy URL")

	cmd.Flags().IntVar(&o.batchSize, "batch-size", 0, "Entries per request")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Concurrent requests")
	cmd.Flags().IntVar(&o.maxRetries, "max-retries", 0, "Batch retries before giving up")
	cmd.Flags().IntVar(&o.requestDelayMS, "request-delay", 0, "Delay between batches in milliseconds")

	cmd.Flags().StringVar(&o.glossary, "glossary", "", "Glossary PO file (msgid = term, msgstr = rendering)")
	cmd.Flags().StringVar(&o.examples, "examples", "", "Reviewed catalog to take few-shot examples from")
	cmd.Flags().StringVar(&o.prompt, "prompt", "", "Custom system prompt ({{targetLang}} placeholder)")
	cmd.Flags().BoolVar(&o.noLock, "no-lock", false, "Ignore and do not write podraft.lock")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"ollama\tLocal Ollama server",
			"openai\tOpenAI-compatible hosted endpoint",
			"gemini\tGoogle Gemini",
			"anthropic\tAnthropic messages API",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// apply copies set override values onto the configuration.
func (o *overrides) apply(cfg *config.Config) {
	if o == nil {
		return
	}
	if o.lang != "" {
		cfg.Language = o.lang
	}
	if o.input != "" {
		cfg.Input = o.input
		if o.output == "" && cfg.Output == "" {
			cfg.Output = o.input
		}
	}
	if o.base != "" {
		cfg.Base = o.base
	}
	if o.output != "" {
		cfg.Output = o.output
	}
	if o.provider != "" {
		cfg.Provider.ID = o.provider
	}
	if o.model != "" {
		cfg.Provider.Model = o.model
	}
	if o.apiKey != "" {
		cfg.Provider.APIKey = o.apiKey
	}
	if o.baseURL != "" {
		cfg.Provider.BaseURL = o.baseURL
	}
	if o.proxy != "" {
		cfg.Provider.Proxy = o.proxy
	}
	if o.batchSize != 0 {
		cfg.BatchSize = o.batchSize
	}
	if o.workers != 0 {
		cfg.Workers = o.workers
	}
	if o.maxRetries != 0 {
		cfg.MaxRetries = o.maxRetries
	}
	if o.requestDelayMS != 0 {
		cfg.RequestDelayMS = o.requestDelayMS
	}
	if o.glossary != "" {
		cfg.Glossary = o.glossary
	}
	if o.examples != "" {
		cfg.Examples = o.examples
	}
	if o.prompt != "" {
		cfg.Prompt = o.prompt
	}
}

// loadConfig reads podraft.yaml (when present), applies flag overrides, and
// validates only when overrides were given (read-only commands pass nil and
// validate what they need themselves).
func loadConfig(o *overrides) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	o.apply(cfg)
	if o != nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Display helpers
// ---------------------------------------------------------------------------

// progressBar renders a fixed-width colored bar with a right-aligned percent.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 34:
		color = colorYellow
	}
	return fmt.Sprintf("%s%s%s %3d%%", color, bar, colorReset, percent)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
