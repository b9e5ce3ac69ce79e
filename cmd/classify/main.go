package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/raaihank/lgpd-sentinel/internal/analysis"
	"github.com/raaihank/lgpd-sentinel/internal/categories"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/llm"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to configuration file")
		offline    = flag.Bool("offline", false, "Use pattern detection only, never call a model")
		types      = flag.String("types", "", "Comma-separated PII type ids to detect (default: system configuration)")
		listTypes  = flag.Bool("list-types", false, "List PII type ids and exit")
		timeout    = flag.Duration("timeout", time.Minute, "Overall timeout")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [text...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nReads the manifestation from the arguments or from stdin.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = config.LoadDotEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	lib, err := privacy.LoadLibraryFile(cfg.Privacy.PatternsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load PII patterns: %v\n", err)
		os.Exit(1)
	}

	if *listTypes {
		printTypes(lib)
		return
	}

	text, err := readText(flag.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	catalog, err := categories.LoadFile(cfg.Storage.CategoriesFile, log)
	if err != nil {
		catalog = categories.Default()
	}

	factory := analysis.EnvBackends(llm.TransportFromConfig(cfg.LLM, llm.Options{Logger: log}))
	if *offline {
		factory = analysis.Offline()
	}

	var enabled []string
	if *types != "" {
		enabled = splitList(*types)
	}

	analyzer := analysis.NewAnalyzer(privacy.NewDetector(lib, log), catalog, factory, analysis.WithLogger(log))
	service := analysis.NewService(analyzer, config.NewSystemStore(cfg.Storage.SystemConfigFile), log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	printResult(os.Stdout, service.ClassifyAndFilter(ctx, text, enabled))
}

func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text given")
	}
	return text, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printResult(w io.Writer, r analysis.ClassificationResult) {
	status := color.Green.Sprint(r.PrivacyStatus)
	if r.IsSensitive {
		status = color.New(color.FgWhite, color.BgRed).Render(r.PrivacyStatus)
	}

	pii := "-"
	if len(r.DetectedPII) > 0 {
		pii = strings.Join(r.DetectedPII, ", ")
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk([][]string{
		{"Category", fmt.Sprintf("%s (%s)", r.Name, r.ID)},
		{"Subcategory", r.SelectedSubcategory},
		{"Category source", r.CategorySource},
		{"Privacy", status},
		{"Macro category", r.Category},
		{"Detected PII", pii},
		{"Reason", r.Reason},
		{"Verdict source", r.Source},
	})
	table.Render()
}

func printTypes(lib *privacy.Library) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Label", "Priority"})
	table.SetBorder(false)
	for _, t := range lib.Types() {
		table.Append([]string{t.ID, t.Label, fmt.Sprint(t.Priority)})
	}
	table.Render()
}
