package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/newstopics/internal/app"
	"github.com/deusflow/newstopics/internal/config"
	"github.com/deusflow/newstopics/internal/digest"
	"github.com/deusflow/newstopics/internal/logger"
	"github.com/deusflow/newstopics/internal/news"
)

var (
	configPath   string
	outputFormat string
	persist      bool
	topLimit     int

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "topicnews",
		Short:         "Groups news articles into ranked, summarized topics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the topics",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve topics over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	topCmd = &cobra.Command{
		Use:   "top [category]",
		Short: "Print the stored top topics of a category",
		Args:  cobra.ExactArgs(1),
		RunE:  showTop,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $TOPICS_CONFIG or configs/topics.yaml)")

	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "output format: json or markdown")
	runCmd.Flags().BoolVar(&persist, "persist", false, "save topics to the configured store")

	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 0, "number of topics (default 4)")
	topCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "output format: json or markdown")

	rootCmd.AddCommand(runCmd, serveCmd, topCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	if outputFormat != "json" && outputFormat != "markdown" {
		return fmt.Errorf("unknown format %q", outputFormat)
	}

	a, err := app.New(cfg, logger.Logger, persist)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	topics, err := a.Run(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("run finished", "categories", len(topics), "duration", time.Since(start).Round(time.Millisecond).String())

	out := cmd.OutOrStdout()
	if outputFormat == "markdown" {
		_, err = io.WriteString(out, digest.Markdown("News digest", a.Categories(topics), topics))
		return err
	}
	return writeJSON(out, topics)
}

func serve(cmd *cobra.Command, args []string) error {
	a, err := app.New(cfg, logger.Logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Server().Run(cmd.Context(), cfg.Server.Addr)
}

func showTop(cmd *cobra.Command, args []string) error {
	// reading back never fetches feeds, so the source is irrelevant here
	cfg.Source.UseSample = true
	a, err := app.New(cfg, logger.Logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	category := args[0]
	topics, err := a.Top(cmd.Context(), category, topLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch outputFormat {
	case "markdown":
		_, err = io.WriteString(out, digest.Markdown("", []string{category}, map[string][]news.Topic{category: topics}))
		return err
	case "json":
		return writeJSON(out, topics)
	default:
		return fmt.Errorf("unknown format %q", outputFormat)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
