package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"essaycoach/config"
	"essaycoach/internal/logging"
	"essaycoach/models"
	"essaycoach/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const recommendedWords = 100

var (
	configPath   string
	essayFile    string
	essayContext string
)

var rootCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a single essay through the coach and print the feedback as JSON",
	Long: `Reads an essay from --file (or stdin), asks the configured model for
feedback and prints the normalized result. Nothing is stored.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "./config/config.yml", "path to config file")
	rootCmd.Flags().StringVarP(&essayFile, "file", "f", "", "essay file (default stdin)")
	rootCmd.Flags().StringVar(&essayContext, "context", "", "essay prompt or context")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	essay, err := readEssay(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if n := services.WordCount(essay); n < recommendedWords {
		logger.Warn("essay is shorter than the recommended 100 words", zap.Int("words", n))
	}

	generator, err := services.NewTextGenerator(cmd.Context(), cfg, nil, logger)
	if err != nil {
		return err
	}
	coach := services.NewCoachService(generator, nil, logger)

	resp, err := coach.Analyze(cmd.Context(), models.FeedbackRequest{EssayText: essay, Context: essayContext})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func readEssay(stdin io.Reader) (string, error) {
	if essayFile == "" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(essayFile)
	if err != nil {
		return "", fmt.Errorf("failed to read essay: %w", err)
	}
	return string(b), nil
}
