package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xraytools/xray2cg/pkg/convert"
	"github.com/xraytools/xray2cg/pkg/output"
)

var (
	verbose     bool
	quiet       bool
	format      string
	summaryJSON string
	callCounts  bool
)

var rootCmd = &cobra.Command{
	Use:   "xray2cg <report>",
	Short: "Convert an XRay report to callgrind files",
	Long: `Convert an XRay profiling report to callgrind format for
visualization with KCachegrind. One callgrind file is created per XRay
frame, next to the original report.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "be more verbose while parsing")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only show errors")
	rootCmd.Flags().StringVar(&format, "format", "table", "summary format: table, tsv")
	rootCmd.Flags().StringVar(&summaryJSON, "summary-json", "", "write a JSON run summary to this path")
	rootCmd.Flags().BoolVar(&callCounts, "call-counts", false, "include per-function invocation counts in the summary")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

func run(cmd *cobra.Command, args []string) error {
	reportPath := args[0]

	info, err := os.Stat(reportPath)
	if err != nil {
		return fmt.Errorf("cannot read report %s: %w", reportPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is not a file", reportPath)
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if quiet {
		logger.SetLevel(logrus.ErrorLevel)
	}

	result, err := convert.Run(convert.Options{
		ReportPath: reportPath,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if summaryJSON != "" {
		if err := result.SaveJSON(summaryJSON); err != nil {
			return err
		}
	}

	if quiet {
		return nil
	}
	formatter := output.NewFormatter(output.Format(format), cmd.OutOrStdout())
	formatter.SetShowCallCounts(callCounts)
	return formatter.Render(result)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
