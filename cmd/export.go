package cmd

import (
	"log"

	"hh-coverletter/internal/letters"
	"hh-coverletter/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Collect accepted letters into a single RTF document and archive them",
	Run: func(cmd *cobra.Command, _ []string) {
		export(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "cover_letters.rtf", "path of the resulting RTF document")
}

func export(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	dir := defaultLettersDir
	if config != nil && config.Letters != nil && config.Letters.Dir != "" {
		dir = config.Letters.Dir
	}

	output := cmd.Flag("output").Value.String()

	result, err := letters.Export(dir, output)
	if err != nil {
		logger.Fatal("exporting letters", zap.Error(err))
	}

	if len(result.Exported) == 0 {
		logger.Info("nothing to export", zap.String("dir", dir))
		return
	}

	logger.Info("letters exported",
		zap.Int("count", len(result.Exported)),
		zap.String("document", result.Document),
		zap.String("archive", result.Archive),
	)
}
