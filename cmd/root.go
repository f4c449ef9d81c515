package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-loader/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geo-loader",
	Short: "CAD drawing to geographic feature converter",
	Long:  "Parses DXF drawings and shapefiles, expands block references, converts entities to GeoJSON features and reprojects between the Swiss frames (LV95, LV03) and WGS84.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
