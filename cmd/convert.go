package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-loader/internal/crs"
	"github.com/sells-group/geo-loader/internal/dxf"
	"github.com/sells-group/geo-loader/internal/loader"
)

var (
	convertOutput    string
	convertSourceCRS string
	convertTargetCRS string
	convertWorkers   int
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.dxf|file.shp>",
	Short: "Convert a drawing to a GeoJSON FeatureCollection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runImport(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(res.Collection(), "", "  ")
		if err != nil {
			return eris.Wrap(err, "convert: encode geojson")
		}

		if convertOutput != "" {
			if err := os.WriteFile(convertOutput, data, 0644); err != nil {
				return eris.Wrapf(err, "convert: write %s", convertOutput)
			}
		} else {
			cmd.Println(string(data))
		}

		zap.L().Info("convert complete",
			zap.String("file", args[0]),
			zap.Int("imported", res.Imported),
			zap.Int("failed", res.Failed),
			zap.String("sourceCrs", res.SourceCRS),
		)
		return nil
	},
}

// runImport dispatches on file extension and applies config plus flags.
func runImport(ctx context.Context, path string) (*loader.Result, error) {
	opts, err := importOptions()
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return loader.ImportShapefile(ctx, path, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "convert: read %s", path)
	}
	content, err := dxf.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	return loader.Import(ctx, content, opts)
}

// importOptions merges config defaults with command-line flags and prepares
// the coordinate system manager.
func importOptions() (loader.Options, error) {
	opts := loader.Options{
		SourceCRS: cfg.Convert.SourceCRS,
		TargetCRS: cfg.Convert.TargetCRS,
		Workers:   cfg.Convert.Workers,
	}
	if convertSourceCRS != "" {
		opts.SourceCRS = convertSourceCRS
	}
	if convertTargetCRS != "" {
		opts.TargetCRS = convertTargetCRS
	}
	if convertWorkers > 0 {
		opts.Workers = convertWorkers
	}

	if opts.TargetCRS != "" {
		m := crs.NewManager()
		if err := m.Initialize(); err != nil {
			return opts, err
		}
		if cfg.CRS.DefinitionsFile != "" {
			f, err := os.Open(cfg.CRS.DefinitionsFile)
			if err != nil {
				return opts, eris.Wrapf(err, "convert: open crs definitions %s", cfg.CRS.DefinitionsFile)
			}
			defer func() { _ = f.Close() }()
			if err := m.LoadDefinitions(f); err != nil {
				return opts, err
			}
		}
		opts.Manager = m
	}
	return opts, nil
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default stdout)")
	convertCmd.Flags().StringVar(&convertSourceCRS, "source-crs", "", "source coordinate system (default: detect)")
	convertCmd.Flags().StringVar(&convertTargetCRS, "target-crs", "", "reproject to this coordinate system")
	convertCmd.Flags().IntVar(&convertWorkers, "workers", 0, "parallel reprojection workers")
	rootCmd.AddCommand(convertCmd)
}
