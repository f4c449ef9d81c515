package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geo-loader/internal/geometry"
	"github.com/sells-group/geo-loader/internal/spatial"
)

var queryBBox string

var queryCmd = &cobra.Command{
	Use:   "query <file.dxf|file.shp>",
	Short: "Convert a drawing and return features intersecting a bounding box",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bounds, err := parseBBox(queryBBox)
		if err != nil {
			return err
		}

		res, err := runImport(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		ix := spatial.NewIndex(res.Features)
		hits := ix.Search(bounds)

		data, err := json.MarshalIndent(geometry.Collection(hits), "", "  ")
		if err != nil {
			return eris.Wrap(err, "query: encode geojson")
		}
		cmd.Println(string(data))

		zap.L().Info("query complete",
			zap.Int("indexed", ix.Len()),
			zap.Int("matched", len(hits)),
		)
		return nil
	},
}

// parseBBox parses "minX,minY,maxX,maxY".
func parseBBox(s string) (geometry.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Bounds{}, eris.Errorf("query: bbox %q must be minX,minY,maxX,maxY", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Bounds{}, eris.Wrapf(err, "query: parse bbox value %q", p)
		}
		vals[i] = v
	}
	b := geometry.Bounds{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return geometry.Bounds{}, eris.Errorf("query: bbox %q has min greater than max", s)
	}
	return b, nil
}

func init() {
	queryCmd.Flags().StringVar(&queryBBox, "bbox", "", "bounding box minX,minY,maxX,maxY (required)")
	_ = queryCmd.MarkFlagRequired("bbox")
	rootCmd.AddCommand(queryCmd)
}
