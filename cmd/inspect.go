package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geo-loader/internal/diag"
	"github.com/sells-group/geo-loader/internal/dxf"
)

// inspection is the JSON report printed by the inspect command.
type inspection struct {
	Layers      []layerInfo    `json:"layers"`
	Blocks      []blockInfo    `json:"blocks"`
	Entities    map[string]int `json:"entities"`
	Extents     *dxf.Bounds    `json:"extents,omitempty"`
	InsUnits    int            `json:"insUnits,omitempty"`
	Diagnostics []diag.Record  `json:"diagnostics,omitempty"`
}

type layerInfo struct {
	Name   string `json:"name"`
	Color  int    `json:"color"`
	Off    bool   `json:"off,omitempty"`
	Frozen bool   `json:"frozen,omitempty"`
	Locked bool   `json:"locked,omitempty"`
}

type blockInfo struct {
	Name     string `json:"name"`
	Entities int    `json:"entities"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.dxf>",
	Short: "Summarize a drawing's layers, blocks and entities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "inspect: read %s", args[0])
		}
		content, err := dxf.DecodeBytes(data)
		if err != nil {
			return err
		}

		reporter := diag.NewReporter()
		doc, err := dxf.Parse(content, reporter)
		if err != nil {
			return err
		}

		report := inspection{
			Entities:    map[string]int{},
			InsUnits:    doc.Header.InsUnits,
			Diagnostics: reporter.Records(),
		}
		if ext, err := doc.Extents(); err == nil {
			report.Extents = &ext
		}
		for _, l := range doc.Layers {
			report.Layers = append(report.Layers, layerInfo{
				Name:   l.Name,
				Color:  l.Color,
				Off:    l.Off,
				Frozen: l.Frozen,
				Locked: l.Locked,
			})
		}
		sort.Slice(report.Layers, func(i, j int) bool { return report.Layers[i].Name < report.Layers[j].Name })
		for _, b := range doc.Blocks {
			report.Blocks = append(report.Blocks, blockInfo{Name: b.Name, Entities: len(b.Entities)})
		}
		sort.Slice(report.Blocks, func(i, j int) bool { return report.Blocks[i].Name < report.Blocks[j].Name })
		for _, e := range doc.Entities {
			report.Entities[string(e.Kind())]++
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "inspect: encode report")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
