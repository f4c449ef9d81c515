package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geo-loader/internal/crs"
)

var (
	crsPointFrom string
	crsPointTo   string
)

var crsCmd = &cobra.Command{
	Use:   "crs",
	Short: "Coordinate system utilities",
}

var crsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered coordinate systems",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m := crs.NewManager()
		if err := m.Initialize(); err != nil {
			return err
		}
		for _, code := range m.Registered() {
			def, _ := m.Lookup(code)
			cmd.Printf("%s\t%s\t%s\n", def.Code, def.Units, def.Proj4)
		}
		return nil
	},
}

var crsPointCmd = &cobra.Command{
	Use:   "point <x> <y>",
	Short: "Transform a single point between coordinate systems",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "crs: parse x %q", args[0])
		}
		y, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "crs: parse y %q", args[1])
		}

		m := crs.NewManager()
		if err := m.Initialize(); err != nil {
			return err
		}
		tx, ty, err := m.Transform(x, y, crsPointFrom, crsPointTo)
		if err != nil {
			return err
		}
		cmd.Printf("%.9g %.9g\n", tx, ty)
		return nil
	},
}

func init() {
	crsPointCmd.Flags().StringVar(&crsPointFrom, "from", "LV95", "source coordinate system")
	crsPointCmd.Flags().StringVar(&crsPointTo, "to", "WGS84", "target coordinate system")
	crsCmd.AddCommand(crsListCmd)
	crsCmd.AddCommand(crsPointCmd)
	rootCmd.AddCommand(crsCmd)
}
