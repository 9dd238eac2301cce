package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/lamina/pkg/export"
	"github.com/chazu/lamina/pkg/layer"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/progress"
)

type exportOptions struct {
	svg    string
	dxf    string
	pngDir string
	scale  float64
}

func newExportCmd(root *rootOptions) *cobra.Command {
	o := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the processed layers as SVG, DXF or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.svg == "" && o.dxf == "" && o.pngDir == "" {
				return fmt.Errorf("nothing to export: give --svg, --dxf or --png-dir")
			}
			a := newApp(root)
			j, err := a.load(args[0])
			if err != nil {
				return err
			}
			pl := pipeline.New(j.snap, progress.NewLogProgress())
			pl.Pinned = j.pinned
			stacks, err := pl.Build(cmd.Context(), j.instances)
			if err != nil {
				return err
			}
			var layers []*layer.Layer
			for _, st := range stacks {
				layers = append(layers, st.Layers...)
			}
			return o.write(layers)
		},
	}
	cmd.Flags().StringVar(&o.svg, "svg", "", "SVG file with every layer")
	cmd.Flags().StringVar(&o.dxf, "dxf", "", "DXF file with every layer outline")
	cmd.Flags().StringVar(&o.pngDir, "png-dir", "", "directory for one PNG preview per layer")
	cmd.Flags().Float64Var(&o.scale, "scale", 10, "pixels per millimeter")
	return cmd
}

func (o *exportOptions) write(layers []*layer.Layer) error {
	if o.svg != "" {
		f, err := os.Create(o.svg)
		if err != nil {
			return err
		}
		err = export.SVG(f, layers, o.scale)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	if o.dxf != "" {
		if err := export.DXF(o.dxf, layers); err != nil {
			return err
		}
	}
	if o.pngDir != "" {
		if err := os.MkdirAll(o.pngDir, 0o755); err != nil {
			return err
		}
		digits := len(fmt.Sprint(max(len(layers)-1, 0)))
		for i, l := range layers {
			path := filepath.Join(o.pngDir, fmt.Sprintf("layer%0*d.png", digits, i))
			if err := export.PNG(path, l, o.scale); err != nil {
				return err
			}
		}
	}
	return nil
}
