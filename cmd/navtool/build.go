package main

import (
	"fmt"
	"os"

	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/debug_utils"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/recast"
	"github.com/gorustyt/navtile/tile_store"
	"github.com/spf13/cobra"
)

func BuildCmd(e *env) *cobra.Command {
	var (
		objFile string
		scale   float32
		dumpObj string
	)
	c := &cobra.Command{
		Use:   "build",
		Short: "build every tile of an OBJ mesh into the tile store",
		RunE: func(cmd *cobra.Command, args []string) error {
			geom, err := recast.LoadObj(objFile, scale)
			if err != nil {
				return err
			}
			b, err := recast.NewTileBuilder(e.driver, e.cfg.Build, e.cfg.Agent)
			if err != nil {
				return err
			}
			results, err := recast.BuildAll(cmd.Context(), b, geom, e.cfg.Navmesh.BuildWorkers)
			if err != nil {
				return err
			}

			var tiles []*detour.NavmeshTile
			empty, failed := 0, 0
			for _, r := range results {
				switch {
				case r.Success:
					tiles = append(tiles, r.Tile)
				case r.Code == recast.ZeroVertCount:
					empty++
				default:
					failed++
					logger.Warn("tile %v failed: %v", r.Coord, r.Code)
				}
			}

			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := tile_store.SaveTiles(cmd.Context(), store, tiles); err != nil {
				return err
			}
			if dumpObj != "" {
				if err := dumpTiles(dumpObj, tiles); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %d tiles (%d empty, %d failed) from %d triangles into %s\n",
				len(tiles), empty, failed, geom.TriangleCount(), e.cfg.Store.Path)
			if failed > 0 {
				return fmt.Errorf("%d tiles failed to build", failed)
			}
			return nil
		},
	}
	c.Flags().StringVar(&objFile, "obj", "", "input mesh")
	c.Flags().Float32Var(&scale, "scale", 1, "scale applied to input vertices")
	c.Flags().StringVar(&dumpObj, "dump-obj", "", "also write the built tiles as OBJ")
	c.MarkFlagRequired("obj")
	return c
}

func dumpTiles(path string, tiles []*detour.NavmeshTile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := debug_utils.DumpTilesToObj(tiles, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
