package main

import (
	"fmt"

	"github.com/gorustyt/navtile/debug_utils"
	"github.com/gorustyt/navtile/detour"
	"github.com/spf13/cobra"
)

func InspectCmd(e *env) *cobra.Command {
	var dumpObj string
	c := &cobra.Command{
		Use:   "inspect",
		Short: "summarize the tiles in the tile store",
		RunE: func(cmd *cobra.Command, args []string) error {
			nav, store, err := e.openNavmesh(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer nav.Close()
			stored, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tiles := make([]*detour.NavmeshTile, 0, len(stored))
			for _, st := range stored {
				t := detour.NewNavmeshTile(st.Data)
				s, err := debug_utils.SummarizeTile(t)
				if err != nil {
					fmt.Fprintf(out, "tile %v: corrupt: %v\n", st.Coord, err)
					continue
				}
				fmt.Fprintln(out, s)
				tiles = append(tiles, t)
			}
			fmt.Fprintf(out, "%d tiles in %s, %d loaded, tile bits %d\n",
				len(stored), e.cfg.Store.Path, nav.TileCount(), nav.TileBits())
			if dumpObj != "" {
				return dumpTiles(dumpObj, tiles)
			}
			return nil
		},
	}
	c.Flags().StringVar(&dumpObj, "obj", "", "write the stored tiles as OBJ")
	return c
}
