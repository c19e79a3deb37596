/*
Package table implements the grid-table component: cell addressing, merge-region algebra
and the structural table commands, each with a hand-derived inverse.

A table node with R rows and C columns owns exactly the slots "cell-r-c" for 0 <= r < R and
0 <= c < C, kept in row-major order in the node's slot list. Its typed properties (Props)
carry the row and column counts, the column widths, the header row count and the list of
merge regions.

A merge region (CellMerge) is anchored at its top-left cell. The anchor is the only cell
of the region that renders and holds content; the other cells are covered. Regions never
partially overlap, and a merge over a selection that fully contains existing regions
absorbs them.

Row and column insertion renames the existing cell slots instead of recreating them, so
slot IDs (and the content under them) survive structural edits. Renaming is done from the
far end inward: on insertion the highest index moves first, on removal the lowest index
after the removed line moves first. A name is therefore never held by two slots at once.
*/
package table
