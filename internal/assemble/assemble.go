// Package assemble joins consecutive rendered clips with short transition
// effects. It runs after all renders: by then the records are final except
// for the documented rewrite of filename/path/has_transition here.
package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/supoclip/supoclip/internal/domain/encoding"
	"github.com/supoclip/supoclip/internal/ports"
	"github.com/supoclip/supoclip/internal/types"
)

const (
	// Transition assets longer than this get trimmed.
	AssetMax = 1500 * time.Millisecond
	// Cross-fade applied to the adjoining clip edges.
	FadeDuration = 500 * time.Millisecond
)

type Assembler struct {
	Video ports.VideoTool
	Logf  func(format string, args ...any)
}

// Join bridges each adjacent pair of clips with a pool asset, cycling
// through the pool deterministically. The first clip is never preceded by
// a transition. An empty pool skips the stage entirely; a failed pair
// keeps its original record. Join always returns len(records) records in
// the original order.
func (a Assembler) Join(
	ctx context.Context,
	records []types.ClipRecord,
	pool []string,
	outDir string,
	width, height int,
	prof encoding.Profile,
) []types.ClipRecord {
	logf := a.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if len(pool) == 0 || len(records) < 2 {
		return records
	}

	out := make([]types.ClipRecord, len(records))
	copy(out, records)

	for i := 1; i < len(out); i++ {
		if ctx.Err() != nil {
			logf("transitions: canceled, leaving remaining clips untransitioned")
			break
		}
		asset := pool[i%len(pool)]
		filename := fmt.Sprintf("clip_%d_transition.mp4", out[i].Order)
		path := filepath.Join(outDir, filename)

		// Pairs always bridge the original renders. Reading prev from out
		// would chain in the previous pair's composite and grow every later
		// clip by all of its predecessors.
		err := a.Video.JoinWithTransition(
			ctx,
			records[i-1].Path, asset, records[i].Path, path,
			FadeDuration, AssetMax,
			width, height,
			prof,
		)
		if err != nil {
			logf("transitions: pair %d/%d failed, keeping original clip: %v", out[i-1].Order, out[i].Order, err)
			_ = os.Remove(path)
			continue
		}

		out[i].Filename = filename
		out[i].Path = path
		out[i].HasTransition = true
	}
	return out
}
