package interp

import (
	"fmt"

	"kirin/ir"
)

// Breakpoint is a numbered stop location: a statement in a specific stage.
type Breakpoint struct {
	ID   int
	Site ir.CallSite
}

// Summary returns a short display form.
func (bp *Breakpoint) Summary() string {
	if bp == nil {
		return "<nil>"
	}
	return fmt.Sprintf("#%d stage:%d stmt:%d", bp.ID, bp.Site.Stage, bp.Site.Stmt)
}

// Breakpoints manages a collection of breakpoints with O(1) membership.
type Breakpoints struct {
	nextID int
	list   []*Breakpoint
	set    map[ir.CallSite]struct{}
}

// NewBreakpoints creates an empty collection.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{nextID: 1, set: make(map[ir.CallSite]struct{})}
}

// Add registers a breakpoint on a statement of a stage.
func (bps *Breakpoints) Add(stage ir.CompileStage, stmt ir.Statement) *Breakpoint {
	bp := &Breakpoint{
		ID:   bps.nextID,
		Site: ir.CallSite{Stage: stage, Stmt: stmt},
	}
	bps.nextID++
	bps.list = append(bps.list, bp)
	bps.set[bp.Site] = struct{}{}
	return bp
}

// Delete removes a breakpoint by ID. Reports whether it existed.
func (bps *Breakpoints) Delete(id int) bool {
	for i, bp := range bps.list {
		if bp.ID == id {
			delete(bps.set, bp.Site)
			copy(bps.list[i:], bps.list[i+1:])
			bps.list = bps.list[:len(bps.list)-1]
			return true
		}
	}
	return false
}

// Has reports whether a statement of a stage carries a breakpoint.
func (bps *Breakpoints) Has(stage ir.CompileStage, stmt ir.Statement) bool {
	if bps == nil {
		return false
	}
	_, ok := bps.set[ir.CallSite{Stage: stage, Stmt: stmt}]
	return ok
}

// List returns the breakpoints in creation order.
func (bps *Breakpoints) List() []*Breakpoint { return bps.list }
