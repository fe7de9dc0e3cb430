package absint

import (
	"maps"
	"slices"

	"kirin/interp"
	"kirin/ir"
	"kirin/lattice"
)

// Analyze computes the summary of callee at stageID for the given argument
// abstraction.
//
// Cached results are reused when their inputs subsume the query. A recursive
// hit on a callee already on the analysis stack returns its tentative
// summary (bottom on first entry); the outer loop re-analyzes until the
// return value stabilizes, then commits the entry.
func (a *Analyzer[V]) Analyze(callee ir.SpecializedFunction, stageID ir.CompileStage, args []V) (*Result[V], error) {
	key := summaryKey{Stage: stageID, Callee: callee}
	if c, ok := a.summaries[key]; ok {
		if fixed := c.Fixed(); fixed != nil {
			return fixed, nil
		}
		if e := c.findBestMatch(args); e != nil {
			return e.Result, nil
		}
	}

	for _, f := range a.frames {
		if f.callee == callee && f.stage == stageID {
			if t := a.cache(key).TentativeResult(); t != nil {
				return t, nil
			}
			return emptyResult[V](), nil
		}
	}

	stage, err := a.pl.Stage(stageID)
	if err != nil {
		return nil, err
	}
	entry, err := stage.EntryBlock(callee)
	if err != nil {
		return nil, err
	}

	a.cache(key).SetTentative(slices.Clone(args), emptyResult[V]())
	for iter := 1; ; iter++ {
		if iter > a.maxSummaryIterations {
			return nil, interp.DidNotConverge("summary iteration cap")
		}
		a.frames = append(a.frames, newAFrame[V](callee, stageID))
		res, err := a.runForward(stage, entry, args)
		a.frames = a.frames[:len(a.frames)-1]
		if err != nil {
			return nil, err
		}

		prev := a.cache(key).TentativeResult()
		converged := returnStabilized(prev, res, iter)
		a.cache(key).SetTentative(slices.Clone(args), res)
		if converged {
			a.cache(key).PromoteTentative(slices.Clone(args), res)
			return res, nil
		}
	}
}

// returnStabilized reports whether the recomputed return value no longer
// grows relative to the previous iterate.
func returnStabilized[V lattice.AbstractValue[V]](prev, next *Result[V], iter int) bool {
	var oldV V
	oldOK := false
	if prev != nil {
		oldV, oldOK = prev.ReturnValue()
	}
	newV, newOK := next.ReturnValue()
	switch {
	case oldOK && newOK:
		return newV.IsSubsetEq(oldV)
	case !oldOK && !newOK:
		return true
	default:
		return iter > 1
	}
}

// runForward drives the ascending worklist phase from entry, then the
// bounded descending phase, on the current analysis frame.
func (a *Analyzer[V]) runForward(stage ir.Stage, entry ir.Block, args []V) (*Result[V], error) {
	frame, err := a.currentFrame()
	if err != nil {
		return nil, err
	}
	params, err := stage.ParamsOf(entry)
	if err != nil {
		return nil, err
	}
	if len(params) != len(args) {
		return nil, interp.ArityMismatch(len(params), len(args))
	}
	for i, p := range params {
		frame.values[p] = args[i]
	}
	frame.blockArgs[entry] = params
	frame.enqueue(entry)

	var ret V
	hasRet := false
	pops := 0
	for {
		b, ok := frame.dequeue()
		if !ok {
			break
		}
		pops++
		if pops > a.maxIterations {
			return nil, interp.DidNotConverge("worklist pop cap")
		}
		c, err := a.evalBlock(stage, b)
		if err != nil {
			return nil, err
		}
		if err := a.ascend(stage, frame, c, &ret, &hasRet); err != nil {
			return nil, err
		}
	}

	for range a.narrowingIterations {
		changed, err := a.narrowSweep(stage, frame, entry, args, &ret, &hasRet)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}

	return newResult(maps.Clone(frame.values), maps.Clone(frame.blockArgs), ret, hasRet), nil
}

// evalBlock runs the dialect semantics of each statement in b against the
// current frame state and returns the block's closing continuation. Calls
// are folded through the summary machinery in place; Break is ignored —
// abstract execution has no debugger.
func (a *Analyzer[V]) evalBlock(stage ir.Stage, b ir.Block) (interp.Continuation[V], error) {
	var none interp.Continuation[V]
	s, err := stage.FirstStmt(b)
	if err != nil {
		return none, err
	}
	for s.IsValid() {
		a.cursor = s
		def, err := stage.DefOf(s)
		if err != nil {
			return none, err
		}
		sem, ok := def.(interp.Interpretable[V])
		if !ok {
			return none, interp.BadState("statement definition is not interpretable for this value domain")
		}
		c, err := sem.Interpret(a)
		if err != nil {
			return none, err
		}
		switch c.Kind {
		case interp.KContinue, interp.KBreak:
		case interp.KCall:
			if err := a.evalCall(c.Call); err != nil {
				return none, err
			}
		default:
			return c, nil
		}
		if s, err = stage.NextOf(s); err != nil {
			return none, err
		}
	}
	return interp.Continue[V](), nil
}

// evalCall projects a call through the summary cache, analyzing the callee
// when nothing cached subsumes the arguments, and binds the callee's return
// abstraction to the caller's result value.
func (a *Analyzer[V]) evalCall(call interp.CallCont[V]) error {
	res, err := a.Analyze(call.Callee, call.Stage, call.Args)
	if err != nil {
		return err
	}
	if !call.Result.IsValid() {
		return nil
	}
	var ret V
	if v, ok := res.ReturnValue(); ok {
		ret = v
	} else {
		ret = ret.Bottom()
	}
	return a.Write(call.Result, ret)
}

// ascend applies a block's closing continuation during the ascending phase:
// control edges join (or widen) into their targets' entry states, enqueuing
// targets that grew; returns join into the frame's return accumulator.
func (a *Analyzer[V]) ascend(stage ir.Stage, frame *aframe[V], c interp.Continuation[V], ret *V, hasRet *bool) error {
	switch c.Kind {
	case interp.KJump:
		_, err := a.ascendEdge(stage, frame, c.Jump)
		return err
	case interp.KFork:
		for _, edge := range c.Fork {
			if _, err := a.ascendEdge(stage, frame, edge); err != nil {
				return err
			}
		}
		return nil
	case interp.KReturn:
		if !*hasRet {
			*ret = c.Ret
			*hasRet = true
		} else {
			*ret = (*ret).Join(c.Ret)
		}
		return nil
	}
	return nil
}

// ascendEdge merges one inbound edge into the target's entry state. First
// visits bind directly; revisits join, then widen when the strategy applies
// at this target. Reports whether the state grew.
func (a *Analyzer[V]) ascendEdge(stage ir.Stage, frame *aframe[V], edge interp.Edge[V]) (bool, error) {
	params, err := stage.ParamsOf(edge.Target)
	if err != nil {
		return false, err
	}
	if len(params) != len(edge.Args) {
		return false, interp.ArityMismatch(len(params), len(edge.Args))
	}

	if _, visited := frame.blockArgs[edge.Target]; !visited {
		for i, p := range params {
			frame.values[p] = edge.Args[i]
		}
		frame.blockArgs[edge.Target] = params
		frame.enqueue(edge.Target)
		return true, nil
	}

	frame.visits[edge.Target]++
	visits := frame.visits[edge.Target]
	changed := false
	for i, p := range params {
		prior, ok := frame.values[p]
		if !ok {
			frame.values[p] = edge.Args[i]
			changed = true
			continue
		}
		merged := merge(a.widening, prior, edge.Args[i], edge.Target, visits)
		if !(merged.IsSubsetEq(prior) && prior.IsSubsetEq(merged)) {
			changed = true
		}
		frame.values[p] = merged
	}
	if changed {
		frame.enqueue(edge.Target)
	}
	return changed, nil
}

// narrowSweep runs one descending pass: every visited block is re-evaluated
// against the current state, inbound edges are joined per target across the
// whole sweep, and each target's entry is then narrowed by its recomputed
// join. Applying the narrows after the sweep keeps the pass order-
// independent. Reports whether anything strictly refined.
func (a *Analyzer[V]) narrowSweep(stage ir.Stage, frame *aframe[V], entry ir.Block, entryArgs []V, ret *V, hasRet *bool) (bool, error) {
	incoming := make(map[ir.Block][]V)
	record := func(target ir.Block, args []V) {
		joined, ok := incoming[target]
		if !ok {
			incoming[target] = slices.Clone(args)
			return
		}
		for i := range joined {
			joined[i] = joined[i].Join(args[i])
		}
	}
	// The entry block keeps receiving the caller's arguments.
	record(entry, entryArgs)

	var newRet V
	hasNewRet := false
	blocks := slices.Collect(maps.Keys(frame.blockArgs))
	slices.Sort(blocks)
	for _, b := range blocks {
		c, err := a.evalBlock(stage, b)
		if err != nil {
			return false, err
		}
		switch c.Kind {
		case interp.KJump:
			record(c.Jump.Target, c.Jump.Args)
		case interp.KFork:
			for _, edge := range c.Fork {
				record(edge.Target, edge.Args)
			}
		case interp.KReturn:
			if !hasNewRet {
				newRet = c.Ret
				hasNewRet = true
			} else {
				newRet = newRet.Join(c.Ret)
			}
		}
	}

	changed := false
	for target, args := range incoming {
		params := frame.blockArgs[target]
		if params == nil || len(params) != len(args) {
			continue
		}
		for i, p := range params {
			prior, ok := frame.values[p]
			if !ok {
				continue
			}
			refined := prior.Narrow(args[i])
			if !(refined.IsSubsetEq(prior) && prior.IsSubsetEq(refined)) {
				changed = true
			}
			frame.values[p] = refined
		}
	}
	if hasNewRet && *hasRet {
		refined := (*ret).Narrow(newRet)
		if !(refined.IsSubsetEq(*ret) && (*ret).IsSubsetEq(refined)) {
			changed = true
		}
		*ret = refined
	}
	return changed, nil
}
