package ir

// SSAKind distinguishes the two ways an SSA value comes into existence.
type SSAKind uint8

const (
	// SSAResult is a value defined by a statement.
	SSAResult SSAKind = iota
	// SSABlockParam is a value defined as a block parameter.
	SSABlockParam
)

func (k SSAKind) String() string {
	switch k {
	case SSAResult:
		return "result"
	case SSABlockParam:
		return "block parameter"
	}
	return "unknown"
}

// SSAInfo is the per-value record: the defining site, the type attribute,
// an optional debug name, and the use list.
//
// The use-list invariant: for every Use{s, i} recorded here, statement s's
// i-th operand is this value. All editing entry points keep both sides in
// sync atomically.
type SSAInfo[T comparable] struct {
	Kind SSAKind
	// OwnerStmt is the defining statement for SSAResult values.
	OwnerStmt Statement
	// OwnerBlock is the defining block for SSABlockParam values.
	OwnerBlock Block
	// Index is the result or parameter position at the defining site.
	Index int
	// Type is the value's type attribute in this stage's type system.
	Type T
	// Name is an optional interned debug name.
	Name Symbol

	uses map[Use]struct{}
}

// Uses returns the live use set. The map is owned by the stage; callers must
// treat it as read-only.
func (s *SSAInfo[T]) Uses() map[Use]struct{} { return s.uses }

// NumUses reports how many operands read this value.
func (s *SSAInfo[T]) NumUses() int { return len(s.uses) }

func (s *SSAInfo[T]) addUse(u Use) {
	if s.uses == nil {
		s.uses = make(map[Use]struct{}, 2)
	}
	s.uses[u] = struct{}{}
}

func (s *SSAInfo[T]) removeUse(u Use) {
	delete(s.uses, u)
}
