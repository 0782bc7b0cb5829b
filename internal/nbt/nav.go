package nbt

// SkipToEndOfCompound consumes values from p until the compound the caller is currently
// inside (depth 1, relative to the call site) is closed. A Compound(_) value nested
// inside increases the local depth counter; CompoundEnd decreases it. Everything else is
// discarded. After this returns, the next value p.Next() produces is the sibling
// following the compound that was skipped.
//
// Typical use: after reading Value{Kind: KindCompound} for a compound you don't want to
// descend into, call this to jump straight past it.
func SkipToEndOfCompound(p *Parser) error {
	depth := 1
	for depth != 0 {
		v, err := p.Next()
		if err != nil {
			return err
		}
		switch v.Kind {
		case KindCompound:
			depth++
		case KindCompoundEnd:
			depth--
		}
	}
	return nil
}

// FindCompound consumes values from p until a Compound value with the given name is
// produced. Pass nil to match an unnamed compound (a list element). It does not rewind:
// the caller's position must already be a point from which the target compound is
// reachable by linear descent.
func FindCompound(p *Parser, name *string) error {
	for {
		v, err := p.Next()
		if err != nil {
			return err
		}
		if v.Kind == KindCompound && sameName(v.Name, name) {
			return nil
		}
	}
}

// FindList consumes values from p until a List value with the given name is produced,
// returning its declared element count clamped to a non-negative size (see ListCount for
// the raw, possibly-negative wire value). Pass nil to match an unnamed list element.
func FindList(p *Parser, name *string) (int, error) {
	for {
		v, err := p.Next()
		if err != nil {
			return 0, err
		}
		if v.Kind == KindList && sameName(v.Name, name) {
			if v.ListCount < 0 {
				return 0, nil
			}
			return int(v.ListCount), nil
		}
	}
}

func sameName(got, want *string) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	return *got == *want
}
