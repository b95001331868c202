package ir

import "fmt"

// SymbolName returns the sym_name attribute of an operation carrying
// TraitSymbol, or "" if absent. Dialects are expected to store the symbol
// name under the "sym_name" key (func.func, ...).
func SymbolName(op *Operation) string {
	a, ok := op.attrs.Get("sym_name")
	if !ok {
		return ""
	}
	s, ok := a.(StringAttr)
	if !ok {
		return ""
	}
	return string(s)
}

// SymbolUse is one reference to a symbol: the operation whose attribute
// dictionary holds the reference, and the top-level attribute key under
// which it was found (possibly nested inside an ArrayAttr/DictAttr).
type SymbolUse struct {
	User *Operation
	Key  string
}

// SymbolTable indexes the Symbol-trait operations nested one level inside
// the single region of a TraitSymbolTable-carrying operation (a module, a
// function collection) by name, and supports the rename/erase cascade
// described in §4.6: renaming a symbol rewrites every SymbolRefAttr in the
// table's subtree that names it, and erasing a symbol with remaining
// SymbolUses is rejected unless the caller calls ForceErase, the explicit
// "erase and drop dangling uses" escape hatch; those dangling references
// then surface at Verify time as unresolved symbol errors, the same way an
// unresolved SSA value would.
type SymbolTable struct {
	op    *Operation
	byName map[string]*Operation
}

// NewSymbolTable builds an index over op's first region. op must carry
// TraitSymbolTable.
func NewSymbolTable(op *Operation) (*SymbolTable, error) {
	if !op.name.HasTrait(TraitSymbolTable) {
		return nil, fmt.Errorf("ir: %s does not carry the symbol-table trait", op.name.Full())
	}
	t := &SymbolTable{op: op, byName: make(map[string]*Operation)}
	if len(op.regions) == 0 {
		return t, nil
	}
	for _, b := range op.regions[0].Blocks() {
		for o := b.First(); o != nil; o = o.Next() {
			if o.name.HasTrait(TraitSymbol) {
				if name := SymbolName(o); name != "" {
					t.byName[name] = o
				}
			}
		}
	}
	return t, nil
}

// Lookup returns the symbol-defining operation named name, if present.
func (t *SymbolTable) Lookup(name string) (*Operation, bool) {
	op, ok := t.byName[name]
	return op, ok
}

// Insert adds op (which must carry TraitSymbol and have a non-empty
// sym_name) to the table's index. It does not move op into the table's
// region; callers insert the op into the region themselves first.
func (t *SymbolTable) Insert(op *Operation) error {
	name := SymbolName(op)
	if name == "" {
		return fmt.Errorf("ir: cannot insert symbol with empty sym_name")
	}
	if _, exists := t.byName[name]; exists {
		return fmt.Errorf("ir: duplicate symbol %q", name)
	}
	t.byName[name] = op
	return nil
}

// Erase removes op's entry from the index and erases it from the IR. It
// fails if any SymbolUse within the table's subtree still references op's
// name; callers that want to erase anyway must use ForceErase.
func (t *SymbolTable) Erase(op *Operation) error {
	name := SymbolName(op)
	if uses := t.Uses(name); len(uses) > 0 {
		return fmt.Errorf("ir: cannot erase symbol %q: %d remaining use(s)", name, len(uses))
	}
	return t.ForceErase(op)
}

// ForceErase removes op's entry from the index and erases it from the IR
// even if other operations still hold a SymbolUse referencing its name.
// References to the erased symbol elsewhere in the module are left
// untouched; a subsequent Verify call will report them as unresolved.
func (t *SymbolTable) ForceErase(op *Operation) error {
	name := SymbolName(op)
	delete(t.byName, name)
	return op.Erase()
}

// Rename changes op's sym_name to newName and rewrites every SymbolRefAttr
// in the symbol table's subtree that referenced the old name, so existing
// callers keep resolving to the same definition.
func (t *SymbolTable) Rename(op *Operation, newName string) error {
	oldName := SymbolName(op)
	if oldName == "" {
		return fmt.Errorf("ir: cannot rename unnamed symbol")
	}
	if _, exists := t.byName[newName]; exists {
		return fmt.Errorf("ir: symbol %q already exists", newName)
	}
	op.attrs.Set("sym_name", StringAttr(newName))
	delete(t.byName, oldName)
	t.byName[newName] = op

	for _, r := range t.op.regions {
		rewriteSymbolRefs(r, oldName, newName)
	}
	return nil
}

// Uses returns every SymbolUse referencing name within the table's
// subtree.
func (t *SymbolTable) Uses(name string) []SymbolUse {
	var uses []SymbolUse
	for _, r := range t.op.regions {
		collectSymbolUses(r, name, &uses)
	}
	return uses
}

// VerifySymbolTable checks that every SymbolRefAttr within t's subtree
// resolves to a symbol defined in t, the symbol-table analogue of
// checking that an SSA use has a reaching definition (§3.1). It reports
// the first unresolved reference found.
func (t *SymbolTable) VerifySymbolTable() error {
	var err error
	for _, r := range t.op.regions {
		forEachSymbolRef(r, func(user *Operation, key string, ref SymbolRefAttr) {
			if err != nil || len(ref.Path) == 0 {
				return
			}
			if _, ok := t.byName[ref.Path[0]]; !ok {
				err = fmt.Errorf("ir: %s attribute %q references unresolved symbol %q",
					user.name.Full(), key, ref.Path[0])
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func rewriteSymbolRefs(r *Region, oldName, newName string) {
	for _, b := range r.Blocks() {
		for o := b.First(); o != nil; o = o.Next() {
			for _, k := range o.attrs.Keys() {
				v, _ := o.attrs.Get(k)
				if rewritten, changed := rewriteAttr(v, oldName, newName); changed {
					o.attrs.Set(k, rewritten)
				}
			}
			for _, nested := range o.regions {
				rewriteSymbolRefs(nested, oldName, newName)
			}
		}
	}
}

func rewriteAttr(a Attribute, oldName, newName string) (Attribute, bool) {
	switch v := a.(type) {
	case SymbolRefAttr:
		if len(v.Path) > 0 && v.Path[0] == oldName {
			path := append([]string(nil), v.Path...)
			path[0] = newName
			return SymbolRefAttr{Path: path}, true
		}
	case ArrayAttr:
		changedAny := false
		elems := make([]Attribute, len(v.Elems))
		for i, e := range v.Elems {
			ne, changed := rewriteAttr(e, oldName, newName)
			elems[i] = ne
			changedAny = changedAny || changed
		}
		if changedAny {
			return ArrayAttr{Elems: elems}, true
		}
	case DictAttr:
		changedAny := false
		entries := make(map[string]Attribute, len(v.Entries))
		for k, e := range v.Entries {
			ne, changed := rewriteAttr(e, oldName, newName)
			entries[k] = ne
			changedAny = changedAny || changed
		}
		if changedAny {
			return DictAttr{Entries: entries}, true
		}
	}
	return a, false
}

func collectSymbolUses(r *Region, name string, out *[]SymbolUse) {
	for _, b := range r.Blocks() {
		for o := b.First(); o != nil; o = o.Next() {
			for _, k := range o.attrs.Keys() {
				v, _ := o.attrs.Get(k)
				if attrReferences(v, name) {
					*out = append(*out, SymbolUse{User: o, Key: k})
				}
			}
			for _, nested := range o.regions {
				collectSymbolUses(nested, name, out)
			}
		}
	}
}

// forEachSymbolRef walks every operation in r's subtree and invokes visit
// for each SymbolRefAttr found, however deeply nested inside an
// ArrayAttr/DictAttr.
func forEachSymbolRef(r *Region, visit func(user *Operation, key string, ref SymbolRefAttr)) {
	for _, b := range r.Blocks() {
		for o := b.First(); o != nil; o = o.Next() {
			for _, k := range o.attrs.Keys() {
				v, _ := o.attrs.Get(k)
				collectRefsInAttr(o, k, v, visit)
			}
			for _, nested := range o.regions {
				forEachSymbolRef(nested, visit)
			}
		}
	}
}

func collectRefsInAttr(user *Operation, key string, a Attribute, visit func(*Operation, string, SymbolRefAttr)) {
	switch v := a.(type) {
	case SymbolRefAttr:
		visit(user, key, v)
	case ArrayAttr:
		for _, e := range v.Elems {
			collectRefsInAttr(user, key, e, visit)
		}
	case DictAttr:
		for _, e := range v.Entries {
			collectRefsInAttr(user, key, e, visit)
		}
	}
}

func attrReferences(a Attribute, name string) bool {
	switch v := a.(type) {
	case SymbolRefAttr:
		return len(v.Path) > 0 && v.Path[0] == name
	case ArrayAttr:
		for _, e := range v.Elems {
			if attrReferences(e, name) {
				return true
			}
		}
	case DictAttr:
		for _, e := range v.Entries {
			if attrReferences(e, name) {
				return true
			}
		}
	}
	return false
}
