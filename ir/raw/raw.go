package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key string) (Object, bool)
	Set(key string, value Object)
	Keys() []string
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents an encoded PDF stream and its dictionary.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Table is an ordered set of indirect objects ready for serialization.
// Object numbers are handed out sequentially starting at 1.
type Table struct {
	objects map[ObjectRef]Object
	next    int
}

// NewTable returns an empty object table.
func NewTable() *Table {
	return &Table{objects: make(map[ObjectRef]Object), next: 1}
}

// Reserve allocates the next object number without assigning a value.
func (t *Table) Reserve() ObjectRef {
	ref := ObjectRef{Num: t.next}
	t.next++
	return ref
}

// Add allocates a number for obj and stores it.
func (t *Table) Add(obj Object) ObjectRef {
	ref := t.Reserve()
	t.objects[ref] = obj
	return ref
}

// Put stores obj under a previously reserved reference.
func (t *Table) Put(ref ObjectRef, obj Object) { t.objects[ref] = obj }

// Get returns the object stored under ref.
func (t *Table) Get(ref ObjectRef) (Object, bool) {
	o, ok := t.objects[ref]
	return o, ok
}

// Size is the trailer /Size value: highest object number plus one.
func (t *Table) Size() int { return t.next }

// Refs returns the stored references in ascending object-number order.
func (t *Table) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(t.objects))
	for ref := range t.objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })
	return refs
}
