// Package val implements the Zinc value model: the closed Val union plus
// the tabular Grid/Col/Row/Dict/List container types every parsed document
// is made of.
//
// What: one interface (Val) with a fixed set of implementations, mirroring
// the source's HVal class hierarchy (ztypes.py) but as a Go sum type
// instead of an abstract base class.
// How: singleton variants (Null, Marker, Remove, NA, Bool, the canonical
// Num instances) are package-level pointers so identity comparison works
// the way the spec requires (NaN == NaN by singleton identity); everything
// else is constructed fresh by the lexical readers in readers.go.
// Why: a closed union keeps every consumer's switch exhaustive and avoids
// the null-reference surprises an abstract base class plus nil invites.
package val

import (
	"fmt"
	"math"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/skygrid/zinc/internal/grammar"
)

// ValueError is the sentinel wrapped by construction-invariant failures
// (out-of-range Coord, invalid unit characters, ...).
var ValueError = errors.New("value error")

// Val is the closed union every grid cell, tag value, and list/dict entry
// belongs to.
type Val interface {
	// valTag is unexported so Val can only be implemented inside this
	// package, keeping the union closed.
	valTag()
}

// ---- singletons ----------------------------------------------------------

// Null represents the absence of a value.
type Null struct{}

func (*Null) valTag() {}

// NullVal is the single Null instance. Every missing cell and "N" literal
// resolves to this pointer.
var NullVal = &Null{}

// Marker represents "this tag is present" with no payload.
type Marker struct{}

func (*Marker) valTag() {}

// MarkerVal is the single Marker instance.
var MarkerVal = &Marker{}

// Remove represents "delete this tag" in a diff/patch context.
type Remove struct{}

func (*Remove) valTag() {}

// RemoveVal is the single Remove instance.
var RemoveVal = &Remove{}

// NA represents "not available".
type NA struct{}

func (*NA) valTag() {}

// NAVal is the single NA instance.
var NAVal = &NA{}

// ---- Bool -----------------------------------------------------------------

// Bool is a two-valued logical, represented by one of two canonical
// instances so callers may compare by pointer identity.
type Bool struct{ Value bool }

func (*Bool) valTag() {}

// True and False are the only two Bool instances that ever exist.
var (
	True  = &Bool{Value: true}
	False = &Bool{Value: false}
)

// NewBool returns the canonical Bool instance for b.
func NewBool(b bool) *Bool {
	if b {
		return True
	}
	return False
}

// ---- Num --------------------------------------------------------------

// Num is a double-precision number with an optional unit suffix.
type Num struct {
	Value   float64
	Unit    string
	HasUnit bool
}

func (*Num) valTag() {}

// Canonical Num singletons. Constructing a Num with one of these exact
// shapes (no unit, matching value) returns the same pointer, which is what
// lets "NaN == NaN" hold by identity per the spec.
var (
	NumZero   = &Num{Value: 0}
	NumPosInf = &Num{Value: math.Inf(1)}
	NumNegInf = &Num{Value: math.Inf(-1)}
	NumNaN    = &Num{Value: math.NaN()}
)

// NewNum constructs a Num, validating the unit (if any) against the grid
// grammar's unit-character predicate, and folding onto a canonical
// singleton where possible.
func NewNum(value float64, unit string) (*Num, error) {
	if unit != "" {
		if !grammar.IsUnit(unit) {
			return nil, errors.Wrapf(ValueError, "invalid unit %q", unit)
		}
		return &Num{Value: value, Unit: unit, HasUnit: true}, nil
	}
	switch {
	case math.IsNaN(value):
		return NumNaN, nil
	case math.IsInf(value, 1):
		return NumPosInf, nil
	case math.IsInf(value, -1):
		return NumNegInf, nil
	case value == 0:
		return NumZero, nil
	}
	return &Num{Value: value}, nil
}

// ---- Str / Uri ----------------------------------------------------------

// Str is decoded UTF-8 text.
type Str struct{ Value string }

func (*Str) valTag() {}

// NewStr constructs a Str.
func NewStr(s string) *Str { return &Str{Value: s} }

// Uri is decoded URI text.
type Uri struct{ Value string }

func (*Uri) valTag() {}

// NewUri constructs a Uri.
func NewUri(s string) *Uri { return &Uri{Value: s} }

// ---- Ref / Symbol ---------------------------------------------------------

// Ref is an opaque identifier (source syntax "@id" or "@id \"name\"").
type Ref struct {
	ID   string
	Name *Str // nil if the ref carries no human-readable name
}

func (*Ref) valTag() {}

// NewRef constructs an unnamed Ref.
func NewRef(id string) *Ref { return &Ref{ID: id} }

// WithName returns a copy of r carrying the given display name.
func (r *Ref) WithName(name *Str) *Ref { return &Ref{ID: r.ID, Name: name} }

// Symbol is an opaque identifier (source syntax "^id").
type Symbol struct{ ID string }

func (*Symbol) valTag() {}

// NewSymbol constructs a Symbol.
func NewSymbol(id string) *Symbol { return &Symbol{ID: id} }

// ---- Date / Time / DateTime -----------------------------------------------

// Date is a calendar date with no time-of-day or zone component.
type Date struct{ Year, Month, Day int }

func (*Date) valTag() {}

// String renders the date in Zinc's "YYYY-MM-DD" form.
func (d *Date) String() string {
	return strftimeOrFallback("%Y-%m-%d", time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC))
}

// Time is a time-of-day with nanosecond precision.
type Time struct {
	Hour, Min, Sec int
	Nanosecond     int
}

func (*Time) valTag() {}

// String renders the time in Zinc's "HH:MM:SS(.fraction)?" form.
func (t *Time) String() string {
	base := time.Date(0, 1, 1, t.Hour, t.Min, t.Sec, t.Nanosecond, time.UTC)
	s := strftimeOrFallback("%H:%M:%S", base)
	if t.Nanosecond == 0 {
		return s
	}
	return fmt.Sprintf("%s.%03d", s, t.Nanosecond/1_000_000)
}

// DateTime is an instant with an optional named IANA zone tag. The instant
// itself (including its UTC offset) is always read from the ISO-8601
// prefix; the zone identifier, if present in source text, is carried along
// for display/round-trip purposes only (see spec's date-time zone note).
type DateTime struct {
	Year, Month, Day int
	Hour, Min, Sec   int
	Nanosecond       int
	OffsetSeconds    int
	Zone             string
}

func (*DateTime) valTag() {}

// String renders the instant as "YYYY-MM-DDTHH:MM:SS(.fraction)?±HH:MM[ zone]".
func (dt *DateTime) String() string {
	base := time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Min, dt.Sec, dt.Nanosecond, time.UTC)
	s := strftimeOrFallback("%Y-%m-%dT%H:%M:%S", base)
	if dt.Nanosecond != 0 {
		s = fmt.Sprintf("%s.%03d", s, dt.Nanosecond/1_000_000)
	}
	offH, offM := dt.OffsetSeconds/3600, (dt.OffsetSeconds%3600)/60
	if offM < 0 {
		offM = -offM
	}
	switch {
	case dt.OffsetSeconds == 0:
		s += "Z"
	case dt.OffsetSeconds < 0:
		s += fmt.Sprintf("-%02d:%02d", -offH, offM)
	default:
		s += fmt.Sprintf("+%02d:%02d", offH, offM)
	}
	if dt.Zone != "" {
		s += " " + dt.Zone
	}
	return s
}

// strftimeOrFallback formats t with strftime's layout, falling back to
// stdlib time formatting on the rare platform where cgo-less strftime
// emulation rejects a directive (mirrors internal/logging's same fallback).
func strftimeOrFallback(layout string, t time.Time) string {
	s, err := strftime.Format(layout, t)
	if err != nil {
		return t.Format("2006-01-02T15:04:05")
	}
	return s
}

// ---- Coord ------------------------------------------------------------

// Coord is a geographic coordinate.
type Coord struct{ Lat, Lon float64 }

func (*Coord) valTag() {}

// NewCoord validates and constructs a Coord.
func NewCoord(lat, lon float64) (*Coord, error) {
	if lat < -90 || lat > 90 {
		return nil, errors.Wrapf(ValueError, "latitude out of range: %v", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, errors.Wrapf(ValueError, "longitude out of range: %v", lon)
	}
	return &Coord{Lat: lat, Lon: lon}, nil
}

// ---- XStr / Bin -------------------------------------------------------

// XStr is an extension-typed string, source syntax `Type("payload")`.
type XStr struct {
	Type    string
	Payload *Str
}

func (*XStr) valTag() {}

// NewXStr constructs an XStr.
func NewXStr(typ string, payload *Str) *XStr { return &XStr{Type: typ, Payload: payload} }

// Bin is an opaque binary reference carrying a MIME type string, source
// syntax `Bin("mime/type")`.
type Bin struct{ Mime string }

func (*Bin) valTag() {}

// ---- List ---------------------------------------------------------------

// List is an ordered sequence of Val.
type List struct{ Items []Val }

func (*List) valTag() {}

// NewList constructs a List. items is used directly; callers must not
// mutate it afterward if the resulting List is shared.
func NewList(items []Val) *List { return &List{Items: items} }

// ---- Dict -----------------------------------------------------------------

// Dict is a mapping from identifier keys to Val, preserving the insertion
// order of the source text for iteration while treating equality as
// order-insensitive (§3 invariants).
type Dict struct {
	order  []string
	values map[string]Val
}

func (*Dict) valTag() {}

// NewDict constructs an empty Dict.
func NewDict() *Dict { return &Dict{values: map[string]Val{}} }

// Set inserts or overwrites key, appending it to the iteration order only
// the first time it is seen.
func (d *Dict) Set(key string, v Val) {
	if d.values == nil {
		d.values = map[string]Val{}
	}
	if _, exists := d.values[key]; !exists {
		d.order = append(d.order, key)
	}
	d.values[key] = v
}

// Get returns the value for key and whether it was present. A tag named
// but given no literal value defaults to Marker per spec §3.
func (d *Dict) Get(key string) (Val, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Len reports the number of entries.
func (d *Dict) Len() int { return len(d.order) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	return append([]string(nil), d.order...)
}

// Entries returns the (key, value) pairs in insertion order.
func (d *Dict) Entries() []DictEntry {
	out := make([]DictEntry, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, DictEntry{Key: k, Value: d.values[k]})
	}
	return out
}

// DictEntry is one (key, value) pair of a Dict.
type DictEntry struct {
	Key   string
	Value Val
}

// Equal reports whether d and other have the same key set with pointer-
// identical (for singletons) or deeply-equal values, ignoring order.
func (d *Dict) Equal(other *Dict) bool {
	if d.Len() != other.Len() {
		return false
	}
	for _, e := range d.Entries() {
		ov, ok := other.Get(e.Key)
		if !ok || !ValEqual(e.Value, ov) {
			return false
		}
	}
	return true
}

// ValEqual reports whether a and b represent the same Val, accounting for
// the NaN-by-identity canonical-singleton rule.
func ValEqual(a, b Val) bool {
	if a == b {
		return true
	}
	switch av := a.(type) {
	case *Num:
		bv, ok := b.(*Num)
		return ok && av.Unit == bv.Unit && av.HasUnit == bv.HasUnit && numEqual(av.Value, bv.Value)
	case *Str:
		bv, ok := b.(*Str)
		return ok && av.Value == bv.Value
	case *Uri:
		bv, ok := b.(*Uri)
		return ok && av.Value == bv.Value
	case *Ref:
		bv, ok := b.(*Ref)
		return ok && av.ID == bv.ID
	case *Symbol:
		bv, ok := b.(*Symbol)
		return ok && av.ID == bv.ID
	case *Date:
		bv, ok := b.(*Date)
		return ok && *av == *bv
	case *Time:
		bv, ok := b.(*Time)
		return ok && *av == *bv
	case *DateTime:
		bv, ok := b.(*DateTime)
		return ok && *av == *bv
	case *Coord:
		bv, ok := b.(*Coord)
		return ok && *av == *bv
	case *XStr:
		bv, ok := b.(*XStr)
		return ok && av.Type == bv.Type && ValEqual(av.Payload, bv.Payload)
	case *Bin:
		bv, ok := b.(*Bin)
		return ok && av.Mime == bv.Mime
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !ValEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv, ok := b.(*Dict)
		return ok && av.Equal(bv)
	case *Grid:
		bv, ok := b.(*Grid)
		return ok && av.Equal(bv)
	default:
		return false
	}
}

func numEqual(a, bv float64) bool {
	if math.IsNaN(a) && math.IsNaN(bv) {
		return true
	}
	return a == bv
}

// ---- Col / Row / Grid -------------------------------------------------

// Col describes one column of a Grid: its position, name, and tags.
type Col struct {
	Index int
	Name  string
	Meta  *Dict
}

// Row is one row of a Grid: a cell per column, in column order.
type Row []Val

// Grid is the tabular form: header meta, typed columns, typed rows.
type Grid struct {
	Meta *Dict
	Cols []*Col
	Rows []Row
}

func (*Grid) valTag() {}

// NewGrid constructs a Grid, validating the row-length invariant
// (§3: every row's length equals len(cols)) and that column names are
// unique.
func NewGrid(meta *Dict, cols []*Col, rows []Row) (*Grid, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	for i, name := range names {
		if slices.Contains(names[:i], name) {
			return nil, errors.Wrapf(ValueError, "duplicate column name %q", name)
		}
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, errors.Wrapf(ValueError, "row %d has %d cells, grid has %d columns", i, len(r), len(cols))
		}
	}
	return &Grid{Meta: meta, Cols: cols, Rows: rows}, nil
}

// ColByName returns the column named name, or nil if absent.
func (g *Grid) ColByName(name string) *Col {
	idx := slices.IndexFunc(g.Cols, func(c *Col) bool { return c.Name == name })
	if idx < 0 {
		return nil
	}
	return g.Cols[idx]
}

// Cell returns row r's value in column named name, and whether the column
// exists.
func (g *Grid) Cell(r Row, name string) (Val, bool) {
	c := g.ColByName(name)
	if c == nil {
		return nil, false
	}
	return r[c.Index], true
}

// Equal reports whether g and other have the same meta, columns, and rows.
func (g *Grid) Equal(other *Grid) bool {
	if len(g.Cols) != len(other.Cols) || len(g.Rows) != len(other.Rows) {
		return false
	}
	if !g.Meta.Equal(other.Meta) {
		return false
	}
	for i, c := range g.Cols {
		oc := other.Cols[i]
		if c.Index != oc.Index || c.Name != oc.Name || !c.Meta.Equal(oc.Meta) {
			return false
		}
	}
	for i, r := range g.Rows {
		or := other.Rows[i]
		for j := range r {
			if !ValEqual(r[j], or[j]) {
				return false
			}
		}
	}
	return true
}

// String implements fmt.Stringer for debugging/log output.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid{cols=%d rows=%d}", len(g.Cols), len(g.Rows))
}
