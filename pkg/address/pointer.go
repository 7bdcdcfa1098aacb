package address

import "fmt"

// Pointer is a 32-bit stored value resolved through a translator.
type Pointer struct {
	Value      int32
	Translator Translator
}

// NewPointer binds a stored value to a translator.
func NewPointer(value int32, t Translator) Pointer {
	return Pointer{Value: value, Translator: t}
}

// Address resolves the pointer to a file address.
func (p Pointer) Address() (int64, error) {
	if p.Translator == nil {
		return 0, ErrNoTranslator
	}
	return p.Translator.Address(int64(p.Value))
}

// Rebind returns the same stored value bound to another translator.
func (p Pointer) Rebind(t Translator) Pointer {
	return Pointer{Value: p.Value, Translator: t}
}

// Equal reports whether both pointers store the same value. Translators are
// not compared.
func (p Pointer) Equal(o Pointer) bool {
	return p.Value == o.Value
}

// IsNull reports whether the stored value is zero.
func (p Pointer) IsNull() bool {
	return p.Value == 0
}

func (p Pointer) String() string {
	return fmt.Sprintf("%#08x", uint32(p.Value))
}

// Pointer64 is a 64-bit stored value resolved through a translator.
type Pointer64 struct {
	Value      int64
	Translator Translator
}

// NewPointer64 binds a stored value to a translator.
func NewPointer64(value int64, t Translator) Pointer64 {
	return Pointer64{Value: value, Translator: t}
}

// NewExpandedPointer64 expands a 32-bit stored value before binding it.
func NewExpandedPointer64(value int32, e Expander, t Translator) Pointer64 {
	return Pointer64{Value: e.Expand(value), Translator: t}
}

// Address resolves the pointer to a file address.
func (p Pointer64) Address() (int64, error) {
	if p.Translator == nil {
		return 0, ErrNoTranslator
	}
	return p.Translator.Address(p.Value)
}

// Rebind returns the same stored value bound to another translator.
func (p Pointer64) Rebind(t Translator) Pointer64 {
	return Pointer64{Value: p.Value, Translator: t}
}

// Equal reports whether both pointers store the same value.
func (p Pointer64) Equal(o Pointer64) bool {
	return p.Value == o.Value
}

// IsNull reports whether the stored value is zero.
func (p Pointer64) IsNull() bool {
	return p.Value == 0
}

func (p Pointer64) String() string {
	return fmt.Sprintf("%#016x", uint64(p.Value))
}

// Expander widens compressed 32-bit pointers used by 64-bit builds:
// expanded = (uint32(v) << Shift) + Base. The zero value is the identity.
type Expander struct {
	Base  int64
	Shift uint
}

// MccExpander is the expansion used by MCC gen3 builds.
var MccExpander = Expander{Base: 0x50000000, Shift: 2}

// Expand widens a stored value. Zero stays zero.
func (e Expander) Expand(v int32) int64 {
	if v == 0 || e == (Expander{}) {
		return int64(v)
	}
	return int64(uint32(v))<<e.Shift + e.Base
}

// Contract is the inverse of Expand.
func (e Expander) Contract(v int64) int32 {
	if v == 0 || e == (Expander{}) {
		return int32(v)
	}
	return int32(uint32((v - e.Base) >> e.Shift))
}

// DataPointer is a raw-data pointer that packs a resource location into its
// top two bits.
type DataPointer uint32

const dataAddressMask = 0x3FFFFFFF

// Location is one of the four raw resource locations: 0 is the cache file
// itself, 1..3 are the shared resource maps.
func (d DataPointer) Location() int {
	return int((uint32(d) & 0xC0000000) >> 30)
}

// Address returns the offset within the location.
func (d DataPointer) Address() int64 {
	return int64(uint32(d) & dataAddressMask)
}

// IsInternal reports whether the data lives in the cache file itself.
func (d DataPointer) IsInternal() bool {
	return d.Location() == 0
}

func (d DataPointer) String() string {
	return fmt.Sprintf("%d:%#08x", d.Location(), d.Address())
}
