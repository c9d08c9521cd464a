package positions

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPosition = errors.New("unknown position code")

// Code is a single field assignment for one inning.
type Code string

const (
	Pitcher     Code = "P"
	Catcher     Code = "C"
	FirstBase   Code = "1B"
	SecondBase  Code = "2B"
	ThirdBase   Code = "3B"
	Shortstop   Code = "SS"
	LeftField   Code = "LF"
	CenterField Code = "CF"
	RightField  Code = "RF"
	Designated  Code = "DH"
	Bench       Code = "BN"
)

// Type groups codes into the six position families.
type Type string

const (
	TypePitcher  Type = "pitcher"
	TypeCatcher  Type = "catcher"
	TypeInfield  Type = "infield"
	TypeOutfield Type = "outfield"
	TypeDH       Type = "dh"
	TypeBench    Type = "bench"
)

// FieldingCount is the number of codes that carry a defensive assignment.
const FieldingCount = 9

var allCodes = []Code{
	Pitcher, Catcher, FirstBase, SecondBase, ThirdBase, Shortstop,
	LeftField, CenterField, RightField, Designated, Bench,
}

var allTypes = []Type{TypePitcher, TypeCatcher, TypeInfield, TypeOutfield, TypeDH, TypeBench}

var typeByCode = map[Code]Type{
	Pitcher:     TypePitcher,
	Catcher:     TypeCatcher,
	FirstBase:   TypeInfield,
	SecondBase:  TypeInfield,
	ThirdBase:   TypeInfield,
	Shortstop:   TypeInfield,
	LeftField:   TypeOutfield,
	CenterField: TypeOutfield,
	RightField:  TypeOutfield,
	Designated:  TypeDH,
	Bench:       TypeBench,
}

var orderByCode = func() map[Code]int {
	out := make(map[Code]int, len(allCodes))
	for i, c := range allCodes {
		out[c] = i
	}
	return out
}()

// All returns the codes in canonical order.
func All() []Code {
	return append([]Code(nil), allCodes...)
}

// Types returns the position types in canonical order.
func Types() []Type {
	return append([]Type(nil), allTypes...)
}

// Parse normalizes raw input ("ss", " 1b ") into a Code.
func Parse(raw string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := typeByCode[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPosition, raw)
	}
	return c, nil
}

func (c Code) Valid() bool {
	_, ok := typeByCode[c]
	return ok
}

func (c Code) Type() Type {
	return typeByCode[c]
}

func (c Code) IsBench() bool {
	return c == Bench
}

// IsFielding reports whether the code is one of the nine defensive positions.
func (c Code) IsFielding() bool {
	return c.Valid() && c != Bench && c != Designated
}

// Order is the canonical index of the code, or -1 for unknown codes.
func (c Code) Order() int {
	if i, ok := orderByCode[c]; ok {
		return i
	}
	return -1
}

// Order is the canonical index of the type, or -1 for unknown types.
func (t Type) Order() int {
	for i, v := range allTypes {
		if v == t {
			return i
		}
	}
	return -1
}
