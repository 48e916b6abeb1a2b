package mvar

const (
	Prefix     = "{{"
	Suffix     = "}}"
	PrefixSize = len(Prefix)
	SuffixSize = len(Suffix)
)

type Var struct {
	VarKey string
	Value  string
}
