package models

// Block is one entry of the content catalog: a named, ordered list of problem identifiers.
type Block struct {
	Name     string   `json:"blockName" yaml:"blockName"`
	Problems []string `json:"problems" yaml:"problems"`
}

// Problem returns the problem identifier at index i. ok is false when i is out of range.
func (b Block) Problem(i int) (string, bool) {
	if i < 0 || i >= len(b.Problems) {
		return "", false
	}
	return b.Problems[i], true
}
