package model

// SymbolEntry is one row of the searchable instrument list.
type SymbolEntry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
