package models

// Asset is immutable reference data maintained by the catalog; the swap core
// only reads it.
type Asset struct {
	Symbol    string `json:"symbol"`
	Precision int32  `json:"precision"`
	Tradeable bool   `json:"tradeable"`

	// internal fields
	LedgerID uint32 `json:"-"`
}
