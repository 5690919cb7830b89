package entity

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SnapshotSchemaVersion is written into every encoded snapshot.
// Version 1 is the unversioned flat object keyed by token address.
const SnapshotSchemaVersion = 2

// Snapshot is the complete ledger persisted at the end of one polling cycle.
type Snapshot struct {
	SchemaVersion int
	TakenAt       time.Time
	Tokens        Ledger
}

// NewSnapshot wraps a ledger with the current schema version.
func NewSnapshot(tokens Ledger, takenAt time.Time) *Snapshot {
	if tokens == nil {
		tokens = Ledger{}
	}
	return &Snapshot{SchemaVersion: SnapshotSchemaVersion, TakenAt: takenAt, Tokens: tokens}
}

// EmptySnapshot is the state assumed before the first cycle.
func EmptySnapshot() *Snapshot {
	return &Snapshot{SchemaVersion: SnapshotSchemaVersion, Tokens: Ledger{}}
}

type snapshotDocument struct {
	SchemaVersion int                    `json:"schema_version"`
	TakenAt       int64                  `json:"taken_at,omitempty"`
	Tokens        map[string]tokenRecord `json:"tokens"`
}

type tokenRecord struct {
	Address   string            `json:"address"`
	Name      string            `json:"name"`
	Symbol    string            `json:"symbol"`
	Chain     string            `json:"chain"`
	Balances  map[string]string `json:"balances"`
	Price     string            `json:"price"`
	Liquidity string            `json:"liquidity"`
	MarketCap string            `json:"market_cap"`
	Link      string            `json:"link"`
	Dex       string            `json:"dex,omitempty"`
}

// EncodeSnapshot serializes a snapshot with every decimal written as its exact string form.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	doc := snapshotDocument{
		SchemaVersion: SnapshotSchemaVersion,
		Tokens:        make(map[string]tokenRecord, len(s.Tokens)),
	}
	if !s.TakenAt.IsZero() {
		doc.TakenAt = s.TakenAt.Unix()
	}
	for address, info := range s.Tokens {
		doc.Tokens[address] = encodeToken(info)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeSnapshot parses both the versioned document and the legacy flat object.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var probe map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	_, versioned := probe["schema_version"]
	if !versioned {
		records := make(map[string]tokenRecord, len(probe))
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode legacy snapshot: %w", err)
		}
		tokens, err := decodeTokens(records)
		if err != nil {
			return nil, err
		}
		return &Snapshot{SchemaVersion: 1, Tokens: tokens}, nil
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.SchemaVersion > SnapshotSchemaVersion {
		return nil, fmt.Errorf("snapshot schema version %d is newer than supported %d", doc.SchemaVersion, SnapshotSchemaVersion)
	}
	tokens, err := decodeTokens(doc.Tokens)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{SchemaVersion: doc.SchemaVersion, Tokens: tokens}
	if doc.TakenAt > 0 {
		s.TakenAt = time.Unix(doc.TakenAt, 0)
	}
	return s, nil
}

func encodeToken(info *TokenInfo) tokenRecord {
	balances := make(map[string]string, len(info.Balances))
	for wallet, amount := range info.Balances {
		balances[wallet] = amount.String()
	}
	return tokenRecord{
		Address:   info.Address,
		Name:      info.Name,
		Symbol:    info.Symbol,
		Chain:     info.Chain,
		Balances:  balances,
		Price:     info.Price.String(),
		Liquidity: info.Liquidity.String(),
		MarketCap: info.MarketCap.String(),
		Link:      info.Link,
		Dex:       info.Dex,
	}
}

func decodeTokens(records map[string]tokenRecord) (Ledger, error) {
	tokens := make(Ledger, len(records))
	for key, rec := range records {
		info, err := decodeToken(rec)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", key, err)
		}
		if info.Address == "" {
			info.Address = key
		}
		tokens[key] = info
	}
	return tokens, nil
}

func decodeToken(rec tokenRecord) (*TokenInfo, error) {
	info := NewTokenInfo(rec.Address, rec.Name, rec.Symbol, rec.Chain)
	info.Link = rec.Link
	info.Dex = rec.Dex

	var err error
	if info.Price, err = parseDecimal("price", rec.Price); err != nil {
		return nil, err
	}
	if info.Liquidity, err = parseDecimal("liquidity", rec.Liquidity); err != nil {
		return nil, err
	}
	if info.MarketCap, err = parseDecimal("market_cap", rec.MarketCap); err != nil {
		return nil, err
	}
	for wallet, raw := range rec.Balances {
		amount, err := parseDecimal("balance of "+wallet, raw)
		if err != nil {
			return nil, err
		}
		info.Balances[wallet] = amount
	}
	return info, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	return d, nil
}

// NativeSnapshot maps chain -> lower-cased wallet -> native balance as reported by the source.
type NativeSnapshot map[string]map[string]string

// EncodeNativeSnapshot serializes the native-balance observation.
func EncodeNativeSnapshot(s NativeSnapshot) ([]byte, error) {
	if s == nil {
		s = NativeSnapshot{}
	}
	return json.Marshal(s)
}

// DecodeNativeSnapshot parses a native-balance observation.
func DecodeNativeSnapshot(data []byte) (NativeSnapshot, error) {
	s := NativeSnapshot{}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode native snapshot: %w", err)
	}
	return s, nil
}
