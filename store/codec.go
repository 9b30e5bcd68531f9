package store

import (
	"encoding/json"
	"fmt"
)

// Encode converte um valor (normalmente struct com tags json) no mapa de atributos de um Item.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return out, nil
}

// Decode preenche dst com os atributos do item.
func Decode(it Item, dst any) error {
	b, err := json.Marshal(it.Data)
	if err != nil {
		return fmt.Errorf("store: decode %s: %w", it.Key(), err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("store: decode %s: %w", it.Key(), err)
	}
	return nil
}

// CloneData faz cópia profunda via JSON. Também normaliza tipos.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	if out == nil {
		out = map[string]any{}
	}
	return out
}
