package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Field é um atributo tipado do documento. O tipo impede, em compilação,
// gravar um valor do tipo errado num campo conhecido.
type Field[T any] struct {
	name string
}

func NewField[T any](name string) Field[T] { return Field[T]{name: name} }

func (f Field[T]) Name() string { return f.name }

type indexKeys struct {
	pk, sk string
}

// Update é uma atualização parcial. Só atributos de primeiro nível.
type Update struct {
	sets    map[string]any
	adds    map[string]int64
	removes map[string]struct{}
	index   map[Index]indexKeys
	expect  map[string][]string
}

func NewUpdate() *Update {
	return &Update{
		sets:    map[string]any{},
		adds:    map[string]int64{},
		removes: map[string]struct{}{},
		index:   map[Index]indexKeys{},
		expect:  map[string][]string{},
	}
}

// Set grava v em f. Um Set posterior no mesmo campo sobrescreve o anterior.
func Set[T any](u *Update, f Field[T], v T) *Update {
	delete(u.removes, f.name)
	delete(u.adds, f.name)
	u.sets[f.name] = v
	return u
}

// Remove apaga o atributo.
func Remove[T any](u *Update, f Field[T]) *Update {
	delete(u.sets, f.name)
	delete(u.adds, f.name)
	u.removes[f.name] = struct{}{}
	return u
}

// Add soma delta ao contador (ausente conta como zero).
func Add(u *Update, f Field[int64], delta int64) *Update {
	delete(u.sets, f.name)
	delete(u.removes, f.name)
	u.adds[f.name] += delta
	return u
}

// SetIndex reescreve as chaves de um índice secundário.
func (u *Update) SetIndex(idx Index, pk, sk string) *Update {
	if idx == IndexTable {
		return u
	}
	u.index[idx] = indexKeys{pk: pk, sk: sk}
	return u
}

// ExpectIn condiciona a atualização ao valor atual de f estar em values.
// Falha com ErrConditionFailed caso contrário.
func ExpectIn[T ~string](u *Update, f Field[T], values ...T) *Update {
	vs := make([]string, len(values))
	for i, v := range values {
		vs[i] = string(v)
	}
	u.expect[f.name] = vs
	return u
}

func (u *Update) Empty() bool {
	return u == nil || len(u.sets)+len(u.adds)+len(u.removes)+len(u.index) == 0
}

// SetOp é um Set já serializado em JSON, na ordem estável dos nomes.
type SetOp struct {
	Name string
	JSON []byte
}

type AddOp struct {
	Name  string
	Delta int64
}

type ExpectOp struct {
	Name   string
	Values []string
}

type IndexOp struct {
	Index Index
	PK    string
	SK    string
}

// Plan é a forma achatada da atualização, consumida pelos backends.
type Plan struct {
	Sets    []SetOp
	Adds    []AddOp
	Removes []string
	Index   []IndexOp
	Expect  []ExpectOp
}

// Plan serializa os valores; erro se algum Set não for representável em JSON.
func (u *Update) Plan() (Plan, error) {
	var p Plan
	for _, name := range sortedKeys(u.sets) {
		b, err := json.Marshal(u.sets[name])
		if err != nil {
			return Plan{}, fmt.Errorf("store: encode field %q: %w", name, err)
		}
		p.Sets = append(p.Sets, SetOp{Name: name, JSON: b})
	}
	for _, name := range sortedKeys(u.adds) {
		p.Adds = append(p.Adds, AddOp{Name: name, Delta: u.adds[name]})
	}
	p.Removes = sortedKeys(u.removes)
	for _, idx := range []Index{IndexGSI1, IndexGSI2} {
		if k, ok := u.index[idx]; ok {
			p.Index = append(p.Index, IndexOp{Index: idx, PK: k.pk, SK: k.sk})
		}
	}
	for _, name := range sortedKeys(u.expect) {
		p.Expect = append(p.Expect, ExpectOp{Name: name, Values: u.expect[name]})
	}
	return p, nil
}

// Apply aplica o plano sobre uma cópia do item. Usado pelo backend em memória
// e pelos testes; o backend SQL traduz o plano para jsonb.
func (p Plan) Apply(it Item) (Item, error) {
	data := make(map[string]any, len(it.Data)+len(p.Sets))
	for k, v := range it.Data {
		data[k] = v
	}
	for _, e := range p.Expect {
		cur, _ := data[e.Name].(string)
		if !contains(e.Values, cur) {
			return Item{}, ErrConditionFailed
		}
	}
	for _, s := range p.Sets {
		var v any
		if err := json.Unmarshal(s.JSON, &v); err != nil {
			return Item{}, fmt.Errorf("store: decode field %q: %w", s.Name, err)
		}
		data[s.Name] = v
	}
	for _, a := range p.Adds {
		cur, _ := data[a.Name].(float64)
		data[a.Name] = cur + float64(a.Delta)
	}
	for _, name := range p.Removes {
		delete(data, name)
	}
	for _, ix := range p.Index {
		switch ix.Index {
		case IndexGSI1:
			it.GSI1PK, it.GSI1SK = ix.PK, ix.SK
		case IndexGSI2:
			it.GSI2PK, it.GSI2SK = ix.PK, ix.SK
		}
	}
	it.Data = data
	return it, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
