// Package migrations reúne os jobs offline que corrigem dados já gravados na
// tabela única. Cada migração percorre uma partição e é idempotente: rodar de
// novo só conta itens como Skipped.
package migrations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"rental-backend/store"
)

// Env é o que uma migração recebe. Em DryRun nada é gravado e Updated conta
// o que seria alterado.
type Env struct {
	DB     store.Client
	Logger *zap.Logger
	DryRun bool
}

type Report struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type Migration struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env Env) (Report, error)
}

var registry = map[string]Migration{}

func register(m Migration) {
	if _, dup := registry[m.Name]; dup {
		panic("migrations: duplicate name " + m.Name)
	}
	registry[m.Name] = m
}

// All devolve as migrações registradas em ordem alfabética.
func All() []Migration {
	out := make([]Migration, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Lookup(name string) (Migration, bool) {
	m, ok := registry[name]
	return m, ok
}

// Run executa a migração pelo nome e registra início e fim.
func Run(ctx context.Context, name string, env Env) (Report, error) {
	m, ok := Lookup(name)
	if !ok {
		return Report{}, fmt.Errorf("unknown migration %q", name)
	}
	if env.DB == nil {
		return Report{}, fmt.Errorf("migration %s: store is required", name)
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	env.Logger = env.Logger.With(zap.String("migration", name), zap.Bool("dry_run", env.DryRun))

	start := time.Now()
	env.Logger.Info("migration started")
	rep, err := m.Run(ctx, env)
	fields := []zap.Field{
		zap.Int("scanned", rep.Scanned),
		zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		env.Logger.Error("migration aborted", append(fields, zap.Error(err))...)
		return rep, fmt.Errorf("migration %s: %w", name, err)
	}
	env.Logger.Info("migration finished", fields...)
	return rep, nil
}

// planFunc decide a atualização de um item. nil significa nada a fazer.
type planFunc func(it store.Item) (*store.Update, error)

// scanAndUpdate percorre os itens com o prefixo e aplica o que plan devolver.
// Falhas por item são contadas e logadas; só erro de varredura aborta.
func scanAndUpdate(ctx context.Context, env Env, prefix string, match func(store.Item) bool, plan planFunc) (Report, error) {
	var rep Report
	err := env.DB.Scan(ctx, prefix, func(it store.Item) error {
		if !match(it) {
			return nil
		}
		rep.Scanned++
		u, err := plan(it)
		if err != nil {
			rep.Failed++
			env.Logger.Warn("migration item skipped", zap.String("key", it.Key().String()), zap.Error(err))
			return nil
		}
		if u.Empty() {
			rep.Skipped++
			return nil
		}
		if env.DryRun {
			rep.Updated++
			return nil
		}
		if _, err := env.DB.Update(ctx, it.Key(), u); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rep.Failed++
			env.Logger.Warn("migration item failed", zap.String("key", it.Key().String()), zap.Error(err))
			return nil
		}
		rep.Updated++
		return nil
	})
	return rep, err
}
