// Package fanout executa trabalho indexado com concorrência limitada.
package fanout

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ForEach chama fn(ctx, i) para i em [0, n) com no máximo limit execuções
// simultâneas e devolve o erro de cada índice (nil em caso de sucesso).
//
// Um erro de fn não interrompe os demais. Se ctx for cancelado, os índices
// ainda não iniciados recebem ctx.Err() e os em andamento terminam normalmente.
func ForEach(ctx context.Context, limit, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		err := ctx.Err()
		if err == nil {
			err = sem.Acquire(ctx, 1)
		}
		if err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			errs[i] = fn(ctx, i)
		}(i)
	}
	wg.Wait()
	return errs
}

// Count devolve quantos erros são nil e quantos não.
func Count(errs []error) (ok, failed int) {
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
