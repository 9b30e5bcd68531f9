package domain

import "context"

// SlotPool é um recurso de capacidade finita (requisições em voo).
//
// Acquire bloqueia até ter vaga ou o ctx encerrar. O release devolvido deve
// ser chamado exatamente uma vez. InUse serve para health/observabilidade.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	InUse() int
}
