// Package domain define contratos e tipos do rate limit: limiter de borda,
// cotas de escrita por janela alinhada à época, política de falha e estatísticas.
//
// Não depende de net/http nem de Redis.
package domain
