// Package application contém os casos de uso do rate limit, sem net/http:
//
//   - EdgeService.Decide(key): token bucket de borda;
//   - QuotaService.CheckAndIncrement(ctx, user, op): cotas de escrita por hora/dia;
//   - ConcurrencyService.Acquire(ctx): vagas de requisições em voo.
package application
