// Package ratelimit fornece os adapters HTTP (net/http) de rate limit e concorrência.
//
// Camadas:
//
//   - domain: contratos e tipos (sem net/http)
//   - application: casos de uso (decisão de borda, cota de escrita, vagas)
//   - infra: token bucket, contadores Redis/memória, estatísticas, semáforo
//   - ratelimit (este pacote): middlewares + extração de chave + tradução para
//     envelope/status/headers
//
// Ordem no servidor:
//
//  1. ConcurrencyMiddleware: sem vaga => 503
//  2. EdgeMiddleware: rajada por cliente => 429
//  3. (por rota) gate de autorização
//  4. (por rota) Quota(op): cota por usuário/operação => 429 com Retry-After
package ratelimit
