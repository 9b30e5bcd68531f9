// Package infra contém as implementações concretas dos contratos de domain:
//
//   - BucketStore: token bucket por cliente (golang.org/x/time/rate)
//   - RedisQuotaStore / MemoryQuotaStore: contadores de cota por janela
//   - RedisStatsStore / MemoryStatsStore: estatísticas das decisões
//   - ChanPool: semáforo para requisições em voo
package infra
