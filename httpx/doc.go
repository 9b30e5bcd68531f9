// Package httpx concentra o envelope de resposta JSON, a taxonomia de erros da API
// e os middlewares HTTP transversais (CORS, recover, log de requisição).
//
// Formato do envelope:
//
//	sucesso: {"success": true, ...dados}
//	erro:    {"success": false, "error": {"code": "...", "message": "..."}}
//
// Toda resposta sai com Access-Control-Allow-Origin: *.
package httpx
