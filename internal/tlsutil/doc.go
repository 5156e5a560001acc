// Package tlsutil 集中管理出站连接的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件），
// 供上游 HTTP 客户端与 Redis 限流后端共用。
package tlsutil
