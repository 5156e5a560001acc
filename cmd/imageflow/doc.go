// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 ImageFlow 服务端程序入口。

# 概述

cmd/imageflow 是文生图代理的可执行入口，提供 HTTP API 服务、
健康检查和版本查询子命令。配置来自 YAML 文件与 IMAGEFLOW_ 环境变量，
日志使用 zap，指标通过独立端口暴露给 Prometheus。

# 核心类型

  - Server      : 组装上游适配器、dispatch、handler 与限流，管理 API 与 Metrics 双端口
  - Middleware  : HTTP 中间件函数签名 func(http.Handler) http.Handler
  - RouteLimiter: 按路由的固定窗口限流，后端为内存或 Redis

# 中间件链

Recovery → RequestID → ClientIP → SecurityHeaders → RequestLogger →
CORS → Metrics → OTelTracing → FloodGuard，之后由路由级的
RouteLimiter 与 BodyLimit 处理。

# 优雅关闭

SIGINT/SIGTERM 取消根 context，两个 server.Manager 在 ShutdownTimeout
内排空请求，随后关闭限流后端并刷新遥测数据。
*/
package main
