// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ImageFlow HTTP API 的请求处理器实现。

# 概述

每个 Handler 只负责解码、套用默认值、取凭证和路由超时，
业务逻辑通过小接口委托给 dispatch、upscale 与 gitee 包，
测试中可以用计数 fake 替换。

# 核心类型

  - GenerateHandler : /api/generate 与 /api/generate-hf
  - UpscaleHandler  : /api/upscale
  - VideoHandler    : /api/video/generate 与 /api/video/status/{taskId}
  - OptimizeHandler : /api/optimize
  - HealthHandler   : /health, /healthz, /ready
  - ErrorResponse   : 统一错误结构 {error, code, details?}

# 主要能力

  - WriteError：任意错误 → taxonomy，状态码只由 code 决定，附带 Retry-After
  - DecodeJSONBody：请求体上限，超限返回 INVALID_PARAMS (field body)
  - RunWithDeadline：路由超时，到期返回 TIMEOUT
*/
package handlers
