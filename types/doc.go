// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 ImageFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 image、dispatch、
providers 与 api 提供统一的错误契约。

# 核心类型

  - ErrorCode   : 封闭的错误码集合，每个码对应固定的 HTTP 状态
  - Error       : 结构化错误，含 Details{Provider, Upstream, Field, RetryAfter}
  - ErrorDetails: 调用方渲染错误所需的附加信息

# 主要能力

  - 错误工具链：NewError 与 With* 构建器、AsError、FromError、IsErrorCode
  - Context 传播：WithRequestID / WithClientIP
*/
package types
