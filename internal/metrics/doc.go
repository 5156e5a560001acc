// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、
图像生成、上游调用与限流四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 生成指标：按 provider/model/code 统计生成次数与上游耗时，
    成功记为 "ok"，失败记为错误码。
  - 上游调用：upscale、video、optimize 调用次数，按 operation/code 分组。
  - 限流指标：按 route 统计 allowed/denied/error 判定次数。
*/
package metrics
