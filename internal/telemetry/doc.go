// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 ImageFlow 的 HTTP 层与 dispatch 层提供全局 TracerProvider 和 MeterProvider。
// 遥测关闭时使用 noop 实现，不连接任何外部服务。
package telemetry
