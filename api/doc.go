// Package api 描述 ImageFlow 的 HTTP API。
//
// # API Overview
//
// ImageFlow 是文生图代理，对外提供:
//   - POST /api/generate           按 provider 生成图像 (默认 gitee)
//   - POST /api/generate-hf        固定 HuggingFace，凭证可选
//   - POST /api/upscale            通过 Gradio upscaler 放大图像
//   - POST /api/optimize           使用 Gitee AI 对 prompt 进行扩写
//   - POST /api/video/generate     创建 Gitee 图生视频任务
//   - GET  /api/video/status/{id}  查询视频任务，未完成时返回 Retry-After
//   - GET  /api/providers, /api/models, /api/providers/{provider}/models
//   - GET  /health, /healthz, /ready, /version
//
// # Authentication
//
// 凭证按 provider 从请求头读取，服务端不保存任何凭证:
//
//	X-API-Key: <gitee key>
//	X-HF-Token: <huggingface token>
//	X-MS-Token: <modelscope token>
//
// 也接受 "Authorization: Bearer <token>"。
//
// # Errors
//
// 所有错误都使用统一结构，HTTP 状态码只由 code 决定:
//
//	{"error": "...", "code": "RATE_LIMITED", "details": {"retryAfter": 30}}
package api
