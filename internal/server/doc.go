// 版权所有 2024 ImageFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动与优雅关闭。

# 核心类型

  - Manager：封装 net/http.Server，持有监听器与异步错误通道。
    ImageFlow 为 API 端口和 metrics 端口各创建一个 Manager。
  - Config：监听地址、读写超时、空闲超时与优雅关闭超时。

# 主要能力

  - Start 在后台 goroutine 中服务；Run 阻塞到 ctx 取消后优雅关闭，
    适合放进 errgroup。
  - Shutdown 幂等，在 ShutdownTimeout 内排空进行中的请求。
  - Addr 在监听 ":0" 时返回实际端口，便于测试。
*/
package server
