// Package config 提供 ImageFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 (IMAGEFLOW_ 前缀) 的顺序加载，
// 启动时一次性读取，运行期间不可变。
package config
