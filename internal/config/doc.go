// Package config 提供系统测试执行器的配置管理功能。
// 支持从 YAML 文件、环境变量和命令行参数加载配置，
// 优先级顺序为：默认值 < YAML 文件 < 环境变量 < 命令行参数。
//
// 配置对象只在启动时构造一次，然后按值传给 orchestrator 和每个 worker。
package config
