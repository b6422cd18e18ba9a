// Package reporter 提供测试结果的报告框架。
//
// 每个 worker 拥有一个 Manager，按配置创建报告器，
// 在测试逐个完成时分发结果，并在 worker 结束时写出报告产物。
//
// 内置报告器:
//   - console: 每个测试一行，输出到 stderr
//   - junit: 每个 worker 一个 <prefix>-<index>.xml 文件
//   - json: 每个 worker 一个 <prefix>-<index>.json 文件
package reporter
