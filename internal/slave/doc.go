// Package slave 实现单个 worker: 计算自己的分片，逐个运行测试，
// 写出报告产物，并恰好发布一次 ResultSlot。
//
// 中断(context 取消)时 worker 不会丢弃已有结果: 正在运行的测试和
// 剩余的测试都记为跳过，随后照常写报告并返回合法的部分计数。
package slave
